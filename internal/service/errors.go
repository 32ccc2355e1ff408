package service

import (
	"storefront/internal/apperr"
	"storefront/internal/models"
)

func errUnauthenticated() error {
	return apperr.New(apperr.Unauthenticated, "authentication required")
}

func storeFailure(err error, action string) error {
	return apperr.Wrap(apperr.StoreError, err, "failed to "+action)
}

func stockExceeded(p *models.Product, requested int) error {
	return apperr.New(apperr.StockExceeded,
		"not enough stock for %s (requested %d, available %d)", p.Name, requested, p.StockQuantity)
}
