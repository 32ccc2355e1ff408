package service

import (
	"context"
	"errors"
	"math"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// ListProductsOptions are the catalog query parameters. Zero values select defaults.
type ListProductsOptions struct {
	Page      int
	PageSize  int
	Category  string
	SortBy    string
	SortOrder string
}

// ProductService serves catalog reads
type ProductService struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store CatalogStore) *ProductService {
	return &ProductService{store: store, logger: util.GetLogger()}
}

// ListProducts returns one page of active products
func (s *ProductService) ListProducts(ctx context.Context, opts ListProductsOptions) (*models.PaginatedProducts, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	filter, page, pageSize, err := buildFilter(opts)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountProducts(ctx, filter)
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "count products")
	}

	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "list products")
	}

	return &models.PaginatedProducts{
		Products:   products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func buildFilter(opts ListProductsOptions) (models.ProductFilter, int, int, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	pageSize := opts.PageSize
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	if page > math.MaxInt/pageSize {
		return models.ProductFilter{}, 0, 0, apperr.New(apperr.InvalidInput, "page %d is out of range", page)
	}

	if opts.Category != "" && !models.IsKnownCategory(opts.Category) {
		return models.ProductFilter{}, 0, 0, apperr.New(apperr.InvalidInput, "unknown category %q", opts.Category)
	}

	sortBy := opts.SortBy
	switch sortBy {
	case "":
		sortBy = models.SortByCreatedAt
	case models.SortByCreatedAt, models.SortByPrice, models.SortByName:
	default:
		return models.ProductFilter{}, 0, 0, apperr.New(apperr.InvalidInput, "unknown sort field %q", opts.SortBy)
	}

	var ascending bool
	switch opts.SortOrder {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		return models.ProductFilter{}, 0, 0, apperr.New(apperr.InvalidInput, "sort order must be asc or desc")
	}

	return models.ProductFilter{
		Category:  opts.Category,
		SortBy:    sortBy,
		Ascending: ascending,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}, page, pageSize, nil
}

// GetProduct returns an active product, or nil when it is missing or inactive
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.GetProduct")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load product")
	}
	if !product.IsActive {
		return nil, nil
	}
	return product, nil
}

// Categories lists the category catalog
func (s *ProductService) Categories() []models.Category {
	return models.Categories
}
