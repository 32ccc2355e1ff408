package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

const cartWithProductColumns = `
	c.id, c.clerk_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	p.id AS "product.id",
	p.name AS "product.name",
	p.description AS "product.description",
	p.price AS "product.price",
	p.category AS "product.category",
	p.stock_quantity AS "product.stock_quantity",
	p.is_active AS "product.is_active",
	p.created_at AS "product.created_at",
	p.updated_at AS "product.updated_at"`

// GetCartItemByProduct retrieves the caller's line for a product
func (s *Store) GetCartItemByProduct(ctx context.Context, clerkID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM cart_items WHERE clerk_id = $1 AND product_id = $2", clerkID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, normalize(err)
	}
	return &item, nil
}

// GetCartItemWithProduct retrieves one of the caller's lines joined with its live product row
func (s *Store) GetCartItemWithProduct(ctx context.Context, id, clerkID string) (*models.CartItemWithProduct, error) {
	var item models.CartItemWithProduct
	err := s.db.GetContext(ctx, &item,
		"SELECT "+cartWithProductColumns+`
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.id = $1 AND c.clerk_id = $2`, id, clerkID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, normalize(err)
	}
	return &item, nil
}

// InsertCartItem creates a new cart line
func (s *Store) InsertCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (clerk_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query, item.ClerkID, item.ProductID, item.Quantity)
	return normalize(row.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt))
}

// UpdateCartItemQuantity overwrites the quantity of the caller's line
func (s *Store) UpdateCartItemQuantity(ctx context.Context, id, clerkID string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2 AND clerk_id = $3",
		quantity, id, clerkID)
	if err != nil {
		return normalize(err)
	}
	return expectAffected(res, fmt.Sprintf("cart item %s", id))
}

// DeleteCartItem removes the caller's line; deleting a missing line is not an error
func (s *Store) DeleteCartItem(ctx context.Context, id, clerkID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND clerk_id = $2", id, clerkID)
	return normalize(err)
}

// ClearCart removes every line of the caller
func (s *Store) ClearCart(ctx context.Context, clerkID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE clerk_id = $1", clerkID)
	return normalize(err)
}

// ListCartItems retrieves the caller's lines with products, newest first
func (s *Store) ListCartItems(ctx context.Context, clerkID string) ([]models.CartItemWithProduct, error) {
	items := []models.CartItemWithProduct{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT "+cartWithProductColumns+`
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.clerk_id = $1
		ORDER BY c.created_at DESC`, clerkID)
	return items, normalize(err)
}

// CountCartItems counts the caller's lines
func (s *Store) CountCartItems(ctx context.Context, clerkID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM cart_items WHERE clerk_id = $1", clerkID)
	return count, normalize(err)
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
