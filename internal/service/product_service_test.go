package service

import (
	"context"
	"math"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name     string
		opts     ListProductsOptions
		want     models.ProductFilter
		wantPage int
		wantSize int
		wantErr  bool
	}{
		{
			name:     "defaults",
			opts:     ListProductsOptions{},
			want:     models.ProductFilter{SortBy: models.SortByCreatedAt, Limit: 12},
			wantPage: 1,
			wantSize: 12,
		},
		{
			name:     "third page by price ascending",
			opts:     ListProductsOptions{Page: 3, PageSize: 5, Category: "books", SortBy: "price", SortOrder: "asc"},
			want:     models.ProductFilter{Category: "books", SortBy: models.SortByPrice, Ascending: true, Limit: 5, Offset: 10},
			wantPage: 3,
			wantSize: 5,
		},
		{
			name:     "page size capped",
			opts:     ListProductsOptions{PageSize: 1000},
			want:     models.ProductFilter{SortBy: models.SortByCreatedAt, Limit: 100},
			wantPage: 1,
			wantSize: 100,
		},
		{name: "page beyond offset range", opts: ListProductsOptions{Page: 768614336404564652}, wantErr: true},
		{name: "unknown category", opts: ListProductsOptions{Category: "weapons"}, wantErr: true},
		{name: "unknown sort", opts: ListProductsOptions{SortBy: "stock"}, wantErr: true},
		{name: "bad order", opts: ListProductsOptions{SortOrder: "up"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, page, size, err := buildFilter(tt.opts)
			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.InvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, filter)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestListProductsRejectsHugePage(t *testing.T) {
	f := newFixture()
	f.product("Mug", 9000, 3, true)

	_, err := f.products.ListProducts(context.Background(), ListProductsOptions{Page: math.MaxInt})
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestListProductsPagination(t *testing.T) {
	f := newFixture()
	for i := 0; i < 5; i++ {
		f.product("Item", int64(1000*(i+1)), 10, true)
	}
	f.product("Hidden", 1000, 10, false)

	page, err := f.products.ListProducts(context.Background(), ListProductsOptions{Page: 2, PageSize: 2, SortBy: "price", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Products, 2)
	assert.Equal(t, int64(3000), page.Products[0].Price)
	assert.Equal(t, int64(4000), page.Products[1].Price)
}

func TestGetProductHidesInactive(t *testing.T) {
	f := newFixture()
	active := f.product("Visible", 1000, 1, true)
	inactive := f.product("Hidden", 1000, 1, false)

	p, err := f.products.GetProduct(context.Background(), active)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Visible", p.Name)

	p, err = f.products.GetProduct(context.Background(), inactive)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = f.products.GetProduct(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}
