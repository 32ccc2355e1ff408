package models

// Category is one entry of the storefront category catalog.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

var Categories = []Category{
	{ID: "electronics", Name: "electronics", Label: "전자제품"},
	{ID: "clothing", Name: "clothing", Label: "의류"},
	{ID: "books", Name: "books", Label: "도서"},
	{ID: "food", Name: "food", Label: "식품"},
	{ID: "sports", Name: "sports", Label: "스포츠"},
	{ID: "beauty", Name: "beauty", Label: "뷰티"},
	{ID: "home", Name: "home", Label: "생활/가정"},
}

// IsKnownCategory reports whether id is part of the catalog.
func IsKnownCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Product sort keys accepted by the catalog listing
const (
	SortByCreatedAt = "created_at"
	SortByPrice     = "price"
	SortByName      = "name"
)

// ProductFilter narrows a catalog listing. Only active products are ever listed.
type ProductFilter struct {
	Category  string
	SortBy    string
	Ascending bool
	Limit     int
	Offset    int
}

// PaginatedProducts is one page of the catalog
type PaginatedProducts struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
