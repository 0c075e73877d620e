package models

import "time"

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       Price     `json:"price"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images"`
	Stock       int       `json:"stock"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AsLineItem converts a catalog product into a cart line of quantity 1.
func (p *Product) AsLineItem() LineItem {
	item := LineItem{
		ProductID:   p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Quantity:    1,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Description: p.Description,
	}
	if len(p.Images) > 0 {
		item.ImageURL = p.Images[0]
	}
	return item
}

type ProductInput struct {
	Title       string   `json:"title" validate:"required,min=2,max=200"`
	Price       Price    `json:"price" validate:"gt=0"`
	Category    string   `json:"category" validate:"required"`
	Subcategory string   `json:"subcategory"`
	Description string   `json:"description" validate:"max=5000"`
	Images      []string `json:"images" validate:"dive,url"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Featured    bool     `json:"featured"`
}

// ProductPatch holds optional fields for a partial update.
type ProductPatch struct {
	Title       *string   `json:"title" validate:"omitempty,min=2,max=200"`
	Price       *Price    `json:"price" validate:"omitempty,gt=0"`
	Category    *string   `json:"category" validate:"omitempty,min=1"`
	Subcategory *string   `json:"subcategory"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Images      *[]string `json:"images" validate:"omitempty,dive,url"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	Featured    *bool     `json:"featured"`
}

// Apply copies the set fields of patch onto p.
func (patch ProductPatch) Apply(p *Product) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Subcategory != nil {
		p.Subcategory = *patch.Subcategory
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Images != nil {
		p.Images = *patch.Images
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
}

// ProductQuery describes a catalog listing request.
type ProductQuery struct {
	Page        int
	PerPage     int
	Category    string
	Subcategory string
	MinPrice    *Price
	MaxPrice    *Price
	Featured    *bool
	Search      string
	Sort        string
}

const (
	SortNewest    = "created_at_desc"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortTitleAsc  = "title_asc"
)

// Page is a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPage computes TotalPages from total and perPage.
func NewPage[T any](items []T, page, perPage int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page[T]{Items: items, Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}
