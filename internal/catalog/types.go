package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SortBy values accepted by the product listing.
const (
	SortByRating = "rating"
	SortByPrice  = "price"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200

	defaultHistoryLimit = 2000
	maxHistoryLimit     = 20000
)

// ListQuery holds the normalized listing parameters.
type ListQuery struct {
	MinRating *float64
	MaxPrice  *float64
	SortBy    string // "", "rating" or "price"
	Order     string // "asc" or "desc"
	Page      int
	PageSize  int
}

// ProductView is one product row as served by the read API. Snapshot fields
// are COALESCEd with the latest stored observation so a product whose
// snapshot lacks a price still lists with its most recent history value.
type ProductView struct {
	ASIN        string              `json:"asin"`
	Title       *string             `json:"title"`
	Price       decimal.NullDecimal `json:"price"`
	Rating      decimal.NullDecimal `json:"rating"`
	ReviewCount *int64              `json:"review_count"`
	Brand       *string             `json:"brand"`
	Category    *string             `json:"category"`
	Image       *string             `json:"image"`
	Link        *string             `json:"link"`
	Platform    string              `json:"platform"`
	UpdatedAt   *time.Time          `json:"updated_at"`
}

// ProductsPage is one page of the product listing.
type ProductsPage struct {
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
	Items    []ProductView `json:"items"`
}

// PricePointView is one stored price observation.
type PricePointView struct {
	TS       time.Time       `json:"ts"`
	Price    decimal.Decimal `json:"price"`
	Currency *string         `json:"currency"`
}

// BuyBoxPointView is one stored buybox observation. The buybox price is
// denormalized onto price rows, so it shares the price series' timestamps.
type BuyBoxPointView struct {
	TS          time.Time           `json:"ts"`
	BuyBoxPrice decimal.NullDecimal `json:"buybox_price"`
	Currency    *string             `json:"currency"`
}

// RankPointView is one stored sales-rank observation.
type RankPointView struct {
	TS       time.Time `json:"ts"`
	Category string    `json:"category"`
	Rank     int64     `json:"rank"`
}

// ProductHistory is the full time-series response for one product.
type ProductHistory struct {
	ASIN           string            `json:"asin"`
	UpdatedAt      *time.Time        `json:"updated_at"`
	PriceHistory   []PricePointView  `json:"price_history"`
	BuyBoxHistory  []BuyBoxPointView `json:"buybox_history"`
	RankingHistory []RankPointView   `json:"ranking_history"`
}

// Store is the read-side persistence contract. Lookups for unknown products
// return storage.ErrNotFound.
type Store interface {
	ListProducts(ctx context.Context, platformName string, q ListQuery) (ProductsPage, error)
	GetProduct(ctx context.Context, platformName, asin string) (ProductView, error)
	GetHistory(ctx context.Context, platformName, asin string, limit int) (ProductHistory, error)
}
