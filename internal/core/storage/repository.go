package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingExternalID is returned when a snapshot carries no external id.
// There is nothing to upsert against without the natural key.
var ErrMissingExternalID = errors.New("snapshot has no external id")

// ErrNotFound is returned by read-side lookups for unknown products.
var ErrNotFound = errors.New("product not found")

// ProductSnapshot is the current-state record for one (platform, external id)
// pair. Every mutable field is overwritten on each sync; empty strings and
// invalid decimals persist as NULL.
type ProductSnapshot struct {
	ASIN        string
	Title       string
	Brand       string
	Category    string
	ImageURL    string
	ProductURL  string
	Price       decimal.NullDecimal
	Rating      decimal.NullDecimal
	ReviewCount sql.NullInt64
	BuyBoxPrice decimal.NullDecimal
}

// PricePoint is one append-only price observation, unique per
// (product, timestamp).
type PricePoint struct {
	TS    time.Time
	Price decimal.Decimal
}

// RatingPoint is one append-only rating/review-count observation, unique per
// (product, timestamp).
type RatingPoint struct {
	TS          time.Time
	Rating      decimal.NullDecimal
	ReviewCount sql.NullInt64
}

// RankPoint is one append-only sales-rank observation, unique per
// (product, timestamp, category).
type RankPoint struct {
	TS       time.Time
	Category string
	Rank     int64
}

// PersistResult reports rows actually inserted, not attempted. Conflict
// skips do not count.
type PersistResult struct {
	PricesAdded  int
	RatingsAdded int
	RanksAdded   int
}

// SyncStore persists one product's snapshot and history atomically.
//
// Persist runs as a single transaction: platform resolve (insert-if-absent),
// product upsert on (platform_id, asin), then append-only point inserts with
// conflict-target-scoped DO NOTHING. Re-running with identical input is a
// no-op beyond the snapshot overwrite.
type SyncStore interface {
	Persist(
		ctx context.Context,
		platformName string,
		snap ProductSnapshot,
		prices []PricePoint,
		ranks []RankPoint,
		rating *RatingPoint,
	) (PersistResult, error)
}
