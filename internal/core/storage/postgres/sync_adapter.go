package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pricelens-lab/pricelens/internal/core/storage"
)

// SyncAdapter implements storage.SyncStore for PostgreSQL.
//
// Each Persist call is one transaction: the snapshot upsert and every
// history insert for a product commit together or not at all. The expected
// unique-conflict on an already-stored point is not an error; it is the
// dedup mechanism that makes re-running a sync safe.
type SyncAdapter struct {
	db *sql.DB
}

// NewSyncAdapter creates a SyncAdapter sharing the given connection.
func NewSyncAdapter(db *sql.DB) *SyncAdapter {
	return &SyncAdapter{db: db}
}

// Persist writes one product's snapshot and history atomically and returns
// counts of rows actually inserted (conflict skips excluded).
func (a *SyncAdapter) Persist(
	ctx context.Context,
	platformName string,
	snap storage.ProductSnapshot,
	prices []storage.PricePoint,
	ranks []storage.RankPoint,
	rating *storage.RatingPoint,
) (storage.PersistResult, error) {
	var res storage.PersistResult

	if snap.ASIN == "" {
		return res, storage.ErrMissingExternalID
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("persist %s: begin tx: %w", snap.ASIN, err)
	}
	defer tx.Rollback() //nolint:errcheck

	platformID, err := ensurePlatform(ctx, tx, platformName)
	if err != nil {
		return res, fmt.Errorf("persist %s: %w", snap.ASIN, err)
	}

	productID, err := upsertProduct(ctx, tx, platformID, snap)
	if err != nil {
		return res, fmt.Errorf("persist %s: %w", snap.ASIN, err)
	}

	res.PricesAdded, err = insertPricePoints(ctx, tx, productID, prices, snap.BuyBoxPrice)
	if err != nil {
		return storage.PersistResult{}, fmt.Errorf("persist %s: %w", snap.ASIN, err)
	}

	res.RatingsAdded, err = insertRatingPoint(ctx, tx, productID, rating)
	if err != nil {
		return storage.PersistResult{}, fmt.Errorf("persist %s: %w", snap.ASIN, err)
	}

	res.RanksAdded, err = insertRankPoints(ctx, tx, productID, ranks)
	if err != nil {
		return storage.PersistResult{}, fmt.Errorf("persist %s: %w", snap.ASIN, err)
	}

	if err := tx.Commit(); err != nil {
		return storage.PersistResult{}, fmt.Errorf("persist %s: commit: %w", snap.ASIN, err)
	}

	slog.Debug("[SyncStore] Persisted product",
		"platform", platformName,
		"asin", snap.ASIN,
		"prices_added", res.PricesAdded,
		"ratings_added", res.RatingsAdded,
		"ranks_added", res.RanksAdded)
	return res, nil
}

// ensurePlatform resolves the platform id by name, creating the row on
// first reference. The conflict-free insert makes concurrent resolves safe.
func ensurePlatform(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, queryEnsurePlatform, name); err != nil {
		return 0, fmt.Errorf("ensure platform %q: %w", name, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, querySelectPlatformID, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve platform %q: %w", name, err)
	}
	return id, nil
}

func upsertProduct(ctx context.Context, tx *sql.Tx, platformID int64, snap storage.ProductSnapshot) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, queryUpsertProduct,
		platformID,
		snap.ASIN,
		nullString(snap.Title),
		nullString(snap.Brand),
		nullString(snap.Category),
		nullString(snap.ImageURL),
		nullString(snap.ProductURL),
		snap.Price,
		snap.Rating,
		snap.ReviewCount,
		snap.BuyBoxPrice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert product: %w", err)
	}
	return id, nil
}

// insertPricePoints appends the price series. The snapshot's buybox price is
// denormalized onto each row; historical buybox values are not available
// from the vendor's compact encoding.
func insertPricePoints(
	ctx context.Context,
	tx *sql.Tx,
	productID int64,
	points []storage.PricePoint,
	buybox decimal.NullDecimal,
) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, queryInsertPricePoint)
	if err != nil {
		return 0, fmt.Errorf("prepare price insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, p := range points {
		result, err := stmt.ExecContext(ctx, productID, p.TS, p.Price, buybox)
		if err != nil {
			return 0, fmt.Errorf("insert price point at %s: %w", p.TS, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("count price insert: %w", err)
		}
		added += int(n)
	}
	return added, nil
}

func insertRatingPoint(ctx context.Context, tx *sql.Tx, productID int64, point *storage.RatingPoint) (int, error) {
	if point == nil {
		return 0, nil
	}

	result, err := tx.ExecContext(ctx, queryInsertRatingPoint,
		productID, point.TS, point.Rating, point.ReviewCount)
	if err != nil {
		return 0, fmt.Errorf("insert rating point at %s: %w", point.TS, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count rating insert: %w", err)
	}
	return int(n), nil
}

func insertRankPoints(ctx context.Context, tx *sql.Tx, productID int64, points []storage.RankPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, queryInsertRankPoint)
	if err != nil {
		return 0, fmt.Errorf("prepare rank insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, p := range points {
		result, err := stmt.ExecContext(ctx, productID, p.TS, p.Category, p.Rank)
		if err != nil {
			return 0, fmt.Errorf("insert rank point at %s (%s): %w", p.TS, p.Category, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("count rank insert: %w", err)
		}
		added += int(n)
	}
	return added, nil
}
