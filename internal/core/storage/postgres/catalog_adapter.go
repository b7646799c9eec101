package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pricelens-lab/pricelens/internal/catalog"
	"github.com/pricelens-lab/pricelens/internal/core/storage"
)

// CatalogAdapter implements catalog.Store for PostgreSQL. Read-only; the
// sync path is the sole writer.
type CatalogAdapter struct {
	db *sql.DB
}

// NewCatalogAdapter creates a CatalogAdapter sharing the given connection.
func NewCatalogAdapter(db *sql.DB) *CatalogAdapter {
	return &CatalogAdapter{db: db}
}

// ListProducts returns one page of products with optional rating/price
// filters and sorting. Filter and sort expressions COALESCE the snapshot
// column with the latest stored observation.
func (a *CatalogAdapter) ListProducts(ctx context.Context, platformName string, q catalog.ListQuery) (catalog.ProductsPage, error) {
	page := catalog.ProductsPage{
		Page:     q.Page,
		PageSize: q.PageSize,
		Items:    []catalog.ProductView{},
	}

	where := []string{"pl.name = $1"}
	args := []interface{}{platformName}

	if q.MinRating != nil {
		args = append(args, *q.MinRating)
		where = append(where, fmt.Sprintf(
			"COALESCE(pr.review_rating, lr.rating) IS NOT NULL AND COALESCE(pr.review_rating, lr.rating) >= $%d",
			len(args)))
	}
	if q.MaxPrice != nil {
		args = append(args, *q.MaxPrice)
		where = append(where, fmt.Sprintf(
			"COALESCE(pr.price, lp.price) IS NOT NULL AND COALESCE(pr.price, lp.price) <= $%d",
			len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	dir := "ASC"
	if q.Order == "desc" {
		dir = "DESC"
	}
	var orderSQL string
	switch q.SortBy {
	case catalog.SortByRating:
		orderSQL = fmt.Sprintf("COALESCE(pr.review_rating, lr.rating) %s NULLS LAST, pr.id ASC", dir)
	case catalog.SortByPrice:
		orderSQL = fmt.Sprintf("COALESCE(pr.price, lp.price) %s NULLS LAST, pr.id ASC", dir)
	default:
		orderSQL = "pr.id ASC"
	}

	countSQL := `
		WITH lp AS (` + cteLatestPrice + `), lr AS (` + cteLatestRating + `)
		SELECT COUNT(*)` + productViewFrom + `
		WHERE ` + whereSQL

	if err := a.db.QueryRowContext(ctx, countSQL, args...).Scan(&page.Total); err != nil {
		return catalog.ProductsPage{}, fmt.Errorf("count products: %w", err)
	}

	args = append(args, q.PageSize)
	limitArg := len(args)
	args = append(args, (q.Page-1)*q.PageSize)
	offsetArg := len(args)

	listSQL := fmt.Sprintf(`
		WITH lp AS (`+cteLatestPrice+`), lr AS (`+cteLatestRating+`)
		SELECT `+productViewColumns+productViewFrom+`
		WHERE `+whereSQL+`
		ORDER BY `+orderSQL+`
		LIMIT $%d OFFSET $%d`, limitArg, offsetArg)

	rows, err := a.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return catalog.ProductsPage{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		view, err := scanProductView(rows)
		if err != nil {
			return catalog.ProductsPage{}, err
		}
		page.Items = append(page.Items, view)
	}
	if err := rows.Err(); err != nil {
		return catalog.ProductsPage{}, fmt.Errorf("error iterating products: %w", err)
	}

	return page, nil
}

// GetProduct returns one product view or storage.ErrNotFound.
func (a *CatalogAdapter) GetProduct(ctx context.Context, platformName, asin string) (catalog.ProductView, error) {
	row := a.db.QueryRowContext(ctx, queryProductDetail, platformName, asin)
	view, err := scanProductView(row)
	if err == sql.ErrNoRows {
		return catalog.ProductView{}, storage.ErrNotFound
	}
	if err != nil {
		return catalog.ProductView{}, err
	}
	return view, nil
}

// GetHistory returns the stored time series for one product, ordered by
// timestamp, or storage.ErrNotFound for an unknown asin.
func (a *CatalogAdapter) GetHistory(ctx context.Context, platformName, asin string, limit int) (catalog.ProductHistory, error) {
	history := catalog.ProductHistory{
		ASIN:           asin,
		PriceHistory:   []catalog.PricePointView{},
		BuyBoxHistory:  []catalog.BuyBoxPointView{},
		RankingHistory: []catalog.RankPointView{},
	}

	var productID int64
	var updatedAt sql.NullTime
	err := a.db.QueryRowContext(ctx, queryHistoryMeta, platformName, asin).Scan(&productID, &updatedAt)
	if err == sql.ErrNoRows {
		return catalog.ProductHistory{}, storage.ErrNotFound
	}
	if err != nil {
		return catalog.ProductHistory{}, fmt.Errorf("resolve product %s: %w", asin, err)
	}
	history.UpdatedAt = timePtr(updatedAt)

	rows, err := a.db.QueryContext(ctx, queryPriceHistory, productID, limit)
	if err != nil {
		return catalog.ProductHistory{}, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var point catalog.PricePointView
		var buybox catalog.BuyBoxPointView
		var currency sql.NullString
		if err := rows.Scan(&point.TS, &point.Price, &buybox.BuyBoxPrice, &currency); err != nil {
			return catalog.ProductHistory{}, fmt.Errorf("scan price row: %w", err)
		}
		point.Currency = strPtr(currency)
		buybox.TS = point.TS
		buybox.Currency = point.Currency
		history.PriceHistory = append(history.PriceHistory, point)
		history.BuyBoxHistory = append(history.BuyBoxHistory, buybox)
	}
	if err := rows.Err(); err != nil {
		return catalog.ProductHistory{}, fmt.Errorf("error iterating price history: %w", err)
	}

	rankRows, err := a.db.QueryContext(ctx, queryRankHistory, productID, limit)
	if err != nil {
		return catalog.ProductHistory{}, fmt.Errorf("query rank history: %w", err)
	}
	defer rankRows.Close()

	for rankRows.Next() {
		var point catalog.RankPointView
		if err := rankRows.Scan(&point.TS, &point.Category, &point.Rank); err != nil {
			return catalog.ProductHistory{}, fmt.Errorf("scan rank row: %w", err)
		}
		history.RankingHistory = append(history.RankingHistory, point)
	}
	if err := rankRows.Err(); err != nil {
		return catalog.ProductHistory{}, fmt.Errorf("error iterating rank history: %w", err)
	}

	return history, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanProductView scans one product listing/detail row. Compatible with
// both sql.Row and sql.Rows.
func scanProductView(row scanner) (catalog.ProductView, error) {
	var (
		view        catalog.ProductView
		title       sql.NullString
		brand       sql.NullString
		category    sql.NullString
		image       sql.NullString
		link        sql.NullString
		reviewCount sql.NullInt64
		updatedAt   sql.NullTime
	)

	err := row.Scan(
		&view.ASIN,
		&title,
		&brand,
		&category,
		&image,
		&link,
		&view.Platform,
		&view.Price,
		&view.Rating,
		&reviewCount,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return catalog.ProductView{}, err
	}
	if err != nil {
		return catalog.ProductView{}, fmt.Errorf("failed to scan product row: %w", err)
	}

	view.Title = strPtr(title)
	view.Brand = strPtr(brand)
	view.Category = strPtr(category)
	view.Image = strPtr(image)
	view.Link = strPtr(link)
	view.ReviewCount = int64Ptr(reviewCount)
	view.UpdatedAt = timePtr(updatedAt)
	return view, nil
}
