package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pricelens-lab/pricelens/internal/catalog"
	"github.com/pricelens-lab/pricelens/internal/core/storage"
)

var productViewCols = []string{
	"asin", "title", "brand", "category", "image_url", "product_url",
	"platform", "price", "rating", "review_count", "updated_at",
}

func TestCatalogAdapter_GetProduct(t *testing.T) {
	updated := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(regexp.QuoteMeta(queryProductDetail)).
			WithArgs("amazon_us", "B00TEST123").
			WillReturnRows(sqlmock.NewRows(productViewCols).AddRow(
				"B00TEST123", "Widget", "Acme", "Kitchen Gadgets",
				"https://img.example/w.jpg", "https://www.amazon.com/dp/B00TEST123",
				"amazon_us", "19.99", "4.7", int64(1234), updated,
			))

		view, err := adapter.GetProduct(context.Background(), "amazon_us", "B00TEST123")
		require.NoError(t, err)
		require.Equal(t, "B00TEST123", view.ASIN)
		require.Equal(t, "Widget", *view.Title)
		require.Equal(t, "amazon_us", view.Platform)
		require.True(t, view.Price.Valid)
		require.Equal(t, "19.99", view.Price.Decimal.String())
		require.Equal(t, int64(1234), *view.ReviewCount)
		require.Equal(t, updated, *view.UpdatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null columns map to nil pointers", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(regexp.QuoteMeta(queryProductDetail)).
			WithArgs("amazon_us", "B0SPARSE00").
			WillReturnRows(sqlmock.NewRows(productViewCols).AddRow(
				"B0SPARSE00", nil, nil, nil, nil, nil, "amazon_us", nil, nil, nil, nil,
			))

		view, err := adapter.GetProduct(context.Background(), "amazon_us", "B0SPARSE00")
		require.NoError(t, err)
		require.Nil(t, view.Title)
		require.Nil(t, view.Brand)
		require.False(t, view.Price.Valid)
		require.False(t, view.Rating.Valid)
		require.Nil(t, view.ReviewCount)
		require.Nil(t, view.UpdatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(regexp.QuoteMeta(queryProductDetail)).
			WithArgs("amazon_us", "B0MISSING0").
			WillReturnRows(sqlmock.NewRows(productViewCols))

		_, err := adapter.GetProduct(context.Background(), "amazon_us", "B0MISSING0")
		require.ErrorIs(t, err, storage.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCatalogAdapter_GetHistory(t *testing.T) {
	updated := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ts1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts2 := ts1.Add(48 * time.Hour)

	t.Run("full history", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(regexp.QuoteMeta(queryHistoryMeta)).
			WithArgs("amazon_us", "B00TEST123").
			WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at"}).AddRow(int64(42), updated))
		mock.ExpectQuery(regexp.QuoteMeta(queryPriceHistory)).
			WithArgs(int64(42), 2000).
			WillReturnRows(sqlmock.NewRows([]string{"ts", "price", "buybox_price", "currency"}).
				AddRow(ts1, "24.68", "25.99", "USD").
				AddRow(ts2, "19.99", nil, "USD"))
		mock.ExpectQuery(regexp.QuoteMeta(queryRankHistory)).
			WithArgs(int64(42), 2000).
			WillReturnRows(sqlmock.NewRows([]string{"ts", "category", "rank"}).
				AddRow(ts1, "1055398", int64(120)))

		history, err := adapter.GetHistory(context.Background(), "amazon_us", "B00TEST123", 2000)
		require.NoError(t, err)

		require.Equal(t, "B00TEST123", history.ASIN)
		require.Equal(t, updated, *history.UpdatedAt)

		require.Len(t, history.PriceHistory, 2)
		require.Equal(t, "24.68", history.PriceHistory[0].Price.String())
		require.Equal(t, "USD", *history.PriceHistory[0].Currency)

		// buybox series shares the price series timestamps
		require.Len(t, history.BuyBoxHistory, 2)
		require.Equal(t, ts1, history.BuyBoxHistory[0].TS)
		require.True(t, history.BuyBoxHistory[0].BuyBoxPrice.Valid)
		require.False(t, history.BuyBoxHistory[1].BuyBoxPrice.Valid)

		require.Len(t, history.RankingHistory, 1)
		require.Equal(t, "1055398", history.RankingHistory[0].Category)
		require.Equal(t, int64(120), history.RankingHistory[0].Rank)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown asin", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(regexp.QuoteMeta(queryHistoryMeta)).
			WithArgs("amazon_us", "B0MISSING0").
			WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at"}))

		_, err := adapter.GetHistory(context.Background(), "amazon_us", "B0MISSING0", 2000)
		require.ErrorIs(t, err, storage.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCatalogAdapter_ListProducts(t *testing.T) {
	minRating := 4.0
	maxPrice := 50.0

	t.Run("filters and pagination", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs("amazon_us", minRating, maxPrice).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(41)))

		mock.ExpectQuery(`ORDER BY COALESCE\(pr\.review_rating, lr\.rating\) DESC NULLS LAST`).
			WithArgs("amazon_us", minRating, maxPrice, 20, 20).
			WillReturnRows(sqlmock.NewRows(productViewCols).AddRow(
				"B00TEST123", "Widget", nil, nil, nil, nil, "amazon_us", "19.99", "4.7", int64(10), nil,
			))

		page, err := adapter.ListProducts(context.Background(), "amazon_us", catalog.ListQuery{
			MinRating: &minRating,
			MaxPrice:  &maxPrice,
			SortBy:    catalog.SortByRating,
			Order:     "desc",
			Page:      2,
			PageSize:  20,
		})
		require.NoError(t, err)
		require.Equal(t, int64(41), page.Total)
		require.Equal(t, 2, page.Page)
		require.Len(t, page.Items, 1)
		require.Equal(t, "B00TEST123", page.Items[0].ASIN)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unfiltered defaults to id order", func(t *testing.T) {
		db, mock := newMockDB(t)
		adapter := NewCatalogAdapter(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs("amazon_us").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectQuery(`ORDER BY pr\.id ASC`).
			WithArgs("amazon_us", 20, 0).
			WillReturnRows(sqlmock.NewRows(productViewCols))

		page, err := adapter.ListProducts(context.Background(), "amazon_us", catalog.ListQuery{
			Order:    "asc",
			Page:     1,
			PageSize: 20,
		})
		require.NoError(t, err)
		require.Equal(t, int64(0), page.Total)
		require.Empty(t, page.Items)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
