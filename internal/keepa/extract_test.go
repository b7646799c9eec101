package keepa

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, raw string) Product {
	t.Helper()
	var rec Product
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestExtractSnapshot(t *testing.T) {
	rec := mustRecord(t, `{
		"asin": "B00TEST123",
		"title": "Widget",
		"brand": "Acme",
		"image": "https://img.example/w.jpg",
		"categoryTree": [
			{"catId": 1, "name": "Home"},
			{"catId": 2, "name": "Kitchen Gadgets"}
		],
		"stats": {
			"reviewsCount": 1234,
			"reviewRating": 47,
			"buyboxPrice": 2599
		},
		"csv": [[0, 2468, 2880, 1999]]
	}`)

	snap := ExtractSnapshot(rec)

	require.Equal(t, "B00TEST123", snap.ASIN)
	require.Equal(t, "Widget", snap.Title)
	require.Equal(t, "Acme", snap.Brand)
	require.Equal(t, "Kitchen Gadgets", snap.Category, "last category path element wins")
	require.Equal(t, "https://www.amazon.com/dp/B00TEST123", snap.ProductURL, "dp fallback when url is absent")

	require.True(t, snap.ReviewCount.Valid, "alternate reviewsCount key resolves")
	require.Equal(t, int64(1234), snap.ReviewCount.Int64)
	require.True(t, snap.Rating.Valid, "alternate reviewRating key resolves")
	require.Equal(t, "4.7", snap.Rating.Decimal.String())
	require.True(t, snap.BuyBoxPrice.Valid, "alternate buyboxPrice key resolves")
	require.Equal(t, "25.99", snap.BuyBoxPrice.Decimal.String())

	require.True(t, snap.Price.Valid, "current price comes from the series tail")
	require.Equal(t, "19.99", snap.Price.Decimal.String())
}

func TestExtractSnapshot_PrimaryStatsKeysWin(t *testing.T) {
	rec := mustRecord(t, `{
		"asin": "B00TEST123",
		"stats": {
			"rating": 42,
			"reviewRating": 30,
			"reviewCount": 10,
			"reviewsCount": 99,
			"buyBoxPrice": 1000,
			"buyboxPrice": 2000
		}
	}`)

	snap := ExtractSnapshot(rec)
	require.Equal(t, "4.2", snap.Rating.Decimal.String())
	require.Equal(t, int64(10), snap.ReviewCount.Int64)
	require.Equal(t, "10", snap.BuyBoxPrice.Decimal.String())
}

func TestExtractSnapshot_SparseRecord(t *testing.T) {
	snap := ExtractSnapshot(mustRecord(t, `{"asin": "B0SPARSE00"}`))

	require.Equal(t, "B0SPARSE00", snap.ASIN)
	require.Empty(t, snap.Title)
	require.Empty(t, snap.Category)
	require.False(t, snap.Price.Valid)
	require.False(t, snap.Rating.Valid)
	require.False(t, snap.ReviewCount.Valid)
	require.False(t, snap.BuyBoxPrice.Valid)
}

func TestExtractSnapshot_VendorURLPreferred(t *testing.T) {
	rec := mustRecord(t, `{"asin": "B00TEST123", "url": "https://vendor.example/p/B00TEST123"}`)
	require.Equal(t, "https://vendor.example/p/B00TEST123", ExtractSnapshot(rec).ProductURL)
}

func TestExtractPricePoints(t *testing.T) {
	// The middle pair carries the zero-price sentinel and must be dropped;
	// the surviving points are the epoch and epoch+2880 minutes.
	rec := mustRecord(t, `{"asin": "A", "csv": [[0, 2468, 1440, 0, 2880, 1999]]}`)

	points := ExtractPricePoints(rec)
	require.Len(t, points, 2)

	require.Equal(t, Epoch, points[0].TS)
	require.Equal(t, "24.68", points[0].Price.String())
	require.Equal(t, Epoch.Add(2880*time.Minute), points[1].TS)
	require.Equal(t, "19.99", points[1].Price.String())
}

func TestExtractPricePoints_MalformedPairSkippedIndividually(t *testing.T) {
	rec := mustRecord(t, `{"asin": "A", "csv": [[0, 2468, null, 1500, 2880, 1999]]}`)

	points := ExtractPricePoints(rec)
	require.Len(t, points, 2, "one bad pair must not abort the series")
	require.Equal(t, "24.68", points[0].Price.String())
	require.Equal(t, "19.99", points[1].Price.String())
}

func TestExtractPricePoints_NoSeries(t *testing.T) {
	require.Nil(t, ExtractPricePoints(mustRecord(t, `{"asin": "A"}`)))
	require.Nil(t, ExtractPricePoints(mustRecord(t, `{"asin": "A", "csv": []}`)))
	require.Nil(t, ExtractPricePoints(mustRecord(t, `{"asin": "A", "csv": [null]}`)))
}

func TestExtractRankPoints_FirstCategoryOnly(t *testing.T) {
	// Two category series: only the first key in document order is stored.
	// Deliberate fidelity limitation, not a bug.
	rec := mustRecord(t, `{
		"asin": "A",
		"salesRanks": {
			"1055398": [0, 120, 1440, 80],
			"284507":  [0, 7, 1440, 9]
		}
	}`)

	points := ExtractRankPoints(rec)
	require.Len(t, points, 2)
	for _, p := range points {
		require.Equal(t, "1055398", p.Category, "second category must never reach storage")
	}
	require.Equal(t, int64(120), points[0].Rank)
	require.Equal(t, int64(80), points[1].Rank)
	require.Equal(t, Epoch.Add(1440*time.Minute), points[1].TS)
}

func TestExtractRankPoints_SentinelRanksDropped(t *testing.T) {
	rec := mustRecord(t, `{"asin": "A", "salesRanks": {"foo": [0, -1, 1440, 0, 2880, 55]}}`)

	points := ExtractRankPoints(rec)
	require.Len(t, points, 1, "ranks <= 0 are vendor sentinels, not observations")
	require.Equal(t, int64(55), points[0].Rank)
}

func TestExtractRankPoints_Empty(t *testing.T) {
	require.Nil(t, ExtractRankPoints(mustRecord(t, `{"asin": "A"}`)))
	require.Nil(t, ExtractRankPoints(mustRecord(t, `{"asin": "A", "salesRanks": {}}`)))
	require.Nil(t, ExtractRankPoints(mustRecord(t, `{"asin": "A", "salesRanks": null}`)))
}

func TestExtractRatingPoint(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	rec := mustRecord(t, `{"asin": "A", "stats": {"rating": 47, "reviewCount": 1234}}`)
	point := ExtractRatingPoint(rec, now)
	require.NotNil(t, point)
	require.Equal(t, now, point.TS)
	require.Equal(t, "4.7", point.Rating.Decimal.String())
	require.Equal(t, int64(1234), point.ReviewCount.Int64)

	// review count alone still produces an observation
	point = ExtractRatingPoint(mustRecord(t, `{"asin": "A", "stats": {"reviewCount": 7}}`), now)
	require.NotNil(t, point)
	require.False(t, point.Rating.Valid)
	require.Equal(t, int64(7), point.ReviewCount.Int64)

	// neither field -> no point
	require.Nil(t, ExtractRatingPoint(mustRecord(t, `{"asin": "A"}`), now))
	require.Nil(t, ExtractRatingPoint(mustRecord(t, `{"asin": "A", "stats": {}}`), now))
}
