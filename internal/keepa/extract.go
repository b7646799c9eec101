package keepa

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricelens-lab/pricelens/internal/core/storage"
)

// ExtractSnapshot flattens one vendor record into the current-state snapshot.
// Only the external id is required; every other field degrades to its NULL
// representation when the vendor omits or garbles it.
func ExtractSnapshot(rec Product) storage.ProductSnapshot {
	snap := storage.ProductSnapshot{
		ASIN:     rec.ASIN,
		Title:    rec.Title,
		Brand:    rec.Brand,
		ImageURL: rec.ImageURL,
	}

	snap.ProductURL = rec.URL
	if snap.ProductURL == "" && rec.ASIN != "" {
		// Vendor records frequently omit the url; the canonical dp link
		// is a stable fallback.
		snap.ProductURL = fmt.Sprintf("https://www.amazon.com/dp/%s", rec.ASIN)
	}

	if n := len(rec.CategoryTree); n > 0 {
		snap.Category = rec.CategoryTree[n-1].Name
	}

	if rc, ok := DecodeInt(rec.Stats.ReviewCountRaw()); ok {
		snap.ReviewCount = sql.NullInt64{Int64: rc, Valid: true}
	}
	if rating, ok := DecodeRating(rec.Stats.RatingRaw()); ok {
		snap.Rating = decimal.NullDecimal{Decimal: rating, Valid: true}
	}
	if bb, ok := DecodePrice(rec.Stats.BuyBoxRaw()); ok {
		snap.BuyBoxPrice = decimal.NullDecimal{Decimal: bb, Valid: true}
	}

	// Current price is the most recent observation of the price series,
	// never a separately-fetched field. Keeps the snapshot consistent with
	// the appended history.
	if series := rec.PriceSeries(); len(series) >= 2 {
		if price, ok := DecodePrice(series[len(series)-1]); ok {
			snap.Price = decimal.NullDecimal{Decimal: price, Valid: true}
		}
	}

	return snap
}

// ExtractPricePoints decodes the interleaved price series into timestamped
// observations. A malformed pair is skipped on its own; pairs carrying the
// vendor's "no data" price sentinel are dropped entirely.
func ExtractPricePoints(rec Product) []storage.PricePoint {
	series := rec.PriceSeries()
	if len(series) < 2 {
		return nil
	}

	var out []storage.PricePoint
	for i := 0; i+1 < len(series); i += 2 {
		minute, err := ParseMinute(series[i])
		if err != nil {
			continue
		}
		price, ok := DecodePrice(series[i+1])
		if !ok {
			continue
		}
		out = append(out, storage.PricePoint{
			TS:    MinutesToTime(minute),
			Price: price,
		})
	}
	return out
}

// ExtractRankPoints decodes the sales-rank series of the FIRST category key
// in the record. Multi-category fidelity is deliberately out of scope; the
// remaining categories are discarded. Ranks <= 0 are the vendor's "no rank"
// sentinel and are dropped rather than stored as zero.
func ExtractRankPoints(rec Product) []storage.RankPoint {
	series, ok := rec.SalesRanks.First()
	if !ok || len(series.Values) < 2 {
		return nil
	}

	category := series.Category
	if category == "" {
		category = "default"
	}

	var out []storage.RankPoint
	for i := 0; i+1 < len(series.Values); i += 2 {
		minute, err := ParseMinute(series.Values[i])
		if err != nil {
			continue
		}
		rank, ok := DecodeInt(series.Values[i+1])
		if !ok || rank <= 0 {
			continue
		}
		out = append(out, storage.RankPoint{
			TS:       MinutesToTime(minute),
			Category: category,
			Rank:     rank,
		})
	}
	return out
}

// ExtractRatingPoint synthesizes the single per-run rating observation,
// stamped with now. The vendor's rating time series is unreliable, so the
// stats block is sampled instead. Returns nil when the record carries
// neither a rating nor a review count.
func ExtractRatingPoint(rec Product, now time.Time) *storage.RatingPoint {
	point := storage.RatingPoint{TS: now}

	if rating, ok := DecodeRating(rec.Stats.RatingRaw()); ok {
		point.Rating = decimal.NullDecimal{Decimal: rating, Valid: true}
	}
	if rc, ok := DecodeInt(rec.Stats.ReviewCountRaw()); ok {
		point.ReviewCount = sql.NullInt64{Int64: rc, Valid: true}
	}

	if !point.Rating.Valid && !point.ReviewCount.Valid {
		return nil
	}
	return &point
}
