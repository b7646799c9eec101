package keepa

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is the body of a multi-product vendor query. The vendor has
// shipped the product list under both "products" and "Products" over time,
// so both spellings are decoded and resolved by Records.
type Response struct {
	ProductsLower []Product `json:"products"`
	ProductsUpper []Product `json:"Products"`
}

// Records returns the product list regardless of which key the vendor used.
func (r *Response) Records() []Product {
	if len(r.ProductsLower) > 0 {
		return r.ProductsLower
	}
	return r.ProductsUpper
}

// Product is one loosely-typed vendor product record. Numeric history values
// stay as json.Number until decoded so a single malformed value never fails
// the whole record.
type Product struct {
	ASIN         string         `json:"asin"`
	Title        string         `json:"title"`
	URL          string         `json:"url"`
	ImageURL     string         `json:"image"`
	Brand        string         `json:"brand"`
	CategoryTree []CategoryNode `json:"categoryTree"`
	Stats        *Stats         `json:"stats"`

	// CSV is the vendor's list-of-series field. Each series is a flat
	// interleaved [minute, value, minute, value, ...] sequence; index 0
	// is the price series.
	CSV []RawSeries `json:"csv"`

	// SalesRanks maps category keys to interleaved [minute, rank, ...]
	// sequences, in document order.
	SalesRanks RankSeriesList `json:"salesRanks"`
}

// CategoryNode is one element of the vendor's category path.
type CategoryNode struct {
	CatID int64  `json:"catId"`
	Name  string `json:"name"`
}

// Stats is the vendor's nested current-state block. The vendor API has
// historically used two field names for the rating, review count and buybox
// price; the accessors resolve the alternates in a fixed order.
type Stats struct {
	Rating       json.Number `json:"rating"`
	ReviewRating json.Number `json:"reviewRating"`
	ReviewCount  json.Number `json:"reviewCount"`
	ReviewsCount json.Number `json:"reviewsCount"`
	BuyBoxPrice  json.Number `json:"buyBoxPrice"`
	BuyboxPrice  json.Number `json:"buyboxPrice"`
}

// RatingRaw returns the first present rating field.
func (s *Stats) RatingRaw() json.Number {
	if s == nil {
		return ""
	}
	if s.Rating != "" {
		return s.Rating
	}
	return s.ReviewRating
}

// ReviewCountRaw returns the first present review-count field.
func (s *Stats) ReviewCountRaw() json.Number {
	if s == nil {
		return ""
	}
	if s.ReviewCount != "" {
		return s.ReviewCount
	}
	return s.ReviewsCount
}

// BuyBoxRaw returns the first present buybox-price field.
func (s *Stats) BuyBoxRaw() json.Number {
	if s == nil {
		return ""
	}
	if s.BuyBoxPrice != "" {
		return s.BuyBoxPrice
	}
	return s.BuyboxPrice
}

// RawSeries is one interleaved vendor time series. null elements decode to
// an empty json.Number and surface later as per-point decode failures.
type RawSeries []json.Number

// PriceSeries returns the vendor price series (csv[0]), or nil when absent.
func (p *Product) PriceSeries() RawSeries {
	if len(p.CSV) == 0 {
		return nil
	}
	return p.CSV[0]
}

// RankSeries is one category's interleaved rank sequence.
type RankSeries struct {
	Category string
	Values   RawSeries
}

// RankSeriesList preserves the document order of the vendor's salesRanks
// object. Go maps would lose it, and the first-key rank policy depends on
// a stable per-record iteration order.
type RankSeriesList []RankSeries

func (l *RankSeriesList) UnmarshalJSON(data []byte) error {
	*l = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("salesRanks: %w", err)
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("salesRanks: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("salesRanks key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("salesRanks key: expected string, got %v", keyTok)
		}

		var values RawSeries
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("salesRanks series %q: %w", key, err)
		}
		*l = append(*l, RankSeries{Category: key, Values: values})
	}

	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("salesRanks: %w", err)
	}
	return nil
}

// First returns the first category series in document order.
func (l RankSeriesList) First() (RankSeries, bool) {
	if len(l) == 0 {
		return RankSeries{}, false
	}
	return l[0], true
}
