package keepa

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Epoch is the vendor's time origin: all history timestamps are integer
// minutes elapsed since 2011-01-01T00:00:00Z.
var Epoch = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
	five    = decimal.NewFromInt(5)
)

// MinutesToTime converts a vendor epoch-minute value to a UTC timestamp.
func MinutesToTime(minute int64) time.Time {
	return Epoch.Add(time.Duration(minute) * time.Minute)
}

// ParseMinute parses the timestamp half of an interleaved pair. Unlike the
// value decoders it returns an error: a point without a valid timestamp
// cannot be stored at all.
func ParseMinute(raw json.Number) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty minute value")
	}
	m, err := raw.Int64()
	if err != nil {
		return 0, fmt.Errorf("parse minute %q: %w", raw, err)
	}
	return m, nil
}

// DecodePrice decodes a vendor price integer (hundredths of a currency
// unit) to a 2-decimal value. Null, non-numeric, zero and negative inputs
// are the vendor's "no data" sentinel and report ok=false, not an error.
func DecodePrice(raw json.Number) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d.Div(hundred).Round(2), true
}

// DecodeRating decodes a vendor rating. The vendor scale is ambiguous
// (0-5 or 0-50); any value above 5 is treated as tenths and divided by 10.
// Values that still fall outside (0, 5] after correction report ok=false.
func DecodeRating(raw json.Number) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	if d.GreaterThan(five) {
		d = d.Div(ten)
	}
	if !d.IsPositive() || d.GreaterThan(five) {
		return decimal.Decimal{}, false
	}
	return d.Round(2), true
}

// DecodeInt coerces a vendor numeric to int64. Floats are truncated;
// null and non-numeric inputs report ok=false.
func DecodeInt(raw json.Number) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	if v, err := raw.Int64(); err == nil {
		return v, true
	}
	f, err := raw.Float64()
	if err != nil {
		return 0, false
	}
	return int64(f), true
}
