package keepa

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.keepa.com"

// Client fetches product records from the vendor's batched product endpoint.
// It does not retry or rate-limit; callers treat a failed fetch as an opaque
// error for that batch.
type Client struct {
	apiKey string
	domain int
	http   *resty.Client
}

// NewClient creates a vendor client. domain selects the marketplace
// (1 = amazon.com).
func NewClient(apiKey string, domain int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		domain: domain,
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(timeout),
	}
}

// FetchProducts retrieves the product records for up to one batch of ASINs.
// stats and buybox are the vendor's integer feature flags.
func (c *Client) FetchProducts(ctx context.Context, asins []string, stats, buybox int) ([]Product, error) {
	if len(asins) == 0 {
		return nil, nil
	}

	var payload Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":    c.apiKey,
			"domain": strconv.Itoa(c.domain),
			"asin":   strings.Join(asins, ","),
			"stats":  strconv.Itoa(stats),
			"buybox": strconv.Itoa(buybox),
		}).
		SetResult(&payload).
		Get("/product")
	if err != nil {
		return nil, fmt.Errorf("vendor fetch: %w", err)
	}
	if resp.IsError() {
		// Never echo the request URL: it carries the API key.
		return nil, fmt.Errorf("vendor fetch: status %d", resp.StatusCode())
	}

	return payload.Records(), nil
}
