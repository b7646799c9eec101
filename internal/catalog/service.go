package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery marks request validation failures that should surface as
// 400 rather than 500.
var ErrInvalidQuery = errors.New("invalid catalog query")

// Service serves the read-side product catalog for one platform. It only
// ever selects; the sync pipeline is the sole writer.
type Service struct {
	store        Store
	platformName string
}

// NewService creates a catalog service scoped to platformName.
func NewService(store Store, platformName string) *Service {
	if store == nil {
		panic("catalog: store must not be nil")
	}
	if platformName == "" {
		panic("catalog: platform name must not be empty")
	}
	return &Service{store: store, platformName: platformName}
}

// ListRequest is the raw listing query as bound from the request.
type ListRequest struct {
	MinRating *float64 `form:"min_rating"`
	MaxPrice  *float64 `form:"max_price"`
	SortBy    string   `form:"sort_by"`
	Order     string   `form:"order"`
	Page      int      `form:"page"`
	PageSize  int      `form:"page_size"`
}

// ListProducts validates and normalizes the request, then returns one page.
func (s *Service) ListProducts(ctx context.Context, req ListRequest) (ProductsPage, error) {
	q, err := normalizeListRequest(req)
	if err != nil {
		return ProductsPage{}, err
	}
	return s.store.ListProducts(ctx, s.platformName, q)
}

// GetProduct returns one product or storage.ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, asin string) (ProductView, error) {
	return s.store.GetProduct(ctx, s.platformName, asin)
}

// GetHistory returns the stored time series for one product.
func (s *Service) GetHistory(ctx context.Context, asin string, limit int) (ProductHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return ProductHistory{}, fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInvalidQuery, limit, maxHistoryLimit)
	}
	return s.store.GetHistory(ctx, s.platformName, asin, limit)
}

func normalizeListRequest(req ListRequest) (ListQuery, error) {
	q := ListQuery{
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		return ListQuery{}, fmt.Errorf("%w: page_size %d exceeds maximum %d", ErrInvalidQuery, q.PageSize, maxPageSize)
	}

	// Zero and negative thresholds mean "no filter", matching the sentinel
	// discipline of the write side.
	if req.MinRating != nil && *req.MinRating > 0 {
		q.MinRating = req.MinRating
	}
	if req.MaxPrice != nil && *req.MaxPrice > 0 {
		q.MaxPrice = req.MaxPrice
	}

	switch req.SortBy {
	case SortByRating, SortByPrice:
		q.SortBy = req.SortBy
	case "":
		// unsorted, stable id order
	default:
		return ListQuery{}, fmt.Errorf("%w: sort_by must be %q or %q", ErrInvalidQuery, SortByRating, SortByPrice)
	}

	q.Order = strings.ToLower(req.Order)
	if q.Order != "desc" {
		q.Order = "asc"
	}

	return q, nil
}
