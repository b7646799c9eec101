package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httperr "github.com/pricelens-lab/pricelens/internal/core/errors"
	"github.com/pricelens-lab/pricelens/internal/core/storage"
)

// RegisterRoutes registers the catalog read API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/products", s.HandleListProducts)
	r.GET("/products/:asin", s.HandleGetProduct)
	r.GET("/products/:asin/history", s.HandleGetHistory)
}

// HandleListProducts handles GET /products.
// Query parameters: min_rating, max_price, sort_by, order, page, page_size.
func (s *Service) HandleListProducts(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	page, err := s.ListProducts(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid listing query",
				Details:   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list products",
		})
		return
	}

	c.JSON(http.StatusOK, page)
}

// HandleGetProduct handles GET /products/:asin.
func (s *Service) HandleGetProduct(c *gin.Context) {
	asin := c.Param("asin")

	view, err := s.GetProduct(c.Request.Context(), asin)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpProductNotFoundError,
				Message:   "ASIN not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to fetch product",
		})
		return
	}

	c.JSON(http.StatusOK, view)
}

// HandleGetHistory handles GET /products/:asin/history.
// Query parameters: limit (default 2000, max 20000).
func (s *Service) HandleGetHistory(c *gin.Context) {
	asin := c.Param("asin")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid limit parameter",
				Details:   err.Error(),
			})
			return
		}
		limit = parsed
	}

	history, err := s.GetHistory(c.Request.Context(), asin, limit)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid history query",
				Details:   err.Error(),
			})
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpProductNotFoundError,
				Message:   "ASIN not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to fetch history",
			})
		}
		return
	}

	c.JSON(http.StatusOK, history)
}
