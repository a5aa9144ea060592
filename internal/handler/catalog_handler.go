package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shinyyama/chatshop-backend/internal/pricing"
	"github.com/shinyyama/chatshop-backend/internal/repository"
	"github.com/shinyyama/chatshop-backend/internal/service"
)

type CatalogHandler struct {
	catalog  repository.CatalogRepository
	items    repository.ItemRepository
	checkout service.CheckoutService
}

func NewCatalogHandler(catalog repository.CatalogRepository, items repository.ItemRepository, checkout service.CheckoutService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, items: items, checkout: checkout}
}

type SubcategoryResponse struct {
	ID         uint64 `json:"id"`
	CategoryID uint64 `json:"categoryId"`
	Name       string `json:"name"`
	BasePrice  string `json:"basePrice"`
	Currency   string `json:"currency"`
	InStock    int64  `json:"inStock"`
}

func (h *CatalogHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	list, total, err := h.catalog.ListSubcategories(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch catalog"))
	}
	resp := make([]SubcategoryResponse, 0, len(list))
	for _, s := range list {
		unsold, err := h.items.CountUnsold(c.Request().Context(), s.CategoryID, s.ID)
		if err != nil {
			unsold = 0
		}
		resp = append(resp, toSubcategoryResponse(&s, unsold))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": resp,
		"total": total,
	})
}

func toSubcategoryResponse(s *model.Subcategory, unsold int64) SubcategoryResponse {
	return SubcategoryResponse{
		ID:         s.ID,
		CategoryID: s.CategoryID,
		Name:       s.Name,
		BasePrice:  s.BasePrice.Round(2).StringFixed(2),
		Currency:   s.Currency,
		InStock:    unsold,
	}
}

type QuoteResponse struct {
	Quantity int            `json:"quantity"`
	Total    string         `json:"total"`
	AvgUnit  string         `json:"avgUnit"`
	Currency string         `json:"currency"`
	Rendered string         `json:"rendered"`
	Segments []QuoteSegment `json:"segments"`
}

type QuoteSegment struct {
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Total     string `json:"total"`
}

// Quote prices a quantity against a stock pool without reserving anything.
func (h *CatalogHandler) Quote(c echo.Context) error {
	categoryID, err1 := strconv.ParseUint(c.Param("categoryId"), 10, 64)
	subcategoryID, err2 := strconv.ParseUint(c.Param("subcategoryId"), 10, 64)
	qty, err3 := strconv.Atoi(c.QueryParam("qty"))
	if err1 != nil || err2 != nil || err3 != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid pool id or quantity"))
	}
	b, sub, err := h.checkout.Quote(c.Request().Context(), categoryID, subcategoryID, qty)
	if err != nil {
		switch {
		case err == service.ErrNotFound:
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "unknown pool"))
		default:
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
	}
	resp := QuoteResponse{
		Quantity: b.Quantity,
		Total:    b.Total.Round(2).StringFixed(2),
		AvgUnit:  b.AverageUnit().StringFixed(2),
		Currency: sub.Currency,
		Rendered: b.Format(pricing.Symbol(sub.Currency)),
	}
	for _, seg := range b.Segments {
		resp.Segments = append(resp.Segments, QuoteSegment{
			Quantity:  seg.Quantity,
			UnitPrice: seg.UnitPrice.Round(2).StringFixed(2),
			Total:     seg.Total().Round(2).StringFixed(2),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
