package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/chatshop-backend/internal/service"
)

type OrderHandler struct {
	svc service.OrderService
}

func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func orderIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil
}

func actor(c echo.Context) (string, bool) {
	uid, _ := c.Get("uid").(string)
	op, _ := c.Get("operator").(bool)
	return uid, op
}

func mapOrderError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "order not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, NewErrorResponse("invalid_transition", err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "operation failed"))
	}
}

func (h *OrderHandler) Get(c echo.Context) error {
	uid, op := actor(c)
	id, ok := orderIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	o, err := h.svc.Get(c.Request().Context(), id, uid, op)
	if err != nil {
		return mapOrderError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, _ := actor(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch orders"))
	}
	resp := make([]OrderResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toOrderResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	uid, op := actor(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := orderIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	o, err := h.svc.Cancel(c.Request().Context(), id, uid, op)
	if err != nil {
		return mapOrderError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) Ship(c echo.Context) error {
	uid, op := actor(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := orderIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	o, err := h.svc.Ship(c.Request().Context(), id, uid, op)
	if err != nil {
		return mapOrderError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

type OrderEventResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	ActorUID  string `json:"actorUid"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"createdAt"`
}

func (h *OrderHandler) Events(c echo.Context) error {
	id, ok := orderIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	events, err := h.svc.Events(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch events"))
	}
	resp := make([]OrderEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, OrderEventResponse{
			From:      string(e.FromStatus),
			To:        string(e.ToStatus),
			ActorUID:  e.ActorUID,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

type OrderStatusResponse struct {
	OrderID     uint64  `json:"orderId"`
	Status      string  `json:"status"`
	TotalAmount string  `json:"totalAmount"`
	Currency    string  `json:"currency"`
	CreatedAt   string  `json:"createdAt"`
	ExpiresAt   string  `json:"expiresAt"`
	PaidAt      *string `json:"paidAt,omitempty"`
}

// Status is the public read-only companion to the payment webhook: the
// gateway polls it by payment address.
func (h *OrderHandler) Status(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "address is required"))
	}
	o, err := h.svc.FindByPaymentAddress(c.Request().Context(), address)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no order for address"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "lookup failed"))
	}
	var paidAt *string
	if o.PaidAt != nil {
		v := o.PaidAt.Format(time.RFC3339)
		paidAt = &v
	}
	return c.JSON(http.StatusOK, OrderStatusResponse{
		OrderID:     o.ID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.Round(2).StringFixed(2),
		Currency:    o.Currency,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		ExpiresAt:   o.ExpiresAt.Format(time.RFC3339),
		PaidAt:      paidAt,
	})
}
