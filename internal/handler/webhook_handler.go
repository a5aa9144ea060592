package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/chatshop-backend/internal/service"
	"github.com/shinyyama/chatshop-backend/internal/webhook"
)

type WebhookHandler struct {
	payments service.PaymentService
	limiter  *webhook.RateLimiter
	secret   string
	maxBody  int64
}

func NewWebhookHandler(payments service.PaymentService, limiter *webhook.RateLimiter, secret string, maxBody int64) *WebhookHandler {
	if maxBody <= 0 {
		maxBody = 16 * 1024
	}
	return &WebhookHandler{payments: payments, limiter: limiter, secret: secret, maxBody: maxBody}
}

type WebhookResponse struct {
	Status  string `json:"status"`
	OrderID uint64 `json:"orderId,omitempty"`
}

// Confirm handles payment gateway callbacks. The checks run cheapest
// first: rate limit, size, signature, then payload parsing, so a noisy
// or hostile sender is rejected before any database work.
func (h *WebhookHandler) Confirm(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, NewErrorResponse("rate_limited", "too many requests"))
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxBody+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable body"))
	}
	if int64(len(body)) > h.maxBody {
		return c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse("payload_too_large", "body exceeds limit"))
	}

	if !webhook.VerifySignature(body, c.Request().Header.Get("X-Signature"), []byte(h.secret)) {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("invalid_signature", "signature verification failed"))
	}

	ev, err := webhook.ParseEvent(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "malformed payload"))
	}

	outcome, err := h.payments.Confirm(c.Request().Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownAsset),
			errors.Is(err, service.ErrInsufficientConfirmations),
			errors.Is(err, service.ErrUnderpayment),
			errors.Is(err, service.ErrPrecisionExceeded),
			errors.Is(err, service.ErrCurrencyMismatch):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("rejected", err.Error()))
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no order for address"))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "payment processing failed"))
		}
	}
	return c.JSON(http.StatusOK, WebhookResponse{Status: string(outcome.Status), OrderID: outcome.OrderID})
}
