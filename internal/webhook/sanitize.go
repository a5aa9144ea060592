package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMalformedPayload = errors.New("malformed payload")

var (
	addressPattern  = regexp.MustCompile(`^[A-Za-z0-9:_-]{1,128}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{2,8}$`)
	txHashPattern   = regexp.MustCompile(`^[A-Za-z0-9]{1,128}$`)
)

// Event is a sanitized payment notification. Optional fields that fail
// validation come back zero-valued; required fields that fail cause an
// ErrMalformedPayload.
type Event struct {
	Address       string
	Amount        decimal.Decimal
	Currency      string
	TxHash        string
	Confirmations int
	InvoiceID     string
}

// ParseEvent decodes and whitelist-sanitizes a raw webhook body. Unknown
// fields are dropped; malformed optional fields are dropped individually
// rather than failing the whole request. Amounts are decoded as
// json.Number so the sender's decimal precision survives intact.
func ParseEvent(raw []byte) (*Event, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := &Event{}

	addr, _ := fields["address"].(string)
	addr = strings.TrimSpace(addr)
	if !addressPattern.MatchString(addr) {
		return nil, fmt.Errorf("%w: missing or invalid address", ErrMalformedPayload)
	}
	ev.Address = addr

	amount, ok := parseAmount(fields["amount"])
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: missing or invalid amount", ErrMalformedPayload)
	}
	ev.Amount = amount

	cur, _ := fields["currency"].(string)
	cur = strings.ToUpper(strings.TrimSpace(cur))
	if !currencyPattern.MatchString(cur) {
		return nil, fmt.Errorf("%w: missing or invalid currency", ErrMalformedPayload)
	}
	ev.Currency = cur

	if h, ok := fields["tx_hash"].(string); ok && txHashPattern.MatchString(h) {
		ev.TxHash = h
	}
	if c, ok := fields["confirmations"].(json.Number); ok {
		if n, err := c.Int64(); err == nil && n >= 0 {
			ev.Confirmations = int(n)
		}
	}
	if inv, ok := fields["invoice_id"].(string); ok && txHashPattern.MatchString(inv) {
		ev.InvoiceID = inv
	}
	return ev, nil
}

func parseAmount(v interface{}) (decimal.Decimal, bool) {
	switch a := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(a.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(a))
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// ExceedsPrecision reports whether the amount carries more significant
// fractional digits than the asset's native precision allows. Trailing
// zeros do not count against the limit.
func ExceedsPrecision(d decimal.Decimal, maxPlaces int32) bool {
	return !d.Equal(d.Round(maxPlaces))
}
