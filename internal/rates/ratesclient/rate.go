package ratesclient

import "github.com/shopspring/decimal"

// RateModel is the rates service response body.
type RateModel struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}
