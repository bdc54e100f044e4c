package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionState string

const (
	StateInitial  TransactionState = "initial"
	StatePending  TransactionState = "pending"
	StateSettled  TransactionState = "settled"
	StateFailed   TransactionState = "failed"
	StateCanceled TransactionState = "canceled"
)

// IsTerminal reports whether no further transition is defined out of s.
func (s TransactionState) IsTerminal() bool {
	switch s {
	case StateSettled, StateFailed, StateCanceled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows moving from `from`
// to `to`. The settled -> settled self-transition is allowed so that duplicate
// settlement notifications stay idempotent.
func CanTransition(from, to TransactionState) bool {
	switch to {
	case StatePending:
		return from == StateInitial
	case StateSettled:
		return from == StatePending || from == StateSettled
	case StateFailed:
		return from == StateInitial || from == StatePending
	case StateCanceled:
		return from == StateInitial || from == StatePending
	}
	return false
}

// MetaVersion is the schema version stamped onto every persisted metadata
// record, so future readers can tell the layouts apart.
const MetaVersion = 1

// TransactionMeta is the structured metadata record persisted alongside a
// transaction. Gateway request/response logs stored here are already redacted.
type TransactionMeta struct {
	Version       int    `json:"version"`
	Ctrl          string `json:"ctrl,omitempty"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
	ReturnCode    string `json:"return_code,omitempty"`
	ReturnMessage string `json:"return_message,omitempty"`
	RequestLog    string `json:"_request,omitempty"`
	ResponseLog   string `json:"_response,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Document carries the billing document fields the gateway order description
// is derived from. The document itself is owned by the host billing system.
type Document struct {
	Kind       string          `json:"kind"`
	Series     string          `json:"series"`
	Number     string          `json:"number"`
	TaxPercent decimal.Decimal `json:"sales_tax_percent"`
}

type Transaction struct {
	ID              string           `json:"id"`
	PaymentMethodID string           `json:"payment_method_id"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	State           TransactionState `json:"state"`
	Meta            TransactionMeta  `json:"meta"`
	FailCode        string           `json:"fail_code,omitempty"`
	FailReason      string           `json:"fail_reason,omitempty"`
	Document        *Document        `json:"document,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
