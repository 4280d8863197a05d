package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TypeDebit  TransactionType = "DEBIT"
	TypeCredit TransactionType = "CREDIT"
)

// TransactionStatus is the settlement state reported by the statement API.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
	StatusPending TransactionStatus = "PENDING"
)

// Transaction is a read-only row from the statement API.
type Transaction struct {
	Timestamp   time.Time         `json:"timestamp"`
	Name        string            `json:"name"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
}

// DisplayKey identifies a row for rendering. The API issues no id, so two
// transactions with the same timestamp and name collide.
func (t Transaction) DisplayKey() string {
	return t.Timestamp.Format(time.RFC3339Nano) + "|" + t.Name
}

// BalanceData is the reconciled end balance.
type BalanceData struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// PaginationMetadata is computed by the API and trusted for page bounds.
type PaginationMetadata struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// HasPrevious reports whether a page before the current one exists.
func (m PaginationMetadata) HasPrevious() bool {
	return m.CurrentPage > 1
}

// HasNext reports whether a page after the current one exists.
func (m PaginationMetadata) HasNext() bool {
	return m.CurrentPage < m.TotalPages
}

// IssuesData is one page of non-successful transactions.
type IssuesData struct {
	Transactions []Transaction     `json:"transactions"`
	Metadata     PaginationMetadata `json:"metadata"`
}

// Empty reports whether the API found no issues at all.
func (d IssuesData) Empty() bool {
	return d.Metadata.TotalItems == 0
}

// Envelope wraps every statement API response. Data is only set when Status is true.
type Envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}
