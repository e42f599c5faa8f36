package domain

import "time"

// TransactionType is the direction of a credit movement.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Valid reports whether t is a known type.
func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

// Delta is the signed effect of amount on a balance.
func (t TransactionType) Delta(amount int64) int64 {
	if t == TransactionDebit {
		return -amount
	}
	return amount
}

// Transaction is a ledger entry of a client's credits.
type Transaction struct {
	ID                     string          `json:"_id"`
	ClientID               string          `json:"clientId"`
	Amount                 int64           `json:"amount"`
	Type                   TransactionType `json:"type"`
	CreditAfterTransaction int64           `json:"creditAfterTransaction"`
	CreatedAt              time.Time       `json:"createdAt"`
}

// TransactionRequest is the body for creating or updating a transaction.
type TransactionRequest struct {
	Amount int64           `json:"amount"`
	Type   TransactionType `json:"type"`
}

// Validate checks the amount and type.
func (r *TransactionRequest) Validate() error {
	if r.Amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if !r.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "must be credit or debit"}
	}
	return nil
}

// AddCredits returns balance+delta, or a validation error when the result
// does not fit in an int64.
func AddCredits(balance, delta int64) (int64, error) {
	sum := balance + delta
	if (delta > 0 && sum < balance) || (delta < 0 && sum > balance) {
		return 0, &ErrValidation{Field: "amount", Message: "credit balance out of range"}
	}
	return sum, nil
}
