package models

import "encoding/json"

// Loan represents a stored loan calculation
type Loan struct {
	ID           int64      `json:"id"`
	Amount       float64    `json:"amount"`
	InterestRate float64    `json:"interestRate"`
	Term         int        `json:"term"`
	ExtraPayment float64    `json:"extraPayment"`
	Result       LoanResult `json:"result"`
	Timestamp    string     `json:"timestamp"` // UTC, set on insert
}

// LoanResult holds the client-computed amortization outcome
type LoanResult struct {
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalInterest  float64 `json:"totalInterest"`
	PayoffMonths   int     `json:"payoffMonths"`
	// Schedule is opaque and kept as raw JSON
	Schedule json.RawMessage `json:"schedule"`
}
