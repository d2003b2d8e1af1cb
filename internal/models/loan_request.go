package models

import "encoding/json"

// CreateLoanRequest is the body accepted by POST /api/loans.
// Pointer fields distinguish a missing value from an explicit zero.
type CreateLoanRequest struct {
	Amount       *float64           `json:"amount" validate:"required,gt=0"`
	InterestRate *float64           `json:"interestRate" validate:"required,gte=0"`
	Term         *int               `json:"term" validate:"required,gt=0"`
	ExtraPayment *float64           `json:"extraPayment" validate:"required,gte=0"`
	Result       *LoanResultRequest `json:"result" validate:"required"`
}

// LoanResultRequest is the nested result object of CreateLoanRequest
type LoanResultRequest struct {
	MonthlyPayment *float64        `json:"monthlyPayment" validate:"required,gte=0"`
	TotalInterest  *float64        `json:"totalInterest" validate:"required,gte=0"`
	PayoffMonths   *int            `json:"payoffMonths" validate:"required,gte=0"`
	Schedule       json.RawMessage `json:"schedule" validate:"required,jsonarray"`
}

// ToLoan converts a validated request into a Loan without id or timestamp.
// It must only be called after validation succeeded.
func (r *CreateLoanRequest) ToLoan() *Loan {
	return &Loan{
		Amount:       *r.Amount,
		InterestRate: *r.InterestRate,
		Term:         *r.Term,
		ExtraPayment: *r.ExtraPayment,
		Result: LoanResult{
			MonthlyPayment: *r.Result.MonthlyPayment,
			TotalInterest:  *r.Result.TotalInterest,
			PayoffMonths:   *r.Result.PayoffMonths,
			Schedule:       r.Result.Schedule,
		},
	}
}
