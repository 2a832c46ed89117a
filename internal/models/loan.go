// internal/models/loan.go
package models

import "time"

// Loan is a disbursed loan. Immutable after creation; EMIsPaidOnTime comes
// either from bulk ingestion or stays 0 for newly originated loans.
type Loan struct {
	LoanID           int64     `json:"loan_id"`
	CustomerID       int64     `json:"customer_id"`
	Amount           float64   `json:"loan_amount"`
	Tenure           int       `json:"tenure"`
	InterestRate     float64   `json:"interest_rate"`
	MonthlyRepayment float64   `json:"monthly_repayment"`
	EMIsPaidOnTime   int       `json:"emis_paid_on_time"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

// RepaymentsLeft is the count of EMIs still owed.
func (l Loan) RepaymentsLeft() int {
	left := l.Tenure - l.EMIsPaidOnTime
	if left < 0 {
		return 0
	}
	return left
}
