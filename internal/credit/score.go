// internal/credit/score.go
package credit

import (
	"math"
	"time"

	"credit-approval/internal/models"
)

// Component weights for the credit score. The four components sum to at most
// 100: on-time repayment (40), loan count (15), recent activity (15), volume (30).
const (
	onTimeWeight       = 40.0
	loanCountStep      = 1.5
	loanCountBase      = 10
	recentActivityBase = 15.0
	recentActivityStep = 3.0
	volumeWeight       = 30.0

	newCustomerScore = 50.0
)

// Score computes the 0-100 credit score for a customer from their loan
// history. now supplies the wall clock for the recent-activity component so
// callers can pin it in tests. The score is never stored; it is recomputed on
// every evaluation.
func Score(customer models.Customer, loans []models.Loan, now time.Time) float64 {
	if customer.CurrentDebt > customer.ApprovedLimit {
		return 0 // Overutilization
	}

	if len(loans) == 0 {
		return newCustomerScore // New customer
	}

	total := onTimeScore(loans) +
		loanCountScore(loans) +
		recentActivityScore(loans, now) +
		volumeScore(customer)

	return round2(clamp(total, 0, 100))
}

// onTimeScore rewards the overall ratio of EMIs paid on time across all loans.
func onTimeScore(loans []models.Loan) float64 {
	emisPaid := 0
	emisTotal := 0
	for _, l := range loans {
		emisPaid += l.EMIsPaidOnTime
		emisTotal += l.Tenure
	}
	if emisTotal == 0 {
		return 0
	}
	return float64(emisPaid) / float64(emisTotal) * onTimeWeight
}

// loanCountScore penalizes a deep loan history; zero once 10+ loans exist.
func loanCountScore(loans []models.Loan) float64 {
	remaining := loanCountBase - len(loans)
	if remaining < 0 {
		remaining = 0
	}
	return float64(remaining) * loanCountStep
}

// recentActivityScore penalizes loans started in the current calendar year.
func recentActivityScore(loans []models.Loan, now time.Time) float64 {
	currentYear := now.Year()
	recent := 0
	for _, l := range loans {
		if l.StartDate.Year() == currentYear {
			recent++
		}
	}
	score := recentActivityBase - float64(recent)*recentActivityStep
	if score < 0 {
		return 0
	}
	return score
}

// volumeScore rewards headroom between current debt and the approved limit.
func volumeScore(customer models.Customer) float64 {
	ratio := 0.0
	if customer.ApprovedLimit != 0 {
		ratio = customer.CurrentDebt / customer.ApprovedLimit
	}
	return (1 - ratio) * volumeWeight
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
