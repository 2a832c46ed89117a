// internal/credit/eligibility.go
package credit

import (
	"math"
	"time"

	"credit-approval/internal/models"
)

// Rejection reasons carried on Eligibility when Approved is false.
const (
	ReasonOverutilized   = "Overutilized credit limit"
	ReasonEMIBurden      = "Existing EMI burden exceeds 50% of salary"
	ReasonLowScore       = "Credit score too low"
	ReasonVeryLowScore   = "Credit score too low (<=10)"
	ReasonRateBelowMid   = "Interest rate too low for credit score range 30-50"
	ReasonRateBelowLower = "Interest rate too low for credit score range 10-30"
)

// Interest-rate floors per credit-score band.
const (
	midBandRateFloor   = 12.0 // score in (30, 50]
	lowerBandRateFloor = 16.0 // score in (10, 30]

	emiBurdenRatio = 0.5
)

// Eligibility is the outcome of a single evaluation. A rejected evaluation is
// a successful computation, not an error; Reason explains the rejection.
type Eligibility struct {
	CustomerID            int64   `json:"customer_id"`
	Approved              bool    `json:"approval"`
	InterestRate          float64 `json:"interest_rate"`
	CorrectedInterestRate float64 `json:"corrected_interest_rate"`
	Tenure                int     `json:"tenure"`
	MonthlyInstallment    float64 `json:"monthly_installment"`
	Reason                string  `json:"reason,omitempty"`
	CreditScore           float64 `json:"-"`
}

// Evaluate runs the full eligibility pipeline: credit score, interest-rate
// correction, EMI-burden check, installment computation, approval decision.
// existing holds all of the customer's current loans; now pins the wall clock
// for the score's recency component.
func Evaluate(customer models.Customer, existing []models.Loan, amount, rate float64, tenure int, now time.Time) Eligibility {
	result := Eligibility{
		CustomerID:            customer.CustomerID,
		InterestRate:          rate,
		CorrectedInterestRate: rate,
		Tenure:                tenure,
	}

	score := Score(customer, existing, now)
	result.CreditScore = score

	if score == 0 {
		result.Reason = ReasonOverutilized
		return result
	}

	result.CorrectedInterestRate = correctedRate(score, rate)

	totalEMI := 0.0
	for _, l := range existing {
		totalEMI += l.MonthlyRepayment
	}
	if totalEMI > emiBurdenRatio*customer.MonthlySalary {
		result.Reason = ReasonEMIBurden
		return result
	}

	result.MonthlyInstallment = round2(MonthlyInstallment(amount, result.CorrectedInterestRate, tenure))

	switch {
	case score > 50:
		result.Approved = true
	case score > 30:
		if result.CorrectedInterestRate >= midBandRateFloor {
			result.Approved = true
		} else {
			result.Reason = ReasonRateBelowMid
		}
	case score > 10:
		if result.CorrectedInterestRate >= lowerBandRateFloor {
			result.Approved = true
		} else {
			result.Reason = ReasonRateBelowLower
		}
	default:
		result.Reason = ReasonVeryLowScore
	}

	if !result.Approved && result.Reason == "" {
		result.Reason = ReasonLowScore
	}

	return result
}

// correctedRate floors the requested annual rate to the band minimum. Rates
// for scores above 50 or at 10 and below pass through unchanged.
func correctedRate(score, rate float64) float64 {
	switch {
	case score > 50:
		return rate
	case score > 30:
		if rate < midBandRateFloor {
			return midBandRateFloor
		}
	case score > 10:
		if rate < lowerBandRateFloor {
			return lowerBandRateFloor
		}
	}
	return rate
}

// MonthlyInstallment computes the EMI with the standard amortization formula
// M = P*R*(1+R)^N / ((1+R)^N - 1), where R is the monthly rate derived from
// the annual percent rate. A zero rate is degenerate and yields 0 rather than
// dividing by zero.
func MonthlyInstallment(principal, annualRate float64, tenureMonths int) float64 {
	r := annualRate / 1200
	if r == 0 {
		return 0
	}
	pow := math.Pow(1+r, float64(tenureMonths))
	return principal * r * pow / (pow - 1)
}
