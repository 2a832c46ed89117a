// internal/loans/service.go
package loans

import (
	"context"
	"math"
	"time"

	"credit-approval/internal/common/logger"
	"credit-approval/internal/common/metrics"
	"credit-approval/internal/credit"
	"credit-approval/internal/models"
)

// CustomerStore is the persistence surface the service needs for customers.
type CustomerStore interface {
	Create(ctx context.Context, customer models.Customer) (int64, error)
	Get(ctx context.Context, customerID int64) (models.Customer, error)
}

// LoanStore is the persistence surface amongst loans, including the
// transactional insert that keeps current_debt consistent.
type LoanStore interface {
	Get(ctx context.Context, loanID int64) (models.Loan, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Loan, error)
	CreateWithDebtIncrement(ctx context.Context, loan models.Loan, debtIncrement float64) (int64, error)
}

// Clock supplies the evaluation instant, injectable for deterministic tests.
type Clock func() time.Time

const approvedLimitGranularity = 100000

// Origination messages returned to callers. Rejections are business
// outcomes, not errors.
const (
	MsgApproved     = "Loan approved and created successfully"
	MsgOverutilized = "Loan not approved due to overutilized credit limit"
	MsgEMIBurden    = "Loan not approved due to existing EMI burden exceeding 50% of salary"
	MsgLowScore     = "Loan not approved due to low credit score"
)

// Service implements registration, eligibility checks, loan origination and
// the read views over customers and loans.
type Service struct {
	customers CustomerStore
	loans     LoanStore
	cache     *ViewCache
	clock     Clock
	logger    logger.Logger
}

// NewService wires the service. cache may be nil to disable response caching;
// clock may be nil to use wall time.
func NewService(customers CustomerStore, loans LoanStore, cache *ViewCache, clock Clock, log logger.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		customers: customers,
		loans:     loans,
		cache:     cache,
		clock:     clock,
		logger:    log.WithFields(map[string]interface{}{"component": "loan-service"}),
	}
}

// RegisterRequest carries the fields needed to enroll a new customer.
type RegisterRequest struct {
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Age           int     `json:"age"`
	MonthlyIncome float64 `json:"monthly_income"`
	PhoneNumber   string  `json:"phone_number"`
}

// RegisterResponse echoes the enrolled customer with its derived limit.
type RegisterResponse struct {
	CustomerID    int64   `json:"customer_id"`
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	MonthlyIncome float64 `json:"monthly_income"`
	ApprovedLimit float64 `json:"approved_limit"`
	PhoneNumber   string  `json:"phone_number"`
}

// Register enrolls a customer. The approved limit is 36x monthly income
// rounded to the nearest lakh, and debt starts at zero.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	customer := models.Customer{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Age:           req.Age,
		PhoneNumber:   req.PhoneNumber,
		MonthlySalary: req.MonthlyIncome,
		ApprovedLimit: approvedLimit(req.MonthlyIncome),
		CurrentDebt:   0,
	}

	id, err := s.customers.Create(ctx, customer)
	if err != nil {
		return RegisterResponse{}, err
	}
	customer.CustomerID = id

	metrics.CustomersRegisteredTotal.Inc()
	s.logger.Info("customer registered", map[string]interface{}{
		"customer_id":    id,
		"approved_limit": customer.ApprovedLimit,
	})

	return RegisterResponse{
		CustomerID:    id,
		Name:          customer.FullName(),
		Age:           customer.Age,
		MonthlyIncome: customer.MonthlySalary,
		ApprovedLimit: customer.ApprovedLimit,
		PhoneNumber:   customer.PhoneNumber,
	}, nil
}

// CheckEligibility recomputes the credit score from current state and runs
// the approval pipeline. Nothing is persisted or cached.
func (s *Service) CheckEligibility(ctx context.Context, customerID int64, amount, interestRate float64, tenure int) (credit.Eligibility, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return credit.Eligibility{}, err
	}
	existing, err := s.loans.ListByCustomer(ctx, customerID)
	if err != nil {
		return credit.Eligibility{}, err
	}

	result := credit.Evaluate(customer, existing, amount, interestRate, tenure, s.clock())
	recordEligibility(result)
	return result, nil
}

// OriginationResult is the outcome of a CreateLoan call. LoanID is nil on
// rejection.
type OriginationResult struct {
	LoanID             *int64  `json:"loan_id"`
	CustomerID         int64   `json:"customer_id"`
	Approved           bool    `json:"loan_approved"`
	Message            string  `json:"message"`
	MonthlyInstallment float64 `json:"monthly_installment"`
}

// CreateLoan runs the eligibility pipeline and, on approval, persists the
// loan and raises the customer's debt in one transaction. Rejections return
// a result with Approved false, not an error.
func (s *Service) CreateLoan(ctx context.Context, customerID int64, amount, interestRate float64, tenure int) (OriginationResult, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return OriginationResult{}, err
	}
	existing, err := s.loans.ListByCustomer(ctx, customerID)
	if err != nil {
		return OriginationResult{}, err
	}

	now := s.clock()
	eligibility := credit.Evaluate(customer, existing, amount, interestRate, tenure, now)
	recordEligibility(eligibility)

	if !eligibility.Approved {
		// A rejected origination carries no installment, even when the
		// evaluation computed one.
		return OriginationResult{
			CustomerID: customerID,
			Approved:   false,
			Message:    rejectionMessage(eligibility.Reason),
		}, nil
	}

	loan := models.Loan{
		CustomerID:       customerID,
		Amount:           amount,
		Tenure:           tenure,
		InterestRate:     eligibility.CorrectedInterestRate,
		MonthlyRepayment: eligibility.MonthlyInstallment,
		EMIsPaidOnTime:   0,
		StartDate:        now,
		EndDate:          now.AddDate(0, tenure, 0),
	}

	// The debt increase records the whole-unit principal, matching how
	// ingestion-sourced balances are kept.
	loanID, err := s.loans.CreateWithDebtIncrement(ctx, loan, float64(int64(amount)))
	if err != nil {
		return OriginationResult{}, err
	}

	if s.cache != nil {
		s.cache.InvalidateCustomerLoans(ctx, customerID)
	}

	metrics.LoansCreatedTotal.Inc()
	s.logger.Info("loan created", map[string]interface{}{
		"loan_id":     loanID,
		"customer_id": customerID,
		"amount":      amount,
		"rate":        loan.InterestRate,
		"tenure":      tenure,
	})

	return OriginationResult{
		LoanID:             &loanID,
		CustomerID:         customerID,
		Approved:           true,
		Message:            MsgApproved,
		MonthlyInstallment: eligibility.MonthlyInstallment,
	}, nil
}

// LoanView is the single-loan projection returned by ViewLoan.
type LoanView struct {
	LoanID             int64                  `json:"loan_id"`
	Customer           models.CustomerSummary `json:"customer"`
	Amount             float64                `json:"loan_amount"`
	InterestRate       float64                `json:"interest_rate"`
	MonthlyInstallment float64                `json:"monthly_installment"`
	Tenure             int                    `json:"tenure"`
}

// ViewLoan returns a loan joined with a summary of its customer.
func (s *Service) ViewLoan(ctx context.Context, loanID int64) (LoanView, error) {
	if s.cache != nil {
		if view, ok := s.cache.GetLoanView(ctx, loanID); ok {
			return view, nil
		}
	}

	loan, err := s.loans.Get(ctx, loanID)
	if err != nil {
		return LoanView{}, err
	}
	customer, err := s.customers.Get(ctx, loan.CustomerID)
	if err != nil {
		return LoanView{}, err
	}

	view := LoanView{
		LoanID:             loan.LoanID,
		Customer:           customer.Summary(),
		Amount:             loan.Amount,
		InterestRate:       loan.InterestRate,
		MonthlyInstallment: loan.MonthlyRepayment,
		Tenure:             loan.Tenure,
	}
	if s.cache != nil {
		s.cache.SetLoanView(ctx, view)
	}
	return view, nil
}

// LoanListItem is one row of the per-customer listing.
type LoanListItem struct {
	LoanID             int64   `json:"loan_id"`
	Amount             float64 `json:"loan_amount"`
	InterestRate       float64 `json:"interest_rate"`
	MonthlyInstallment float64 `json:"monthly_installment"`
	RepaymentsLeft     int     `json:"repayments_left"`
}

// ViewLoansByCustomer lists a customer's loans with the remaining repayment
// count per loan. An existing customer with no loans yields an empty list; an
// unknown customer is a not-found error.
func (s *Service) ViewLoansByCustomer(ctx context.Context, customerID int64) ([]LoanListItem, error) {
	if s.cache != nil {
		if items, ok := s.cache.GetCustomerLoans(ctx, customerID); ok {
			return items, nil
		}
	}

	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	loanList, err := s.loans.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	items := make([]LoanListItem, 0, len(loanList))
	for _, loan := range loanList {
		items = append(items, LoanListItem{
			LoanID:             loan.LoanID,
			Amount:             loan.Amount,
			InterestRate:       loan.InterestRate,
			MonthlyInstallment: loan.MonthlyRepayment,
			RepaymentsLeft:     loan.RepaymentsLeft(),
		})
	}

	if s.cache != nil {
		s.cache.SetCustomerLoans(ctx, customerID, items)
	}
	return items, nil
}

// approvedLimit derives the credit ceiling from monthly income: 36 months of
// salary rounded to the nearest lakh. Exact half-lakh ties round to the even
// lakh.
func approvedLimit(monthlyIncome float64) float64 {
	return math.RoundToEven(36*monthlyIncome/approvedLimitGranularity) * approvedLimitGranularity
}

func rejectionMessage(reason string) string {
	switch reason {
	case credit.ReasonOverutilized:
		return MsgOverutilized
	case credit.ReasonEMIBurden:
		return MsgEMIBurden
	default:
		return MsgLowScore
	}
}

func recordEligibility(result credit.Eligibility) {
	metrics.CreditScoreDistribution.Observe(result.CreditScore)

	outcome := metrics.OutcomeApproved
	if !result.Approved {
		switch result.Reason {
		case credit.ReasonOverutilized:
			outcome = metrics.OutcomeOverutilized
		case credit.ReasonEMIBurden:
			outcome = metrics.OutcomeEMIBurden
		case credit.ReasonRateBelowMid, credit.ReasonRateBelowLower:
			outcome = metrics.OutcomeLowRateInBand
		default:
			outcome = metrics.OutcomeLowScore
		}
	}
	metrics.EligibilityChecksTotal.WithLabelValues(outcome).Inc()
}
