// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"credit-approval/internal/common/logger"
	"credit-approval/internal/credit"
	"credit-approval/internal/loans"
)

// LoanService is the application surface the HTTP layer drives.
type LoanService interface {
	Register(ctx context.Context, req loans.RegisterRequest) (loans.RegisterResponse, error)
	CheckEligibility(ctx context.Context, customerID int64, amount, interestRate float64, tenure int) (credit.Eligibility, error)
	CreateLoan(ctx context.Context, customerID int64, amount, interestRate float64, tenure int) (loans.OriginationResult, error)
	ViewLoan(ctx context.Context, loanID int64) (loans.LoanView, error)
	ViewLoansByCustomer(ctx context.Context, customerID int64) ([]loans.LoanListItem, error)
}

// Handler parses requests, delegates to the service and writes responses.
type Handler struct {
	service LoanService
	logger  logger.Logger
}

func NewHandler(service LoanService, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log.WithFields(map[string]interface{}{"component": "http-handler"}),
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req loans.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, "invalid JSON body")
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Age <= 0 ||
		req.MonthlyIncome <= 0 || req.PhoneNumber == "" {
		respondValidationError(w, "first_name, last_name, age, monthly_income and phone_number are required")
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logError(r, "register failed", err)
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

// loanRequest is the shared body of check-eligibility and create-loan.
type loanRequest struct {
	CustomerID   int64   `json:"customer_id"`
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	Tenure       int     `json:"tenure"`
}

func (req loanRequest) validate() bool {
	return req.CustomerID > 0 && req.LoanAmount > 0 && req.InterestRate > 0 && req.Tenure > 0
}

func (h *Handler) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, "invalid JSON body")
		return
	}
	if !req.validate() {
		respondValidationError(w, "customer_id, loan_amount, interest_rate and tenure are required")
		return
	}

	result, err := h.service.CheckEligibility(r.Context(), req.CustomerID, req.LoanAmount, req.InterestRate, req.Tenure)
	if err != nil {
		h.logError(r, "eligibility check failed", err)
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, "invalid JSON body")
		return
	}
	if !req.validate() {
		respondValidationError(w, "customer_id, loan_amount, interest_rate and tenure are required")
		return
	}

	result, err := h.service.CreateLoan(r.Context(), req.CustomerID, req.LoanAmount, req.InterestRate, req.Tenure)
	if err != nil {
		h.logError(r, "loan creation failed", err)
		respondWithError(w, err)
		return
	}

	// A rejection is a successful evaluation, not a resource creation.
	status := http.StatusOK
	if result.Approved {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, result)
}

func (h *Handler) handleViewLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		respondValidationError(w, "loan id must be an integer")
		return
	}

	view, err := h.service.ViewLoan(r.Context(), loanID)
	if err != nil {
		h.logError(r, "loan view failed", err)
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) handleViewLoansByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		respondValidationError(w, "customer id must be an integer")
		return
	}

	items, err := h.service.ViewLoansByCustomer(r.Context(), customerID)
	if err != nil {
		h.logError(r, "loan listing failed", err)
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WithError(err).Error(msg, map[string]interface{}{
		"path":       r.URL.Path,
		"request_id": RequestIDFromContext(r.Context()),
	})
}
