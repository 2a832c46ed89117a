// internal/store/loan_store.go
package store

import (
	"context"
	"database/sql"
	dberrors "errors"
	"fmt"

	"credit-approval/internal/common/errors"
	"credit-approval/internal/common/logger"
	"credit-approval/internal/models"
)

// LoanStore persists loans in PostgreSQL.
type LoanStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewLoanStore(db *sql.DB, log logger.Logger) *LoanStore {
	return &LoanStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "loans"}),
	}
}

// Get looks up a loan by id.
func (s *LoanStore) Get(ctx context.Context, loanID int64) (models.Loan, error) {
	var l models.Loan
	err := s.db.QueryRowContext(ctx, `
		SELECT loan_id, customer_id, loan_amount, tenure, interest_rate,
		       monthly_repayment, emis_paid_on_time, start_date, end_date
		FROM loans
		WHERE loan_id = $1`, loanID).Scan(
		&l.LoanID, &l.CustomerID, &l.Amount, &l.Tenure, &l.InterestRate,
		&l.MonthlyRepayment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
	)
	if err != nil {
		if dberrors.Is(err, sql.ErrNoRows) {
			return models.Loan{}, errors.NewLoanNotFoundError(loanID)
		}
		return models.Loan{}, errors.NewDatabaseQueryFailedError(err)
	}
	return l, nil
}

// ListByCustomer returns all loans owned by a customer, oldest first.
func (s *LoanStore) ListByCustomer(ctx context.Context, customerID int64) ([]models.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT loan_id, customer_id, loan_amount, tenure, interest_rate,
		       monthly_repayment, emis_paid_on_time, start_date, end_date
		FROM loans
		WHERE customer_id = $1
		ORDER BY loan_id`, customerID)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	defer rows.Close()

	loans := []models.Loan{}
	for rows.Next() {
		var l models.Loan
		if err := rows.Scan(
			&l.LoanID, &l.CustomerID, &l.Amount, &l.Tenure, &l.InterestRate,
			&l.MonthlyRepayment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
		); err != nil {
			return nil, errors.NewDatabaseQueryFailedError(err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	return loans, nil
}

// CreateWithDebtIncrement inserts a loan and raises the owning customer's
// current debt in one transaction. The customer row is locked first so
// concurrent originations for the same customer serialize instead of losing
// updates.
func (s *LoanStore) CreateWithDebtIncrement(ctx context.Context, loan models.Loan, debtIncrement float64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewDatabaseTxFailedError(err)
	}
	defer tx.Rollback()

	var currentDebt float64
	err = tx.QueryRowContext(ctx, `
		SELECT current_debt FROM customers
		WHERE customer_id = $1
		FOR UPDATE`, loan.CustomerID).Scan(&currentDebt)
	if err != nil {
		if dberrors.Is(err, sql.ErrNoRows) {
			return 0, errors.NewCustomerNotFoundError(loan.CustomerID)
		}
		return 0, errors.NewDatabaseTxFailedError(err)
	}

	var loanID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO loans (
			customer_id, loan_amount, tenure, interest_rate,
			monthly_repayment, emis_paid_on_time, start_date, end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING loan_id`,
		loan.CustomerID,
		loan.Amount,
		loan.Tenure,
		loan.InterestRate,
		loan.MonthlyRepayment,
		loan.EMIsPaidOnTime,
		loan.StartDate,
		loan.EndDate,
	).Scan(&loanID)
	if err != nil {
		return 0, errors.NewDatabaseInsertFailedError(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers SET current_debt = $1
		WHERE customer_id = $2`,
		currentDebt+debtIncrement, loan.CustomerID)
	if err != nil {
		return 0, errors.NewDatabaseTxFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewDatabaseTxFailedError(fmt.Errorf("commit: %w", err))
	}

	s.logger.Info("loan persisted", map[string]interface{}{
		"loanId":     loanID,
		"customerId": loan.CustomerID,
		"amount":     loan.Amount,
	})
	return loanID, nil
}
