// internal/store/loan_store_test.go
package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-approval/internal/common/errors"
	"credit-approval/internal/common/logger"
	"credit-approval/internal/models"
)

var (
	loanColumns = []string{
		"loan_id", "customer_id", "loan_amount", "tenure", "interest_rate",
		"monthly_repayment", "emis_paid_on_time", "start_date", "end_date",
	}
	testStart = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
)

func newLoanStore(t *testing.T) (*LoanStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewLoanStore(db, logger.NewTestLogger(t))
	return store, mock, func() { db.Close() }
}

func TestLoanStore_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		rows := sqlmock.NewRows(loanColumns).
			AddRow(int64(11), int64(7), 500000.0, 24, 12.0, 23536.74, 0, testStart, testStart.AddDate(0, 24, 0))
		mock.ExpectQuery(`SELECT loan_id, customer_id, loan_amount`).
			WithArgs(int64(11)).
			WillReturnRows(rows)

		loan, err := store.Get(context.Background(), 11)

		assert.NoError(t, err)
		assert.Equal(t, int64(11), loan.LoanID)
		assert.Equal(t, int64(7), loan.CustomerID)
		assert.Equal(t, 24, loan.RepaymentsLeft())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		mock.ExpectQuery(`SELECT loan_id, customer_id, loan_amount`).
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(context.Background(), 404)

		stdErr, ok := errors.AsStandard(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeLoanNotFound, stdErr.Code)
	})
}

func TestLoanStore_ListByCustomer(t *testing.T) {
	t.Run("returns all loans ordered", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		rows := sqlmock.NewRows(loanColumns).
			AddRow(int64(1), int64(7), 200000.0, 12, 14.0, 17950.0, 12, testStart.AddDate(-2, 0, 0), testStart.AddDate(-1, 0, 0)).
			AddRow(int64(2), int64(7), 500000.0, 24, 12.0, 23536.74, 6, testStart.AddDate(-1, 0, 0), testStart.AddDate(1, 0, 0))
		mock.ExpectQuery(`SELECT loan_id, customer_id, loan_amount`).
			WithArgs(int64(7)).
			WillReturnRows(rows)

		loans, err := store.ListByCustomer(context.Background(), 7)

		assert.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Equal(t, int64(1), loans[0].LoanID)
		assert.Equal(t, 0, loans[0].RepaymentsLeft())
		assert.Equal(t, 18, loans[1].RepaymentsLeft())
	})

	t.Run("no loans yields empty slice", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		mock.ExpectQuery(`SELECT loan_id, customer_id, loan_amount`).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(loanColumns))

		loans, err := store.ListByCustomer(context.Background(), 8)

		assert.NoError(t, err)
		assert.NotNil(t, loans)
		assert.Empty(t, loans)
	})
}

func TestLoanStore_CreateWithDebtIncrement(t *testing.T) {
	newLoan := models.Loan{
		CustomerID:       7,
		Amount:           500000,
		Tenure:           24,
		InterestRate:     12,
		MonthlyRepayment: 23536.74,
		EMIsPaidOnTime:   0,
		StartDate:        testStart,
		EndDate:          testStart.AddDate(0, 24, 0),
	}

	t.Run("locks customer, inserts loan, raises debt, commits", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT current_debt FROM customers`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"current_debt"}).AddRow(200000.0))
		mock.ExpectQuery(`INSERT INTO loans`).
			WithArgs(int64(7), 500000.0, 24, 12.0, 23536.74, 0, testStart, testStart.AddDate(0, 24, 0)).
			WillReturnRows(sqlmock.NewRows([]string{"loan_id"}).AddRow(int64(55)))
		mock.ExpectExec(`UPDATE customers SET current_debt`).
			WithArgs(700000.0, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		id, err := store.CreateWithDebtIncrement(context.Background(), newLoan, 500000)

		assert.NoError(t, err)
		assert.Equal(t, int64(55), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT current_debt FROM customers`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"current_debt"}).AddRow(200000.0))
		mock.ExpectQuery(`INSERT INTO loans`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err := store.CreateWithDebtIncrement(context.Background(), newLoan, 500000)

		assert.Error(t, err)
		stdErr, ok := errors.AsStandard(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, stdErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debt update failure rolls back whole origination", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT current_debt FROM customers`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"current_debt"}).AddRow(200000.0))
		mock.ExpectQuery(`INSERT INTO loans`).
			WithArgs(int64(7), 500000.0, 24, 12.0, 23536.74, 0, testStart, testStart.AddDate(0, 24, 0)).
			WillReturnRows(sqlmock.NewRows([]string{"loan_id"}).AddRow(int64(55)))
		mock.ExpectExec(`UPDATE customers SET current_debt`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err := store.CreateWithDebtIncrement(context.Background(), newLoan, 500000)

		stdErr, ok := errors.AsStandard(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeDatabaseTxFailed, stdErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown customer surfaces not found", func(t *testing.T) {
		store, mock, closeFn := newLoanStore(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT current_debt FROM customers`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		missing := newLoan
		missing.CustomerID = 99
		_, err := store.CreateWithDebtIncrement(context.Background(), missing, 500000)

		assert.True(t, errors.IsNotFound(err))
	})
}
