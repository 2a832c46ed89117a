// internal/ingest/loader_test.go
package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-approval/internal/common/errors"
	"credit-approval/internal/common/logger"
)

func newLoader(t *testing.T) (*Loader, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	loader := NewLoader(db, logger.NewTestLogger(t))
	return loader, mock, func() { db.Close() }
}

// ==========================
// Customer Loads
// ==========================

func TestLoadCustomers(t *testing.T) {
	loader, mock, closeFn := newLoader(t)
	defer closeFn()

	file := strings.Join([]string{
		"customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit",
		"1,Asha,Verma,32,9876543210,73000,2600000",
		"2,Ravi,Iyer,45,9123456780,120000,4300000",
		"3,Broken,Row,not-a-number,900,1,2",
	}, "\n")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO customers`).
		WithArgs(int64(1), "Asha", "Verma", 32, "9876543210", 73000.0, 2600000.0).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO customers`).
		WithArgs(int64(2), "Ravi", "Iyer", 45, "9123456780", 120000.0, 4300000.0).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectExec(`SELECT setval\(pg_get_serial_sequence\('customers'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := loader.LoadCustomers(context.Background(), strings.NewReader(file))

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCustomers_UpsertFailureRollsBack(t *testing.T) {
	loader, mock, closeFn := newLoader(t)
	defer closeFn()

	file := strings.Join([]string{
		"customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit",
		"1,Asha,Verma,32,9876543210,73000,2600000",
	}, "\n")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := loader.LoadCustomers(context.Background(), strings.NewReader(file))

	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCustomers_MalformedCSV(t *testing.T) {
	loader, _, closeFn := newLoader(t)
	defer closeFn()

	_, err := loader.LoadCustomers(context.Background(), strings.NewReader("\"unterminated"))

	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeIngestionFailed, stdErr.Code)
}

// ==========================
// Loan Loads
// ==========================

func TestLoadLoans(t *testing.T) {
	loader, mock, closeFn := newLoader(t)
	defer closeFn()

	file := strings.Join([]string{
		"customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,start_date,end_date",
		"1,10,500000,24,12,23536.74,6,2023-06-15,2025-06-15",
		"1,11,200000,12,16,18000,12,2022-01-10,2023-01-10",
		"1,10,900000,36,14,30000,0,2023-06-15,2026-06-15", // duplicate loan id
		"99,12,100000,12,14,9000,0,2023-06-15,2024-06-15", // unknown customer
	}, "\n")

	mock.ExpectQuery(`SELECT customer_id FROM customers WHERE customer_id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(int64(1)))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM loans WHERE loan_id = ANY`).
		WithArgs(pq.Array([]int64{10, 11})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO loans`).
		WithArgs(int64(10), int64(1), 500000.0, 24, 12.0, 23536.74, 6,
			time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO loans`).
		WithArgs(int64(11), int64(1), 200000.0, 12, 16.0, 18000.0, 12,
			time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE customers SET current_debt`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT setval\(pg_get_serial_sequence\('loans'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := loader.LoadLoans(context.Background(), strings.NewReader(file))

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 2, summary.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLoans_AlternateDateFormats(t *testing.T) {
	loader, mock, closeFn := newLoader(t)
	defer closeFn()

	file := strings.Join([]string{
		"customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,start_date,end_date",
		"1,10,500000,24,12,23536.74,6,15-06-2023,15/06/2025",
	}, "\n")

	mock.ExpectQuery(`SELECT customer_id FROM customers WHERE customer_id = ANY`).
		WithArgs(pq.Array([]int64{1})).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(int64(1)))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM loans WHERE loan_id = ANY`).
		WithArgs(pq.Array([]int64{10})).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO loans`).
		WithArgs(int64(10), int64(1), 500000.0, 24, 12.0, 23536.74, 6,
			time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE customers SET current_debt`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT setval\(pg_get_serial_sequence\('loans'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := loader.LoadLoans(context.Background(), strings.NewReader(file))

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLoans_AllRowsInvalid(t *testing.T) {
	loader, mock, closeFn := newLoader(t)
	defer closeFn()

	file := strings.Join([]string{
		"customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,start_date,end_date",
		"1,-5,500000,24,12,23536.74,6,2023-06-15,2025-06-15",
		"1,abc,500000,24,12,23536.74,6,2023-06-15,2025-06-15",
	}, "\n")

	// No valid rows survive parsing, so only the transaction brackets run.
	mock.ExpectBegin()
	mock.ExpectCommit()

	summary, err := loader.LoadLoans(context.Background(), strings.NewReader(file))

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 2, summary.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLoans_InsertFailureRollsBack(t *testing.T) {
	loader, mock, closeFn := newLoader(t)
	defer closeFn()

	file := strings.Join([]string{
		"customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,start_date,end_date",
		"1,10,500000,24,12,23536.74,6,2023-06-15,2025-06-15",
	}, "\n")

	mock.ExpectQuery(`SELECT customer_id FROM customers WHERE customer_id = ANY`).
		WithArgs(pq.Array([]int64{1})).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(int64(1)))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM loans WHERE loan_id = ANY`).
		WithArgs(pq.Array([]int64{10})).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO loans`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := loader.LoadLoans(context.Background(), strings.NewReader(file))

	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
