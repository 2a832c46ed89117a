// internal/ingest/loader.go
package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"credit-approval/internal/common/errors"
	"credit-approval/internal/common/logger"
	"credit-approval/internal/models"
)

// Accepted start/end date layouts in loan files.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// Summary reports what a single load did.
type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Loader bulk-loads customers and loans from CSV files. Each load runs in one
// transaction, so a failed file leaves the database untouched and a clean file
// can be re-run safely.
type Loader struct {
	db     *sql.DB
	logger logger.Logger
}

func NewLoader(db *sql.DB, log logger.Logger) *Loader {
	return &Loader{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ingest"}),
	}
}

// LoadCustomers upserts customer rows keyed by customer_id. Existing rows keep
// their current_debt; new rows start at zero. Expected header:
// customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit
func (l *Loader) LoadCustomers(ctx context.Context, r io.Reader) (Summary, error) {
	records, summary, err := readRecords(r, 7)
	if err != nil {
		return Summary{}, errors.NewIngestionFailedError("customers", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, errors.NewDatabaseTxFailedError(err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO customers (customer_id, first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		ON CONFLICT (customer_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			age = EXCLUDED.age,
			phone_number = EXCLUDED.phone_number,
			monthly_salary = EXCLUDED.monthly_salary,
			approved_limit = EXCLUDED.approved_limit
		RETURNING (xmax = 0)`

	for _, rec := range records {
		customer, err := parseCustomerRecord(rec)
		if err != nil {
			summary.Skipped++
			l.logger.Warn("skipping customer row", map[string]interface{}{"error": err.Error()})
			continue
		}

		// xmax = 0 holds only for freshly inserted rows, which tells an
		// insert apart from a conflict update.
		var inserted bool
		err = tx.QueryRowContext(ctx, upsert,
			customer.CustomerID,
			customer.FirstName,
			customer.LastName,
			customer.Age,
			customer.PhoneNumber,
			customer.MonthlySalary,
			customer.ApprovedLimit,
		).Scan(&inserted)
		if err != nil {
			return Summary{}, errors.NewDatabaseInsertFailedError(err)
		}
		if inserted {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	// Explicit ids bypass the serial sequence; advance it so later
	// registrations do not collide with ingested rows.
	if summary.Created+summary.Updated > 0 {
		if err := advanceSequence(ctx, tx, "customers", "customer_id"); err != nil {
			return Summary{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, errors.NewDatabaseTxFailedError(err)
	}

	l.logger.Info("customer load complete", map[string]interface{}{
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
	})
	return summary, nil
}

// LoadLoans replaces loan rows by loan_id and recomputes current_debt for
// every customer the file touches. Rows with unparsable fields, non-positive
// or duplicate loan ids, or unknown customers are skipped. Expected header:
// customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,start_date,end_date
func (l *Loader) LoadLoans(ctx context.Context, r io.Reader) (Summary, error) {
	records, summary, err := readRecords(r, 9)
	if err != nil {
		return Summary{}, errors.NewIngestionFailedError("loans", err)
	}

	var loans []models.Loan
	seen := make(map[int64]bool)
	customerIDs := make(map[int64]bool)
	for _, rec := range records {
		loan, err := parseLoanRecord(rec)
		if err != nil {
			summary.Skipped++
			l.logger.Warn("skipping loan row", map[string]interface{}{"error": err.Error()})
			continue
		}
		if loan.LoanID <= 0 || seen[loan.LoanID] {
			summary.Skipped++
			l.logger.Warn("skipping loan row", map[string]interface{}{
				"loan_id": loan.LoanID,
				"error":   "non-positive or duplicate loan id",
			})
			continue
		}
		seen[loan.LoanID] = true
		customerIDs[loan.CustomerID] = true
		loans = append(loans, loan)
	}

	known, err := l.knownCustomers(ctx, customerIDs)
	if err != nil {
		return Summary{}, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, errors.NewDatabaseTxFailedError(err)
	}
	defer tx.Rollback()

	touched := make(map[int64]bool)
	loanIDs := make([]int64, 0, len(loans))
	kept := loans[:0]
	for _, loan := range loans {
		if !known[loan.CustomerID] {
			summary.Skipped++
			l.logger.Warn("skipping loan row", map[string]interface{}{
				"loan_id":     loan.LoanID,
				"customer_id": loan.CustomerID,
				"error":       "unknown customer",
			})
			continue
		}
		loanIDs = append(loanIDs, loan.LoanID)
		kept = append(kept, loan)
	}

	if len(loanIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE loan_id = ANY($1)`, pq.Array(loanIDs)); err != nil {
			return Summary{}, errors.NewDatabaseQueryFailedError(err)
		}
	}

	const insert = `
		INSERT INTO loans (loan_id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, loan := range kept {
		_, err := tx.ExecContext(ctx, insert,
			loan.LoanID,
			loan.CustomerID,
			loan.Amount,
			loan.Tenure,
			loan.InterestRate,
			loan.MonthlyRepayment,
			loan.EMIsPaidOnTime,
			loan.StartDate,
			loan.EndDate,
		)
		if err != nil {
			return Summary{}, errors.NewDatabaseInsertFailedError(err)
		}
		summary.Created++
		touched[loan.CustomerID] = true
	}

	// Outstanding debt is reconciled from the loan data itself: the unpaid
	// remainder of every loan the customer holds.
	const recompute = `
		UPDATE customers SET current_debt = COALESCE((
			SELECT SUM(GREATEST(0, (tenure - emis_paid_on_time) * monthly_repayment))
			FROM loans WHERE customer_id = $1
		), 0) WHERE customer_id = $1`

	for customerID := range touched {
		if _, err := tx.ExecContext(ctx, recompute, customerID); err != nil {
			return Summary{}, errors.NewDatabaseQueryFailedError(err)
		}
	}

	// Same sequence hazard as customer loads: ingested loan ids must not be
	// handed out again by origination.
	if summary.Created > 0 {
		if err := advanceSequence(ctx, tx, "loans", "loan_id"); err != nil {
			return Summary{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, errors.NewDatabaseTxFailedError(err)
	}

	l.logger.Info("loan load complete", map[string]interface{}{
		"created": summary.Created,
		"skipped": summary.Skipped,
	})
	return summary, nil
}

// advanceSequence moves a table's id sequence past the largest present id.
func advanceSequence(ctx context.Context, tx *sql.Tx, table, column string) error {
	stmt := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', '%s'), (SELECT GREATEST(MAX(%s), 1) FROM %s))`,
		table, column, column, table,
	)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.NewDatabaseQueryFailedError(err)
	}
	return nil
}

func (l *Loader) knownCustomers(ctx context.Context, ids map[int64]bool) (map[int64]bool, error) {
	known := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return known, nil
	}
	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	rows, err := l.db.QueryContext(ctx, `SELECT customer_id FROM customers WHERE customer_id = ANY($1)`, pq.Array(list))
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewDatabaseQueryFailedError(err)
		}
		known[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	return known, nil
}

// readRecords consumes a CSV stream, dropping a leading header row and any
// row with the wrong field count. The skip count is carried into the summary.
func readRecords(r io.Reader, fields int) ([][]string, Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var summary Summary
	var records [][]string
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Summary{}, fmt.Errorf("reading csv: %w", err)
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		if len(rec) != fields {
			summary.Skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, summary, nil
}

// isHeader treats a first row whose leading cell is not numeric as a header.
func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	return err != nil
}

func parseCustomerRecord(rec []string) (models.Customer, error) {
	id, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return models.Customer{}, fmt.Errorf("customer_id %q: %w", rec[0], err)
	}
	age, err := strconv.Atoi(rec[3])
	if err != nil {
		return models.Customer{}, fmt.Errorf("age %q: %w", rec[3], err)
	}
	salary, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return models.Customer{}, fmt.Errorf("monthly_salary %q: %w", rec[5], err)
	}
	limit, err := strconv.ParseFloat(rec[6], 64)
	if err != nil {
		return models.Customer{}, fmt.Errorf("approved_limit %q: %w", rec[6], err)
	}
	return models.Customer{
		CustomerID:    id,
		FirstName:     rec[1],
		LastName:      rec[2],
		Age:           age,
		PhoneNumber:   rec[4],
		MonthlySalary: salary,
		ApprovedLimit: limit,
	}, nil
}

func parseLoanRecord(rec []string) (models.Loan, error) {
	customerID, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return models.Loan{}, fmt.Errorf("customer_id %q: %w", rec[0], err)
	}
	loanID, err := strconv.ParseInt(rec[1], 10, 64)
	if err != nil {
		return models.Loan{}, fmt.Errorf("loan_id %q: %w", rec[1], err)
	}
	amount, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return models.Loan{}, fmt.Errorf("loan_amount %q: %w", rec[2], err)
	}
	tenure, err := strconv.Atoi(rec[3])
	if err != nil {
		return models.Loan{}, fmt.Errorf("tenure %q: %w", rec[3], err)
	}
	rate, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return models.Loan{}, fmt.Errorf("interest_rate %q: %w", rec[4], err)
	}
	repayment, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return models.Loan{}, fmt.Errorf("monthly_payment %q: %w", rec[5], err)
	}
	emisPaid, err := strconv.Atoi(rec[6])
	if err != nil {
		return models.Loan{}, fmt.Errorf("emis_paid_on_time %q: %w", rec[6], err)
	}
	start, err := parseDate(rec[7])
	if err != nil {
		return models.Loan{}, fmt.Errorf("start_date %q: %w", rec[7], err)
	}
	end, err := parseDate(rec[8])
	if err != nil {
		return models.Loan{}, fmt.Errorf("end_date %q: %w", rec[8], err)
	}
	return models.Loan{
		LoanID:           loanID,
		CustomerID:       customerID,
		Amount:           amount,
		Tenure:           tenure,
		InterestRate:     rate,
		MonthlyRepayment: repayment,
		EMIsPaidOnTime:   emisPaid,
		StartDate:        start,
		EndDate:          end,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
