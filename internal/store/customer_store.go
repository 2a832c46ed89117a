// internal/store/customer_store.go
package store

import (
	"context"
	"database/sql"
	dberrors "errors"

	"credit-approval/internal/common/errors"
	"credit-approval/internal/common/logger"
	"credit-approval/internal/models"
)

// CustomerStore persists customers in PostgreSQL.
type CustomerStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewCustomerStore(db *sql.DB, log logger.Logger) *CustomerStore {
	return &CustomerStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "customers"}),
	}
}

// Create inserts a new customer and returns the assigned id.
func (s *CustomerStore) Create(ctx context.Context, customer models.Customer) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (
			first_name, last_name, age, phone_number,
			monthly_salary, approved_limit, current_debt
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING customer_id`,
		customer.FirstName,
		customer.LastName,
		customer.Age,
		customer.PhoneNumber,
		customer.MonthlySalary,
		customer.ApprovedLimit,
		customer.CurrentDebt,
	).Scan(&id)
	if err != nil {
		return 0, errors.NewDatabaseInsertFailedError(err)
	}
	return id, nil
}

// Get looks up a customer by id.
func (s *CustomerStore) Get(ctx context.Context, customerID int64) (models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, first_name, last_name, age, phone_number,
		       monthly_salary, approved_limit, current_debt
		FROM customers
		WHERE customer_id = $1`, customerID).Scan(
		&c.CustomerID, &c.FirstName, &c.LastName, &c.Age, &c.PhoneNumber,
		&c.MonthlySalary, &c.ApprovedLimit, &c.CurrentDebt,
	)
	if err != nil {
		if dberrors.Is(err, sql.ErrNoRows) {
			return models.Customer{}, errors.NewCustomerNotFoundError(customerID)
		}
		return models.Customer{}, errors.NewDatabaseQueryFailedError(err)
	}
	return c, nil
}
