// internal/models/customer.go
package models

// Customer is a registered borrower. ApprovedLimit is fixed at registration
// (36x monthly salary, rounded to the nearest 100000); CurrentDebt grows as
// loans are originated and is recomputed wholesale by bulk ingestion.
type Customer struct {
	CustomerID    int64   `json:"customer_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Age           int     `json:"age"`
	PhoneNumber   string  `json:"phone_number"`
	MonthlySalary float64 `json:"monthly_salary"`
	ApprovedLimit float64 `json:"approved_limit"`
	CurrentDebt   float64 `json:"current_debt"`
}

// FullName joins first and last name for response payloads.
func (c Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CustomerSummary is the embedded customer block returned by the loan view.
type CustomerSummary struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Age         int    `json:"age"`
}

// Summary projects a Customer into its view form.
func (c Customer) Summary() CustomerSummary {
	return CustomerSummary{
		ID:          c.CustomerID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Age:         c.Age,
	}
}
