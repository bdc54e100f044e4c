package domain

import "time"

// Customer is the live customer record owned by the host billing system.
// It is only read here, to seed the first archived snapshot on a payment
// method; recurring charges never consult it again.
type Customer struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address1       string    `json:"address_1"`
	Address2       string    `json:"address_2"`
	City           string    `json:"city"`
	Country        string    `json:"country"`
	SalesTaxNumber string    `json:"sales_tax_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
