package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/silverbill/payu/internal/domain"
)

type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{db: db}
}

func (r *CustomerRepo) Insert(c *domain.Customer) error {
	_, err := r.db.Exec(
		`INSERT INTO customers
		(id, first_name, last_name, email, phone, address_1, address_2, city,
		 country, sales_tax_number, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address1,
		c.Address2, c.City, c.Country, c.SalesTaxNumber,
		c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *CustomerRepo) GetByID(id string) (*domain.Customer, error) {
	row := r.db.QueryRow("SELECT * FROM customers WHERE id = ?", id)

	var c domain.Customer
	var createdAt string
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address1,
		&c.Address2, &c.City, &c.Country, &c.SalesTaxNumber, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &c, nil
}
