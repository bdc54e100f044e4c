package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/silverbill/payu/internal/domain"
)

type PaymentMethodRepo struct {
	db *sql.DB
}

func NewPaymentMethodRepo(db *sql.DB) *PaymentMethodRepo {
	return &PaymentMethodRepo{db: db}
}

func (r *PaymentMethodRepo) Insert(pm *domain.PaymentMethod) error {
	threeds := ""
	if pm.ThreeDSData != nil {
		raw, err := json.Marshal(pm.ThreeDSData)
		if err != nil {
			return fmt.Errorf("marshal threeds data: %w", err)
		}
		threeds = string(raw)
	}

	_, err := r.db.Exec(
		`INSERT INTO payment_methods
		(id, customer_id, token, archived_customer, verified, canceled,
		 display_info, valid_until, threeds_data, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		pm.ID, pm.CustomerID, pm.EncryptedToken, pm.EncryptedCustomer,
		boolToInt(pm.Verified), boolToInt(pm.Canceled), pm.DisplayInfo,
		formatNullableTime(pm.ValidUntil), threeds,
		pm.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

func (r *PaymentMethodRepo) GetByID(id string) (*domain.PaymentMethod, error) {
	row := r.db.QueryRow("SELECT * FROM payment_methods WHERE id = ?", id)

	var pm domain.PaymentMethod
	var verified, canceled int
	var validUntil sql.NullString
	var threeds, createdAt string

	err := row.Scan(
		&pm.ID, &pm.CustomerID, &pm.EncryptedToken, &pm.EncryptedCustomer,
		&verified, &canceled, &pm.DisplayInfo, &validUntil, &threeds,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	pm.Verified = verified != 0
	pm.Canceled = canceled != 0
	if validUntil.Valid {
		t, _ := time.Parse(time.RFC3339, validUntil.String)
		pm.ValidUntil = &t
	}
	if threeds != "" {
		if err := json.Unmarshal([]byte(threeds), &pm.ThreeDSData); err != nil {
			return nil, fmt.Errorf("unmarshal threeds data: %w", err)
		}
	}
	pm.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &pm, nil
}

// SetIssuedToken stores a freshly issued (already encrypted) token together
// with the card display info and expiry, and marks the method verified.
func (r *PaymentMethodRepo) SetIssuedToken(id, encToken, displayInfo string, validUntil *time.Time) error {
	_, err := r.db.Exec(
		`UPDATE payment_methods
		 SET token = ?, verified = 1, display_info = ?, valid_until = ?
		 WHERE id = ?`,
		encToken, displayInfo, formatNullableTime(validUntil), id,
	)
	if err != nil {
		return fmt.Errorf("set issued token: %w", err)
	}
	return nil
}

// SetArchivedCustomerIfEmpty stores the (already encrypted) snapshot only if
// none exists yet. The guard runs inside the UPDATE itself, so concurrent
// first-time submissions cannot overwrite each other's snapshot.
func (r *PaymentMethodRepo) SetArchivedCustomerIfEmpty(id, encSnapshot string) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE payment_methods SET archived_customer = ?
		 WHERE id = ? AND archived_customer = ''`,
		encSnapshot, id,
	)
	if err != nil {
		return false, fmt.Errorf("set archived customer: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return ra > 0, nil
}

func (r *PaymentMethodRepo) SetThreeDSData(id string, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal threeds data: %w", err)
	}
	_, err = r.db.Exec(
		"UPDATE payment_methods SET threeds_data = ? WHERE id = ?",
		string(raw), id,
	)
	if err != nil {
		return fmt.Errorf("set threeds data: %w", err)
	}
	return nil
}

// Cancel invalidates the payment method for future charges.
func (r *PaymentMethodRepo) Cancel(id string) error {
	_, err := r.db.Exec("UPDATE payment_methods SET canceled = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("cancel payment method: %w", err)
	}
	return nil
}

// --- helpers ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
