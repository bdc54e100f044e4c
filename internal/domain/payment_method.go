package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Cipher is the host-supplied field-level encrypt/decrypt capability. Both
// the recurring-charge token and the archived customer snapshot pass through
// it before touching storage.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PaymentMethod holds a gateway-issued recurring-charge token and a frozen
// snapshot of the customer's billing details. Token and snapshot are kept
// encrypted at rest and decrypted lazily on read.
type PaymentMethod struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`

	// EncryptedToken and EncryptedCustomer are ciphertext as persisted.
	EncryptedToken    string `json:"-"`
	EncryptedCustomer string `json:"-"`

	Verified    bool       `json:"verified"`
	Canceled    bool       `json:"canceled"`
	DisplayInfo string     `json:"display_info,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`

	// ThreeDSData holds the browser fingerprint fields collected for strong
	// customer authentication challenges (ALU protocol only).
	ThreeDSData map[string]string `json:"threeds_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Token decrypts and returns the stored recurring-charge token.
func (pm *PaymentMethod) Token(c Cipher) (string, error) {
	if pm.EncryptedToken == "" {
		return "", nil
	}
	token, err := c.Decrypt(pm.EncryptedToken)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return token, nil
}

// SetToken re-encrypts value and stores the ciphertext.
func (pm *PaymentMethod) SetToken(c Cipher, value string) error {
	enc, err := c.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	pm.EncryptedToken = enc
	return nil
}

// ArchivedCustomer decrypts and returns the archived billing snapshot.
// A decryption failure is propagated, never masked with an empty map: the
// snapshot carries delivery fields the gateway requires, and a silent empty
// fallback would surface later as an opaque gateway validation error.
func (pm *PaymentMethod) ArchivedCustomer(c Cipher) (map[string]string, error) {
	if pm.EncryptedCustomer == "" {
		return map[string]string{}, nil
	}
	raw, err := c.Decrypt(pm.EncryptedCustomer)
	if err != nil {
		return nil, fmt.Errorf("decrypt archived customer: %w", err)
	}
	snapshot := map[string]string{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal archived customer: %w", err)
		}
	}
	return snapshot, nil
}

// SetArchivedCustomer re-encrypts the snapshot and stores the ciphertext.
func (pm *PaymentMethod) SetArchivedCustomer(c Cipher, snapshot map[string]string) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal archived customer: %w", err)
	}
	enc, err := c.Encrypt(string(raw))
	if err != nil {
		return fmt.Errorf("encrypt archived customer: %w", err)
	}
	pm.EncryptedCustomer = enc
	return nil
}
