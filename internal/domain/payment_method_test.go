package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityCipher passes values through unchanged, mirroring how the host's
// crypto hooks are stubbed out in tests.
type identityCipher struct{}

func (identityCipher) Encrypt(s string) (string, error) { return s, nil }
func (identityCipher) Decrypt(s string) (string, error) { return s, nil }

type failingCipher struct{}

var errBroken = errors.New("broken cipher")

func (failingCipher) Encrypt(string) (string, error) { return "", errBroken }
func (failingCipher) Decrypt(string) (string, error) { return "", errBroken }

func TestPaymentMethodTokenRoundtrip(t *testing.T) {
	pm := &PaymentMethod{}
	c := identityCipher{}

	require.NoError(t, pm.SetToken(c, "random token"))
	token, err := pm.Token(c)
	require.NoError(t, err)
	assert.Equal(t, "random token", token)
}

func TestPaymentMethodArchivedCustomerRoundtrip(t *testing.T) {
	pm := &PaymentMethod{}
	c := identityCipher{}

	snapshot := map[string]string{"BILL_FNAME": "test"}
	require.NoError(t, pm.SetArchivedCustomer(c, snapshot))

	got, err := pm.ArchivedCustomer(c)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
}

func TestPaymentMethodEmptyValues(t *testing.T) {
	pm := &PaymentMethod{}
	c := identityCipher{}

	token, err := pm.Token(c)
	require.NoError(t, err)
	assert.Equal(t, "", token)

	snapshot, err := pm.ArchivedCustomer(c)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestPaymentMethodDecryptFailurePropagates(t *testing.T) {
	pm := &PaymentMethod{EncryptedToken: "x", EncryptedCustomer: "y"}
	c := failingCipher{}

	_, err := pm.Token(c)
	assert.ErrorIs(t, err, errBroken)

	// A broken snapshot must never degrade into an empty map; the charge
	// path needs the failure, not a gateway validation error later.
	_, err = pm.ArchivedCustomer(c)
	assert.ErrorIs(t, err, errBroken)
}
