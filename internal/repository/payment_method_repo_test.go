package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetArchivedCustomerIfEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentMethodRepo(db)

	pm := seedPaymentMethod(t, db)

	stored, err := repo.SetArchivedCustomerIfEmpty(pm.ID, "ciphertext-1")
	require.NoError(t, err)
	assert.True(t, stored)

	// A concurrent duplicate submission must not replace the first snapshot.
	stored, err = repo.SetArchivedCustomerIfEmpty(pm.ID, "ciphertext-2")
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := repo.GetByID(pm.ID)
	require.NoError(t, err)
	assert.Equal(t, "ciphertext-1", got.EncryptedCustomer)
}

func TestSetIssuedToken(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentMethodRepo(db)

	pm := seedPaymentMethod(t, db)
	validUntil := time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SetIssuedToken(pm.ID, "enc-token", "XXXX-1234", &validUntil))

	got, err := repo.GetByID(pm.ID)
	require.NoError(t, err)
	assert.Equal(t, "enc-token", got.EncryptedToken)
	assert.True(t, got.Verified)
	assert.Equal(t, "XXXX-1234", got.DisplayInfo)
	require.NotNil(t, got.ValidUntil)
	assert.True(t, validUntil.Equal(*got.ValidUntil))
}

func TestSetThreeDSDataRoundtrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentMethodRepo(db)

	pm := seedPaymentMethod(t, db)
	data := map[string]string{
		"BROWSER_IP":         "203.0.113.7",
		"BROWSER_USER_AGENT": "Mozilla/5.0",
	}
	require.NoError(t, repo.SetThreeDSData(pm.ID, data))

	got, err := repo.GetByID(pm.ID)
	require.NoError(t, err)
	assert.Equal(t, data, got.ThreeDSData)
}

func TestCancel(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentMethodRepo(db)

	pm := seedPaymentMethod(t, db)
	require.NoError(t, repo.Cancel(pm.ID))

	got, err := repo.GetByID(pm.ID)
	require.NoError(t, err)
	assert.True(t, got.Canceled)
}
