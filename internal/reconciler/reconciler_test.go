package reconciler

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverbill/payu/internal/domain"
	"github.com/silverbill/payu/internal/repository"
)

func setup(t *testing.T) (*Reconciler, *repository.TransactionRepo, *sql.DB) {
	t.Helper()
	db, err := repository.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewTransactionRepo(db)
	return New(repo), repo, db
}

func seedTransaction(t *testing.T, db *sql.DB, state domain.TransactionState) string {
	t.Helper()

	customer := &domain.Customer{
		ID:        uuid.NewString(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repository.NewCustomerRepo(db).Insert(customer))

	pm := &domain.PaymentMethod{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repository.NewPaymentMethodRepo(db).Insert(pm))

	tx := &domain.Transaction{
		ID:              uuid.NewString(),
		PaymentMethodID: pm.ID,
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "RON",
		State:           state,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repository.NewTransactionRepo(db).Insert(tx))
	return tx.ID
}

func TestProcessFromInitial(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StateInitial)

	require.NoError(t, rec.Process(id))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, tx.State)
}

func TestProcessFromPendingIsRejected(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StatePending)

	err := rec.Process(id)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, tx.State)
}

func TestFailAnnotatesTransaction(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StatePending)

	require.NoError(t, rec.Fail(id, "insufficient_funds", "The credit card used has insufficient funds available."))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, tx.State)
	assert.Equal(t, "insufficient_funds", tx.FailCode)
	assert.Equal(t, "The credit card used has insufficient funds available.", tx.FailReason)
}

func TestSettleFromPending(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StatePending)

	require.NoError(t, rec.Settle(id, OriginNotification))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSettled, tx.State)
}

func TestSettleIsIdempotent(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StatePending)

	require.NoError(t, rec.Settle(id, OriginNotification))
	// Duplicate notification: no error, no state change.
	require.NoError(t, rec.Settle(id, OriginNotification))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSettled, tx.State)
}

func TestSettleFromInitialFallsBackToFail(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StateInitial)

	// Settle is not allowed from initial, but fail is; the fallback applies
	// and the notification caller sees no error.
	require.NoError(t, rec.Settle(id, OriginNotification))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, tx.State)
	assert.Contains(t, tx.FailReason, "transition not allowed")
}

func TestSettleFromTerminalStatePropagatesToNotificationCaller(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StateCanceled)

	// Neither settle nor the fail fallback is allowed from canceled: the
	// rejection lands on the metadata and the notification caller gets it.
	err := rec.Settle(id, OriginNotification)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)

	tx, loadErr := repo.GetByID(id)
	require.NoError(t, loadErr)
	assert.Equal(t, domain.StateCanceled, tx.State)
	assert.Contains(t, tx.Meta.Error, "transition not allowed")
}

func TestSettleFromTerminalStateSwallowedOnSyncPath(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StateFailed)

	require.NoError(t, rec.Settle(id, OriginSync))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, tx.State)
	assert.Contains(t, tx.Meta.Error, "transition not allowed")
}

func TestCancelFromPending(t *testing.T) {
	rec, repo, db := setup(t)
	id := seedTransaction(t, db, domain.StatePending)

	require.NoError(t, rec.Cancel(id))

	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCanceled, tx.State)
}
