// Package reconciler drives the transaction state machine. It maps charge
// results, redirect callbacks and asynchronous gateway notifications onto
// state transitions, tolerating duplicates, races and out-of-order delivery.
package reconciler

import (
	"errors"
	"fmt"
	"log"

	"github.com/silverbill/payu/internal/domain"
	"github.com/silverbill/payu/internal/repository"
)

// ErrTransitionNotAllowed reports a transition the state machine rejected
// from the transaction's current persisted state.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// Origin identifies the calling context of a settle attempt. Synchronous
// charge flows swallow a doubly-rejected transition; notification handlers
// get it back so delivery infrastructure can flag poison notifications.
type Origin int

const (
	OriginSync Origin = iota
	OriginNotification
)

type Reconciler struct {
	txns *repository.TransactionRepo
}

func New(txns *repository.TransactionRepo) *Reconciler {
	return &Reconciler{txns: txns}
}

// apply re-reads the transaction's persisted state and, if the state machine
// allows the transition, persists it with a compare-and-set on that same
// state. The decision is a pure function of (current state, target); a CAS
// lost to a concurrent update is reported exactly like a disallowed
// transition.
func (r *Reconciler) apply(id string, to domain.TransactionState, failCode, failReason string) error {
	tx, err := r.txns.GetByID(id)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}

	if to == domain.StateSettled && tx.State == domain.StateSettled {
		// Duplicate settlement notification; idempotent no-op.
		return nil
	}

	if !domain.CanTransition(tx.State, to) {
		log.Printf("[reconciler] transition not allowed for %s: %s -> %s", id, tx.State, to)
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, tx.State, to)
	}

	moved, err := r.txns.UpdateStateCAS(id, tx.State, to, failCode, failReason)
	if err != nil {
		return fmt.Errorf("persist transition %s -> %s: %w", tx.State, to, err)
	}
	if !moved {
		log.Printf("[reconciler] transition not allowed for %s: lost race moving %s -> %s", id, tx.State, to)
		return fmt.Errorf("%w: concurrent update during %s -> %s", ErrTransitionNotAllowed, tx.State, to)
	}
	return nil
}

// Process moves a transaction to pending after the gateway accepted the
// charge or the customer returned with a success marker.
func (r *Reconciler) Process(id string) error {
	return r.apply(id, domain.StatePending, "", "")
}

// Fail moves a transaction to failed with the given annotations.
func (r *Reconciler) Fail(id, failCode, failReason string) error {
	return r.apply(id, domain.StateFailed, failCode, failReason)
}

// Cancel voids a transaction that has not reached a terminal state.
func (r *Reconciler) Cancel(id string) error {
	return r.apply(id, domain.StateCanceled, "", "")
}

// Settle applies a settlement confirmation. Already-settled transactions are
// an idempotent no-op. When the settle transition is rejected a fail
// transition is attempted instead; if that is also rejected the rejection is
// recorded on the transaction's metadata and the error propagates only to
// notification callers.
func (r *Reconciler) Settle(id string, origin Origin) error {
	err := r.apply(id, domain.StateSettled, "", "")
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrTransitionNotAllowed) {
		return err
	}

	rejection := err.Error()
	if failErr := r.Fail(id, "", rejection); failErr == nil {
		return nil
	} else if !errors.Is(failErr, ErrTransitionNotAllowed) {
		return failErr
	}

	// Both settle and the fail fallback were rejected. Keep the anomaly on
	// the transaction record, then let the boundary decide.
	if tx, loadErr := r.txns.GetByID(id); loadErr == nil {
		tx.Meta.Error = rejection
		if saveErr := r.txns.SaveMeta(id, tx.Meta); saveErr != nil {
			log.Printf("[reconciler] WARNING: failed to record rejection for %s: %v", id, saveErr)
		}
	} else {
		log.Printf("[reconciler] WARNING: failed to load %s while recording rejection: %v", id, loadErr)
	}

	if origin == OriginNotification {
		return err
	}
	log.Printf("[reconciler] settle rejected for %s, swallowed on synchronous path: %v", id, err)
	return nil
}
