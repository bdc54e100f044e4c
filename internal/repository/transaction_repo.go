package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silverbill/payu/internal/domain"
)

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(tx *domain.Transaction) error {
	tx.Meta.Version = domain.MetaVersion
	meta, err := json.Marshal(tx.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	var docKind, docSeries, docNumber, docTax string
	docTax = "0"
	if tx.Document != nil {
		docKind = tx.Document.Kind
		docSeries = tx.Document.Series
		docNumber = tx.Document.Number
		docTax = tx.Document.TaxPercent.String()
	}

	_, err = r.db.Exec(
		`INSERT INTO transactions
		(id, payment_method_id, amount, currency, state, meta, fail_code,
		 fail_reason, document_kind, document_series, document_number,
		 document_tax_percent, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tx.ID, tx.PaymentMethodID, tx.Amount.String(), tx.Currency,
		string(tx.State), string(meta), tx.FailCode, tx.FailReason,
		docKind, docSeries, docNumber, docTax,
		tx.CreatedAt.Format(time.RFC3339), tx.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(id string) (*domain.Transaction, error) {
	row := r.db.QueryRow("SELECT * FROM transactions WHERE id = ?", id)
	return scanTransaction(row)
}

func (r *TransactionRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

// UpdateStateCAS moves a transaction from one state to another with a
// compare-and-set on the current state. It reports whether the row actually
// moved; false means the persisted state no longer matches `from` (either a
// disallowed transition or a concurrent update won the race). Fail
// annotations are written together with the state so the transition is
// atomic.
func (r *TransactionRepo) UpdateStateCAS(id string, from, to domain.TransactionState, failCode, failReason string) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE transactions
		 SET state = ?, fail_code = ?, fail_reason = ?, updated_at = ?
		 WHERE id = ? AND state = ?`,
		string(to), failCode, failReason, time.Now().UTC().Format(time.RFC3339),
		id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update state: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return ra > 0, nil
}

// SaveMeta persists the structured metadata record, stamped with the current
// schema version.
func (r *TransactionRepo) SaveMeta(id string, meta domain.TransactionMeta) error {
	meta.Version = domain.MetaVersion
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	_, err = r.db.Exec(
		"UPDATE transactions SET meta = ?, updated_at = ? WHERE id = ?",
		string(raw), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

type TransactionFilter struct {
	State           string
	Currency        string
	PaymentMethodID string
	From            *time.Time
	To              *time.Time
	Page            int
	Limit           int
}

func (r *TransactionRepo) List(f TransactionFilter) ([]domain.Transaction, int, error) {
	where, args := buildTransactionWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM transactions" + where
	if err := r.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := "SELECT * FROM transactions" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		tx, err := scanTransactionRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *tx)
	}
	return txns, total, rows.Err()
}

// --- helpers ---

func buildTransactionWhere(f TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, f.State)
	}
	if f.Currency != "" {
		clauses = append(clauses, "currency = ?")
		args = append(args, f.Currency)
	}
	if f.PaymentMethodID != "" {
		clauses = append(clauses, "payment_method_id = ?")
		args = append(args, f.PaymentMethodID)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransactionRow(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount, state, meta, createdAt, updatedAt string
	var docKind, docSeries, docNumber, docTax string

	err := row.Scan(
		&tx.ID, &tx.PaymentMethodID, &amount, &tx.Currency, &state, &meta,
		&tx.FailCode, &tx.FailReason, &docKind, &docSeries, &docNumber,
		&docTax, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	tx.State = domain.TransactionState(state)
	if err := json.Unmarshal([]byte(meta), &tx.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if docKind != "" || docSeries != "" || docNumber != "" {
		tax, err := decimal.NewFromString(docTax)
		if err != nil {
			return nil, fmt.Errorf("parse tax percent: %w", err)
		}
		tx.Document = &domain.Document{
			Kind:       docKind,
			Series:     docSeries,
			Number:     docNumber,
			TaxPercent: tax,
		}
	}
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tx.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &tx, nil
}

func scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	return scanTransactionRow(row)
}

func scanTransactionRows(rows *sql.Rows) (*domain.Transaction, error) {
	return scanTransactionRow(rows)
}
