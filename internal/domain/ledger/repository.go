package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository interface {
	HasPurchase(ctx context.Context, userID, videoID uuid.UUID) (bool, error)
	CreatePurchase(ctx context.Context, userID, videoID uuid.UUID, price int) (balance int, err error)
	Adjust(ctx context.Context, userID uuid.UUID, adminID uuid.NullUUID, delta int, reason string) (balance int, err error)
	Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) error
	AttachReferral(ctx context.Context, userID, referrerID uuid.UUID, bonusReferrer, bonusNewUser int) (attached bool, err error)
	ListPurchases(ctx context.Context, userID uuid.UUID) ([]Purchase, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]CoinTransaction, error)
	ListAllTransactions(ctx context.Context, limit int) ([]CoinTransaction, error)
}

// LedgerRepository provides coin balance and purchase operations.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) HasPurchase(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx2, &exists, `
		SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND video_id = $2)
	`, userID, videoID)
	if err != nil {
		return false, fmt.Errorf("%w: check purchase", ErrInternal)
	}

	return exists, nil
}

// CreatePurchase records a purchase and debits the price in one transaction.
// The balance decrement is conditional on the current balance covering the
// price, so two racing purchases cannot overdraw the account. Returns the
// balance after the debit.
func (r *LedgerRepository) CreatePurchase(ctx context.Context, userID, videoID uuid.UUID, price int) (int, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrInternal)
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		INSERT INTO purchases (id, user_id, video_id, price)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (user_id, video_id) DO NOTHING
	`, userID, videoID, price)
	if err != nil {
		return 0, fmt.Errorf("%w: insert purchase", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return 0, ErrAlreadyPurchased
	}

	var balance int
	err = tx.QueryRowContext(ctx2, `
		UPDATE users
		SET coin_balance = coin_balance - $2, updated_at = NOW()
		WHERE id = $1 AND coin_balance >= $2
		RETURNING coin_balance
	`, userID, price).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("%w: update balance", ErrInternal)
	}

	if err := r.insertEntry(ctx2, tx, userID, uuid.NullUUID{}, -price, ReasonPurchase+":"+videoID.String()); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return balance, nil
}

// Adjust applies an admin-initiated balance change. Negative deltas are
// guarded the same way purchases are, so an adjustment can never push a
// balance below zero.
func (r *LedgerRepository) Adjust(ctx context.Context, userID uuid.UUID, adminID uuid.NullUUID, delta int, reason string) (int, error) {
	if delta == 0 {
		return 0, ErrInvalidDelta
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx2, `
		UPDATE users
		SET coin_balance = coin_balance + $2, updated_at = NOW()
		WHERE id = $1 AND coin_balance + $2 >= 0
		RETURNING coin_balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			exists, exErr := r.userExistsTx(ctx2, tx, userID)
			if exErr == nil && !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("%w: update balance", ErrInternal)
	}

	if reason == "" {
		reason = ReasonAdminAdjust
	}
	if err := r.insertEntry(ctx2, tx, userID, adminID, delta, reason); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return balance, nil
}

// Credit adds coins without an acting admin, used for sign-up bonuses.
func (r *LedgerRepository) Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	if amount <= 0 {
		return ErrInvalidDelta
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		UPDATE users
		SET coin_balance = coin_balance + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	if err := r.insertEntry(ctx2, tx, userID, uuid.NullUUID{}, amount, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

// AttachReferral links userID to referrerID and credits both bonuses in one
// transaction. The link update is conditional on no referrer being recorded
// yet, which makes the whole operation one-shot: a second call finds zero
// rows updated, rolls back, and reports attached=false.
func (r *LedgerRepository) AttachReferral(ctx context.Context, userID, referrerID uuid.UUID, bonusReferrer, bonusNewUser int) (bool, error) {
	if userID == referrerID {
		return false, ErrSelfReferral
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		UPDATE users
		SET referred_by_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND referred_by_user_id IS NULL
	`, userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("%w: set referrer", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return false, nil
	}

	if bonusReferrer > 0 {
		if err := r.creditTx(ctx2, tx, referrerID, bonusReferrer, ReasonReferrerBonus); err != nil {
			return false, err
		}
	}
	if bonusNewUser > 0 {
		if err := r.creditTx(ctx2, tx, userID, bonusNewUser, ReasonReferredBonus); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return true, nil
}

func (r *LedgerRepository) ListPurchases(ctx context.Context, userID uuid.UUID) ([]Purchase, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	purchases := make([]Purchase, 0)
	err := r.db.SelectContext(ctx2, &purchases, `
		SELECT id, user_id, video_id, price, created_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list purchases", ErrInternal)
	}

	return purchases, nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]CoinTransaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 || limit > 200 {
		limit = 200
	}

	txs := make([]CoinTransaction, 0)
	err := r.db.SelectContext(ctx2, &txs, `
		SELECT id, user_id, acting_admin_id, delta, reason, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return txs, nil
}

func (r *LedgerRepository) ListAllTransactions(ctx context.Context, limit int) ([]CoinTransaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 || limit > 200 {
		limit = 200
	}

	txs := make([]CoinTransaction, 0)
	err := r.db.SelectContext(ctx2, &txs, `
		SELECT id, user_id, acting_admin_id, delta, reason, created_at
		FROM coin_transactions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return txs, nil
}

func (r *LedgerRepository) creditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, reason string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET coin_balance = coin_balance + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return r.insertEntry(ctx, tx, userID, uuid.NullUUID{}, amount, reason)
}

func (r *LedgerRepository) userExistsTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID)
	return exists, err
}

func (r *LedgerRepository) insertEntry(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, adminID uuid.NullUUID, delta int, reason string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coin_transactions (id, user_id, acting_admin_id, delta, reason)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, userID, adminID, delta, reason)
	if err != nil {
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	return nil
}
