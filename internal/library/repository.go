package library

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

type ReceiptRepository struct {
	db *sql.DB
}

func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Record stores receipt and its lines in one transaction. It reports false
// when a receipt with the same ID was already recorded.
func (r *ReceiptRepository) Record(ctx context.Context, receipt domain.Receipt) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO library.receipts
			(id, units, subtotal, discount, total, balance_before, balance_after, voucher_percent, recipient, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, receipt.ID, receipt.Units, receipt.Subtotal, receipt.Discount, receipt.Total,
		receipt.BalanceBefore, receipt.BalanceAfter, receipt.VoucherPercent, receipt.Recipient, receipt.PurchasedAt)
	if err != nil {
		return false, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		return false, nil
	}

	for i, line := range receipt.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO library.receipt_lines (id, receipt_id, position, title, quantity, unit_price, subtotal, cover_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), receipt.ID, i, line.Title, line.Quantity, line.UnitPrice, line.Subtotal, line.Cover)
		if err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

const receiptColumns = `id, units, subtotal, discount, total, balance_before, balance_after, voucher_percent, recipient, purchased_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(s scanner) (domain.Receipt, error) {
	var rc domain.Receipt
	err := s.Scan(&rc.ID, &rc.Units, &rc.Subtotal, &rc.Discount, &rc.Total,
		&rc.BalanceBefore, &rc.BalanceAfter, &rc.VoucherPercent, &rc.Recipient, &rc.PurchasedAt)
	return rc, err
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*domain.Receipt, error) {
	receipt, err := scanReceipt(r.db.QueryRowContext(ctx, `
		SELECT `+receiptColumns+`
		FROM library.receipts
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT title, quantity, unit_price, subtotal, cover_path
		FROM library.receipt_lines
		WHERE receipt_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	receipt.Lines = []domain.ReceiptLine{}
	for rows.Next() {
		var line domain.ReceiptLine
		if err := rows.Scan(&line.Title, &line.Quantity, &line.UnitPrice, &line.Subtotal, &line.Cover); err != nil {
			return nil, err
		}
		receipt.Lines = append(receipt.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &receipt, nil
}

// List returns the newest receipts first, at most limit of them.
func (r *ReceiptRepository) List(ctx context.Context, limit int) ([]domain.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+receiptColumns+`
		FROM library.receipts
		ORDER BY purchased_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	receiptMap := make(map[string]*domain.Receipt)
	var ids []string

	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipt.Lines = []domain.ReceiptLine{}
		receiptMap[receipt.ID] = &receipt
		ids = append(ids, receipt.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []domain.Receipt{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT receipt_id, title, quantity, unit_price, subtotal, cover_path
		FROM library.receipt_lines
		WHERE receipt_id = ANY($1)
		ORDER BY receipt_id, position
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var receiptID string
		var line domain.ReceiptLine
		if err := lineRows.Scan(&receiptID, &line.Title, &line.Quantity, &line.UnitPrice, &line.Subtotal, &line.Cover); err != nil {
			return nil, err
		}
		receipt := receiptMap[receiptID]
		receipt.Lines = append(receipt.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	receipts := make([]domain.Receipt, 0, len(ids))
	for _, id := range ids {
		receipts = append(receipts, *receiptMap[id])
	}

	return receipts, nil
}

// Owned sums purchased quantities per title across every receipt.
func (r *ReceiptRepository) Owned(ctx context.Context) ([]domain.OwnedGame, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT title, SUM(quantity), MIN(cover_path)
		FROM library.receipt_lines
		GROUP BY title
		ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	owned := []domain.OwnedGame{}
	for rows.Next() {
		var g domain.OwnedGame
		if err := rows.Scan(&g.Title, &g.Quantity, &g.Cover); err != nil {
			return nil, err
		}
		owned = append(owned, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return owned, nil
}
