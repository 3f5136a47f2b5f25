package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// JournalRepository interface that PostgresJournalRepo must implement
type JournalRepository interface {
	Save(ctx context.Context, entry *JournalEntry) error
	Recent(ctx context.Context, limit int) ([]*JournalEntry, error)
	GetByMessageID(ctx context.Context, messageID string) (*JournalEntry, error)
}

// PostgresJournalRepo реализация JournalRepository для PostgreSQL
type PostgresJournalRepo struct {
	DB *sqlx.DB
}

// NewPostgresJournalRepo создает новый репозиторий журнала сигналов
func NewPostgresJournalRepo(db *sqlx.DB) *PostgresJournalRepo {
	return &PostgresJournalRepo{DB: db}
}

// Save создает запись журнала
func (r *PostgresJournalRepo) Save(ctx context.Context, entry *JournalEntry) error {
	query := `
		INSERT INTO signal_journal (
			message_id, source, symbol, direction, entry_low, entry_high,
			stop_price, take_profits, risk_pct, leverage, plan_qty, raw_text, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		entry.MessageID, entry.Source, entry.Symbol, entry.Direction,
		entry.EntryLow, entry.EntryHigh, entry.StopPrice, entry.TakeProfits,
		entry.RiskPct, entry.Leverage, entry.PlanQty, entry.RawText, entry.CreatedAt,
	).Scan(&entry.ID)
}

// Recent возвращает последние записи журнала
func (r *PostgresJournalRepo) Recent(ctx context.Context, limit int) ([]*JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, message_id, source, symbol, direction, entry_low, entry_high,
		       stop_price, take_profits, risk_pct, leverage, plan_qty, raw_text, created_at
		FROM signal_journal
		ORDER BY created_at DESC
		LIMIT $1
	`
	var entries []*JournalEntry
	if err := r.DB.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByMessageID получает запись по идентификатору сообщения
func (r *PostgresJournalRepo) GetByMessageID(ctx context.Context, messageID string) (*JournalEntry, error) {
	query := `
		SELECT id, message_id, source, symbol, direction, entry_low, entry_high,
		       stop_price, take_profits, risk_pct, leverage, plan_qty, raw_text, created_at
		FROM signal_journal
		WHERE message_id = $1
	`
	entry := &JournalEntry{}
	if err := r.DB.GetContext(ctx, entry, query, messageID); err != nil {
		return nil, err
	}
	return entry, nil
}
