package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"contactbot/core/logger"
)

// Submission is one row accepted through the HTTP intake endpoint.
type Submission struct {
	ID          int64  `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	PhoneNumber string `db:"phone_number" json:"phone_number"`
}

// SubmissionRepo stores intake rows and the relational user log in Postgres.
type SubmissionRepo struct {
	db *sqlx.DB
}

// NewSubmissionRepo wraps the shared database handle.
func NewSubmissionRepo(db *sqlx.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

// Insert stores one intake row.
func (r *SubmissionRepo) Insert(ctx context.Context, fullName, phoneNumber string) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (full_name, phone_number) VALUES ($1, $2)`,
		fullName, phoneNumber,
	)
	if err != nil {
		logger.Error(ctx, "store", "db.insert",
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("insert submission: %w", err)
	}
	logger.Debug(ctx, "store", "db.insert",
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// List returns every stored intake row.
func (r *SubmissionRepo) List(ctx context.Context) ([]Submission, error) {
	rows := []Submission{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, full_name, phone_number FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return rows, nil
}

// RecordUser upserts an observed Telegram user id into the relational log.
// Idempotent via the unique constraint.
func (r *SubmissionRepo) RecordUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bot_users (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("record user: %w", err)
	}
	return nil
}

// ListUserIDs returns all recorded Telegram user ids in ascending order.
func (r *SubmissionRepo) ListUserIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT telegram_id FROM bot_users ORDER BY telegram_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}
