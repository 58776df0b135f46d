package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

const insertDLQSQL = `
INSERT INTO dlq_entry (raw_message, error_detail)
VALUES ($1, $2)
RETURNING id`

// QuarantineRepo writes dead-letter rows. Callers that need the write to
// survive a failing batch run it on its own transaction via Store.WithTx.
type QuarantineRepo struct{}

func NewQuarantineRepo() *QuarantineRepo { return &QuarantineRepo{} }

// Insert records one unprocessable payload with a bounded error detail.
func (r *QuarantineRepo) Insert(ctx context.Context, tx pgx.Tx, raw []byte, reason string) (int64, error) {
	var id int64
	row := tx.QueryRow(ctx, insertDLQSQL, raw, domain.TruncateErrorDetail(reason))
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert dlq_entry: %w", err)
	}
	return id, nil
}
