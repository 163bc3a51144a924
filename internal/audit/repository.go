package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads audit_logs from PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Timeline runs q against audit_logs.
func (r *PgRepository) Timeline(ctx context.Context, q Query) ([]TimelineRow, error) {
	where := []string{"occurred_at >= $1", "occurred_at <= $2"}
	args := []any{q.From, q.To}
	add := func(expr string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(expr, len(args)))
	}
	if q.ActorID > 0 {
		add("actor_id = $%d", q.ActorID)
	}
	if q.Entity != "" {
		add("entity = $%d", q.Entity)
	}
	if q.EntityID != "" {
		add("entity_id = $%d", q.EntityID)
	}
	if q.Action != "" {
		add("action = $%d", q.Action)
	}
	args = append(args, q.Limit, q.Offset)
	sql := `SELECT id, occurred_at, COALESCE(actor_id, 0), action, entity, entity_id, meta FROM audit_logs WHERE ` +
		strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("decode meta of audit row %d: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
