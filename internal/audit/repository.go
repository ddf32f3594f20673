package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles turn_audits PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a single audit row. Redelivered events are ignored by
// their event id.
func (r *Repository) Insert(ctx context.Context, a *TurnAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	debugJSON := a.DebugInfo
	if len(debugJSON) == 0 {
		debugJSON = json.RawMessage(`{}`)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO turn_audits (id, event_id, session_id, request_id, user_message, reply, outcome,
		                          no_new_info, clarification_needed, memory_entries, debug_info, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (event_id) DO NOTHING`,
		a.ID, a.EventID, a.SessionID, a.RequestID, a.UserMessage, a.Reply, a.Outcome,
		a.NoNewInfo, a.ClarificationNeeded, a.MemoryEntries, debugJSON, a.DurationMS, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting turn audit: %w", err)
	}
	return nil
}

// ListBySession returns a page of audits for a session, newest first, and
// the total number of matching rows.
func (r *Repository) ListBySession(ctx context.Context, sessionID string, params ListParams) ([]TurnAudit, int64, error) {
	params.clamp()

	conditions := []string{"session_id = $1"}
	args := []any{sessionID}
	argIdx := 2

	if params.Outcome != "" {
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", argIdx))
		args = append(args, params.Outcome)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var totalCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM turn_audits WHERE %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("counting turn audits: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(
		`SELECT id, event_id, session_id, request_id, user_message, reply, outcome,
		        no_new_info, clarification_needed, memory_entries, debug_info, duration_ms, created_at
		 FROM turn_audits WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying turn audits: %w", err)
	}
	defer rows.Close()

	audits := []TurnAudit{}
	for rows.Next() {
		var a TurnAudit
		if err := rows.Scan(&a.ID, &a.EventID, &a.SessionID, &a.RequestID, &a.UserMessage, &a.Reply, &a.Outcome,
			&a.NoNewInfo, &a.ClarificationNeeded, &a.MemoryEntries, &a.DebugInfo, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning turn audit: %w", err)
		}
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating turn audits: %w", err)
	}

	return audits, totalCount, nil
}
