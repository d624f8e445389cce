package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// Compile-time check: AuditStore implements domain.AuditStore.
var _ domain.AuditStore = (*AuditStore)(nil)

// AuditStore implements domain.AuditStore on the audit_records table.
// Rows are append-only; the schema rejects updates and deletes.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore uses a database already migrated by New or NewFromDB.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, rec domain.AuditRecord) error {
	before, err := encodeSnapshot(rec.Before)
	if err != nil {
		return fmt.Errorf("encoding before snapshot: %w", err)
	}
	after, err := encodeSnapshot(rec.After)
	if err != nil {
		return fmt.Errorf("encoding after snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, actor_id, action, family, entity_id, before_json, after_json, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ActorID, rec.Action, string(rec.Family), rec.EntityID,
		before, after, rec.OccurredAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func (s *AuditStore) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	query := `SELECT id, actor_id, action, family, entity_id, before_json, after_json, occurred_at FROM audit_records`
	var where []string
	var args []any

	for _, c := range []struct {
		column string
		value  string
	}{
		{"family", string(filter.Family)},
		{"entity_id", filter.EntityID},
		{"actor_id", filter.ActorID},
		{"action", filter.Action},
	} {
		if c.value != "" {
			where = append(where, c.column+` = ?`)
			args = append(args, c.value)
		}
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}

	query += ` ORDER BY occurred_at DESC, rowid DESC`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var family, occurredAt string
		var before, after sql.NullString

		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &family, &rec.EntityID, &before, &after, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}

		rec.Family = domain.Family(family)
		if rec.Before, err = decodeSnapshot(before); err != nil {
			return nil, err
		}
		if rec.After, err = decodeSnapshot(after); err != nil {
			return nil, err
		}
		if rec.OccurredAt, err = time.Parse(timeFormat, occurredAt); err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func encodeSnapshot(s domain.Snapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeSnapshot(s sql.NullString) (domain.Snapshot, error) {
	if !s.Valid {
		return nil, nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(s.String), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
