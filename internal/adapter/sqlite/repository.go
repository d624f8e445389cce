package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/goodnews/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: EntityRepository implements domain.EntityRepository.
var _ domain.EntityRepository = (*EntityRepository)(nil)

// EntityRepository implements domain.EntityRepository using SQLite.
type EntityRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*EntityRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY when River uses the same handle.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*EntityRepository, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &EntityRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *EntityRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *EntityRepository) DB() *sql.DB {
	return r.db
}

// Migrate applies the embedded goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width so stored timestamps compare correctly as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const entityColumns = `id, family, title, slug, status, scheduled_at, published_at,
	starts_at, expires_at, ends_at, plan_days, version, created_at, updated_at`

// triggerColumns whitelists the columns a sweep may compare against.
var triggerColumns = map[domain.Trigger]string{
	domain.TriggerScheduledAt: "scheduled_at",
	domain.TriggerExpiresAt:   "expires_at",
	domain.TriggerEndsAt:      "ends_at",
}

func (r *EntityRepository) Insert(ctx context.Context, e domain.Entity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if e.Slug != "" {
		if err := reserveSlug(ctx, tx, e.Family, e.Slug, e.ID, e.CreatedAt); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Family), e.Title, nullString(e.Slug), string(e.Status),
		formatTime(e.ScheduledAt), formatTime(e.PublishedAt),
		formatTime(e.StartsAt), formatTime(e.ExpiresAt), formatTime(e.EndsAt),
		e.PlanDays, e.Version,
		e.CreatedAt.UTC().Format(timeFormat),
		e.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.SlugConflictError{Family: e.Family, Slug: e.Slug}
		}
		return fmt.Errorf("inserting entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}
	return nil
}

func (r *EntityRepository) GetByID(ctx context.Context, family domain.Family, id string) (domain.Entity, error) {
	e, err := scanEntity(r.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ? AND family = ?`,
		id, string(family),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return e, err
}

func (r *EntityRepository) GetBySlug(ctx context.Context, family domain.Family, slug string) (domain.Entity, error) {
	e, err := scanEntity(r.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE family = ? AND slug = ?`,
		string(family), slug,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return e, err
}

func (r *EntityRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities`
	var where []string
	var args []any

	if filter.Family != "" {
		where = append(where, `family = ?`)
		args = append(args, string(filter.Family))
	}
	if filter.Status != nil {
		where = append(where, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}

	query += ` ORDER BY created_at DESC, id`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

// UpdateIf writes e only while the stored row still has the expected status
// and version. The stored version is incremented. A changed slug is reserved
// in the same transaction.
func (r *EntityRepository) UpdateIf(ctx context.Context, e domain.Entity, expected domain.Expected) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if e.Slug != "" {
		if err := reserveSlug(ctx, tx, e.Family, e.Slug, e.ID, e.UpdatedAt); err != nil {
			return 0, err
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE entities SET title = ?, slug = ?, status = ?, scheduled_at = ?, published_at = ?,
		        starts_at = ?, expires_at = ?, ends_at = ?, plan_days = ?,
		        version = version + 1, updated_at = ?
		 WHERE id = ? AND family = ? AND status = ? AND version = ?`,
		e.Title, nullString(e.Slug), string(e.Status),
		formatTime(e.ScheduledAt), formatTime(e.PublishedAt),
		formatTime(e.StartsAt), formatTime(e.ExpiresAt), formatTime(e.EndsAt),
		e.PlanDays, e.UpdatedAt.UTC().Format(timeFormat),
		e.ID, string(e.Family), string(expected.Status), expected.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &domain.SlugConflictError{Family: e.Family, Slug: e.Slug}
		}
		return 0, fmt.Errorf("updating entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return 0, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing update: %w", err)
	}
	return rows, nil
}

func (r *EntityRepository) DeleteIf(ctx context.Context, family domain.Family, id string, expected domain.Expected) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM entities WHERE id = ? AND family = ? AND status = ? AND version = ?`,
		id, string(family), string(expected.Status), expected.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows, nil
}

// SlugTaken reports whether slug has ever been reserved by an entity other
// than excludeID.
func (r *EntityRepository) SlugTaken(ctx context.Context, family domain.Family, slug, excludeID string) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM slug_reservations WHERE family = ? AND slug = ? AND entity_id <> ?)`,
		string(family), slug, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return taken, nil
}

// ApplySweep moves every due row matching rule in one UPDATE statement. The
// status predicate makes repeated sweeps match only rows still in a source
// state.
func (r *EntityRepository) ApplySweep(ctx context.Context, rule domain.SweepRule, now time.Time) (int64, error) {
	col, ok := triggerColumns[rule.Trigger]
	if !ok {
		return 0, fmt.Errorf("unknown sweep trigger %q", rule.Trigger)
	}
	if len(rule.Sources) == 0 {
		return 0, nil
	}

	stamp := now.UTC().Format(timeFormat)

	set := `status = ?, version = version + 1, updated_at = ?`
	args := []any{string(rule.Target), stamp}
	if rule.StampPublished {
		set += `, published_at = COALESCE(published_at, ?)`
		args = append(args, stamp)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rule.Sources)), ", ")
	args = append(args, string(rule.Family))
	for _, s := range rule.Sources {
		args = append(args, string(s))
	}
	args = append(args, stamp)

	query := fmt.Sprintf(
		`UPDATE entities SET %s WHERE family = ? AND status IN (%s) AND %s IS NOT NULL AND %s <= ?`,
		set, placeholders, col, col,
	)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("applying %s sweep: %w", rule.Family, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows, nil
}

// reserveSlug records slug for entityID, or fails if another entity ever held it.
func reserveSlug(ctx context.Context, tx *sql.Tx, family domain.Family, slug, entityID string, at time.Time) error {
	var owner string
	err := tx.QueryRowContext(ctx,
		`SELECT entity_id FROM slug_reservations WHERE family = ? AND slug = ?`,
		string(family), slug,
	).Scan(&owner)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO slug_reservations (family, slug, entity_id, reserved_at) VALUES (?, ?, ?, ?)`,
			string(family), slug, entityID, at.UTC().Format(timeFormat),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.SlugConflictError{Family: family, Slug: slug}
			}
			return fmt.Errorf("reserving slug: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("reading slug reservation: %w", err)
	case owner != entityID:
		return &domain.SlugConflictError{Family: family, Slug: slug}
	default:
		return nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntity scans one row from QueryRow or Rows into a domain.Entity.
func scanEntity(row rowScanner) (domain.Entity, error) {
	var e domain.Entity
	var family, status, createdAt, updatedAt string
	var slug, scheduledAt, publishedAt, startsAt, expiresAt, endsAt sql.NullString

	err := row.Scan(&e.ID, &family, &e.Title, &slug, &status,
		&scheduledAt, &publishedAt, &startsAt, &expiresAt, &endsAt,
		&e.PlanDays, &e.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Entity{}, err
		}
		return domain.Entity{}, fmt.Errorf("scanning entity: %w", err)
	}

	e.Family = domain.Family(family)
	e.Status = domain.Status(status)
	e.Slug = slug.String

	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{scheduledAt, &e.ScheduledAt},
		{publishedAt, &e.PublishedAt},
		{startsAt, &e.StartsAt},
		{expiresAt, &e.ExpiresAt},
		{endsAt, &e.EndsAt},
	} {
		if *f.dst, err = parseNullTime(f.src); err != nil {
			return domain.Entity{}, err
		}
	}

	if e.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return domain.Entity{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return domain.Entity{}, fmt.Errorf("parsing updated_at: %w", err)
	}

	return e, nil
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	} else if offset > 0 {
		// SQLite requires a LIMIT before OFFSET.
		query += ` LIMIT -1`
	}
	if offset > 0 {
		query += ` OFFSET ?`
		args = append(args, offset)
	}
	return query, args
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
