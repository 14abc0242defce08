package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/events"
)

const (
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
)

// pgDB is satisfied by *pgxpool.Pool and pgx.Tx.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores working hours in the working_hours table. Change
// events are appended to the outbox in the caller's transaction.
type PostgresRepository struct {
	db   pgDB
	inTx bool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) DoctorExists(ctx context.Context, doctorID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, doctorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("schedule: doctor exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) LockDoctor(ctx context.Context, doctorID int64) error {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM doctors WHERE id = $1 FOR UPDATE`, doctorID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrDoctorNotFound, doctorID)
	}
	if err != nil {
		return fmt.Errorf("schedule: lock doctor: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LoadWeeklyTemplate(ctx context.Context, doctorID int64) (WeeklyTemplate, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute
		FROM working_hours
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_minute
	`
	entries, err := r.queryEntries(ctx, query, doctorID)
	if err != nil {
		return WeeklyTemplate{}, err
	}
	return NewWeeklyTemplate(doctorID, entries), nil
}

func (r *PostgresRepository) LoadDayEntries(ctx context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute
		FROM working_hours
		WHERE doctor_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`
	return r.queryEntries(ctx, query, doctorID, int(day))
}

func (r *PostgresRepository) LoadEntry(ctx context.Context, id int64) (WorkingHoursEntry, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute
		FROM working_hours
		WHERE id = $1
	`
	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkingHoursEntry{}, fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	if err != nil {
		return WorkingHoursEntry{}, fmt.Errorf("schedule: load entry: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) InsertEntry(ctx context.Context, entry WorkingHoursEntry) (WorkingHoursEntry, error) {
	query := `
		INSERT INTO working_hours (doctor_id, day_of_week, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, entry.DoctorID, int(entry.Day), int(entry.Start), int(entry.End)).Scan(&entry.ID)
	if err != nil {
		return WorkingHoursEntry{}, mapWriteError("insert working hours", entry.DoctorID, err)
	}
	return entry, nil
}

func (r *PostgresRepository) UpdateEntry(ctx context.Context, entry WorkingHoursEntry) error {
	query := `
		UPDATE working_hours
		SET day_of_week = $2, start_minute = $3, end_minute = $4, updated_at = now()
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query, entry.ID, int(entry.Day), int(entry.Start), int(entry.End))
	if err != nil {
		return mapWriteError("update working hours", entry.DoctorID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, entry.ID)
	}
	return nil
}

func (r *PostgresRepository) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM working_hours WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("schedule: delete working hours: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresRepository) DeleteAllForDoctor(ctx context.Context, doctorID int64) (int, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM working_hours WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("schedule: delete all working hours: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (r *PostgresRepository) RecordChange(ctx context.Context, change Change) error {
	if _, err := events.NewOutboxStoreWithDB(r.db).Insert(ctx, change.DoctorID, change.Type, change); err != nil {
		return fmt.Errorf("schedule: record change: %w", err)
	}
	return nil
}

// InTx runs fn in a transaction. Nested calls reuse the outer transaction.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schedule: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresRepository{db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schedule: commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryEntries(ctx context.Context, query string, args ...any) ([]WorkingHoursEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("schedule: query working hours: %w", err)
	}
	defer rows.Close()

	entries := []WorkingHoursEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("schedule: scan working hours: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: iterate working hours: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (WorkingHoursEntry, error) {
	var (
		entry           WorkingHoursEntry
		day, start, end int
	)
	if err := row.Scan(&entry.ID, &entry.DoctorID, &day, &start, &end); err != nil {
		return WorkingHoursEntry{}, err
	}
	entry.Day = DayOfWeek(day)
	entry.Interval = Interval{Start: TimeOfDay(start), End: TimeOfDay(end)}
	return entry, nil
}

// mapWriteError turns constraint violations into domain errors.
func mapWriteError(action string, doctorID int64, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return fmt.Errorf("schedule: %s: %w", action, ErrOverlap)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %d", ErrDoctorNotFound, doctorID)
		}
	}
	return fmt.Errorf("schedule: %s: %w", action, err)
}
