package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
)

var ticketsTracer = otel.Tracer("practice.internal.tickets")

// ticketsDB is the subset of pgxpool.Pool the repository uses.
type ticketsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores tickets in the relational database.
type PostgresRepository struct {
	db ticketsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("tickets: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db ticketsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, practice_id, kind, status, patient_name, patient_phone, patient_email,
		       reason, message, slot_start, slot_end, data, created_at`

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) (*Record, error) {
	ctx, span := ticketsTracer.Start(ctx, "tickets.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.practice_id", string(rec.PracticeID)),
		attribute.String("booking.kind", rec.Kind),
	)

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	stored := *rec
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	data := stored.Data
	if len(data) == 0 {
		data = []byte("{}")
	}

	query := `
		INSERT INTO tickets (id, practice_id, kind, status, patient_name, patient_phone, patient_email,
		                     reason, message, slot_start, slot_end, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := r.db.Exec(ctx, query,
		stored.ID,
		string(stored.PracticeID),
		stored.Kind,
		string(stored.Status),
		stored.PatientName,
		stored.PatientPhone,
		stored.PatientEmail,
		stored.Reason,
		stored.Message,
		toTimestamptz(stored.SlotStart),
		toTimestamptz(stored.SlotEnd),
		[]byte(data),
		stored.CreatedAt,
	); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tickets: insert failed: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, practiceID practice.ID, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTicketNotFound
	}
	query := `SELECT ` + selectColumns + `
		FROM tickets
		WHERE id = $1 AND practice_id = $2
	`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id, string(practiceID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("tickets: select failed: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context, practiceID practice.ID, filter Filter) ([]*Record, error) {
	ctx, span := ticketsTracer.Start(ctx, "tickets.list")
	defer span.End()
	span.SetAttributes(attribute.String("booking.practice_id", string(practiceID)))

	var (
		where = []string{"practice_id = $1"}
		args  = []any{string(practiceID)}
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	query := `SELECT ` + selectColumns + `
		FROM tickets
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tickets: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("tickets: scan failed: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tickets: list failed: %w", err)
	}
	return out, nil
}

// UpdateStatus locks the row, checks the transition and writes the new status
// to the column and the data snapshot.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, practiceID practice.ID, id string, status booking.Status) (*Record, error) {
	ctx, span := ticketsTracer.Start(ctx, "tickets.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.practice_id", string(practiceID)),
		attribute.String("booking.status", string(status)),
	)

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTicketNotFound
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tickets: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + selectColumns + `
		FROM tickets
		WHERE id = $1 AND practice_id = $2
		FOR UPDATE
	`
	rec, err := scanRecord(tx.QueryRow(ctx, query, id, string(practiceID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("tickets: select failed: %w", err)
	}
	if err := CheckTransition(rec.Status, status); err != nil {
		return nil, err
	}
	data, err := withDataStatus(rec.Data, status)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE tickets SET status = $1, data = $2 WHERE id = $3 AND practice_id = $4`,
		string(status), []byte(data), id, string(practiceID)); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tickets: update failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tickets: commit failed: %w", err)
	}
	rec.Status = status
	rec.Data = data
	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, practiceID practice.ID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrTicketNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id = $1 AND practice_id = $2`, id, string(practiceID))
	if err != nil {
		return fmt.Errorf("tickets: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec                Record
		practiceID, status string
		slotStart, slotEnd pgtype.Timestamptz
		data               []byte
	)
	if err := row.Scan(
		&rec.ID,
		&practiceID,
		&rec.Kind,
		&status,
		&rec.PatientName,
		&rec.PatientPhone,
		&rec.PatientEmail,
		&rec.Reason,
		&rec.Message,
		&slotStart,
		&slotEnd,
		&data,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.PracticeID = practice.ID(practiceID)
	rec.Status = booking.Status(status)
	rec.SlotStart = fromTimestamptz(slotStart)
	rec.SlotEnd = fromTimestamptz(slotEnd)
	if len(data) > 0 {
		rec.Data = data
	}
	return &rec, nil
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
