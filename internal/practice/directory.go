package practice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// Profile carries the contact data of a practice.
type Profile struct {
	ID             ID       `json:"id"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	CallbackEmails []string `json:"callback_emails"`
}

// Directory resolves practice profiles.
type Directory interface {
	Profile(ctx context.Context, id ID) (*Profile, error)
}

// StaticDirectory serves the built-in profiles.
type StaticDirectory struct {
	profiles map[ID]Profile
}

// NewStaticDirectory returns a directory seeded with the built-in profiles.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{profiles: map[ID]Profile{
		KrebsNottuln: {
			ID:             KrebsNottuln,
			Name:           "Physiotherapie Krebs Nottuln",
			CallbackEmails: []string{},
		},
		Default20Min: {
			ID:             Default20Min,
			Name:           "Physiotherapie (20 Minuten Takt)",
			CallbackEmails: []string{},
		},
		Default30Min: {
			ID:             Default30Min,
			Name:           "Physiotherapie (30 Minuten Takt)",
			CallbackEmails: []string{},
		},
	}}
}

// Profile returns a copy of the built-in profile.
func (d *StaticDirectory) Profile(_ context.Context, id ID) (*Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPractice, id)
	}
	p.CallbackEmails = append([]string{}, p.CallbackEmails...)
	return &p, nil
}

// SQLDirectory reads profiles from the practices table, falling back to the
// built-in data for practices that have no row yet.
type SQLDirectory struct {
	db       *sql.DB
	fallback *StaticDirectory
	logger   *logging.Logger
}

// NewSQLDirectory wires the directory to a database handle.
func NewSQLDirectory(db *sql.DB, logger *logging.Logger) *SQLDirectory {
	if db == nil {
		panic("practice: sql db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQLDirectory{db: db, fallback: NewStaticDirectory(), logger: logger}
}

// Profile loads a practice row by its internal id.
func (d *SQLDirectory) Profile(ctx context.Context, id ID) (*Profile, error) {
	if !Known(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPractice, id)
	}
	var (
		p            Profile
		phone, email sql.NullString
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT internal_id, name, phone, email, callback_emails
		FROM practices WHERE internal_id = $1`, string(id)).Scan(
		&p.ID, &p.Name, &phone, &email, pq.Array(&p.CallbackEmails))
	if errors.Is(err, sql.ErrNoRows) {
		d.logger.Debug("practice row missing, using built-in profile", "practice_id", id)
		return d.fallback.Profile(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("practice: load profile: %w", err)
	}
	p.Phone = phone.String
	p.Email = email.String
	if p.CallbackEmails == nil {
		p.CallbackEmails = []string{}
	}
	return &p, nil
}
