package whitelist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no entry matches the lookup key.
	ErrNotFound = errors.New("whitelist entry not found")

	// ErrDuplicate is returned when the phone number is already listed for the doctor.
	ErrDuplicate = errors.New("phone number already in whitelist")

	// ErrMissingPhone is returned when an add request has no phone number.
	ErrMissingPhone = errors.New("phone number is required")
)

// Entry allows one phone number to engage a whitelist-only doctor's booking flow.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctorId"`
	PhoneNumber string    `json:"phoneNumber"`
	PatientName string    `json:"patientName,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores whitelist entries in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a whitelist repository.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("whitelist: db required")
	}
	return &Repository{db: db}
}

// Add inserts an entry, rejecting duplicates on (doctor_id, phone_number).
func (r *Repository) Add(ctx context.Context, e *Entry) error {
	if strings.TrimSpace(e.PhoneNumber) == "" {
		return ErrMissingPhone
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO whitelist_entries (id, doctor_id, phone_number, patient_name, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.DoctorID, e.PhoneNumber, e.PatientName, e.Notes, e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("whitelist: add: %w", err)
	}
	return nil
}

// ListByDoctor returns all entries for a doctor.
func (r *Repository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, phone_number, patient_name, notes, created_at
		FROM whitelist_entries
		WHERE doctor_id = $1
		ORDER BY created_at`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("whitelist: list: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DoctorID, &e.PhoneNumber, &e.PatientName, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("whitelist: scan: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Allowed reports whether the phone number is listed for the doctor.
func (r *Repository) Allowed(ctx context.Context, doctorID uuid.UUID, phone string) (bool, error) {
	var exists int
	err := r.db.QueryRow(ctx, `
		SELECT 1 FROM whitelist_entries
		WHERE doctor_id = $1 AND phone_number = $2`, doctorID, phone).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("whitelist: allowed: %w", err)
	}
	return true, nil
}

// Remove deletes an entry by id.
func (r *Repository) Remove(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM whitelist_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("whitelist: remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
