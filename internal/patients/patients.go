package patients

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

// PlaceholderName is used until a patient tells us their name.
const PlaceholderName = "Paciente"

// ErrNotFound is returned when no patient matches the lookup key.
var ErrNotFound = errors.New("patient not found")

// Patient is a person who messaged a doctor's number, scoped per doctor.
type Patient struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctorId"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores patients in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a patients repository.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("patients: db required")
	}
	return &Repository{db: db}
}

const patientColumns = `id, doctor_id, name, phone_number, notes, created_at, updated_at`

// Create inserts a new patient row.
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = PlaceholderName
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO patients (id, doctor_id, name, phone_number, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.DoctorID, p.Name, p.PhoneNumber, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("patients: create: %w", err)
	}
	return nil
}

// GetByID loads a patient by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// GetByPhone loads a patient by the (doctor, phone) natural key.
func (r *Repository) GetByPhone(ctx context.Context, doctorID uuid.UUID, phone string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE doctor_id = $1 AND phone_number = $2`, doctorID, phone)
	return scanPatient(row)
}

// ListByDoctor returns all patients of a doctor ordered by creation.
func (r *Repository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE doctor_id = $1
		ORDER BY created_at`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("patients: list by doctor: %w", err)
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.DoctorID, &p.Name, &p.PhoneNumber, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("patients: scan: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SetName updates the display name, bumping updated_at.
func (r *Repository) SetName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients SET name = $1, updated_at = $2 WHERE id = $3`,
		name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("patients: set name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert finds or lazily creates the patient behind an inbound phone number.
// A known placeholder name is back-filled once the patient introduces
// themselves; a real name is never overwritten.
func (r *Repository) Upsert(ctx context.Context, doctorID uuid.UUID, phone, name string) (*Patient, error) {
	existing, err := r.GetByPhone(ctx, doctorID, phone)
	if err == nil {
		name = strings.TrimSpace(name)
		if name != "" && existing.Name == PlaceholderName {
			if err := r.SetName(ctx, existing.ID, name); err != nil {
				return nil, err
			}
			existing.Name = name
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p := &Patient{DoctorID: doctorID, PhoneNumber: phone, Name: strings.TrimSpace(name)}
	if err := r.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.DoctorID, &p.Name, &p.PhoneNumber, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: scan: %w", err)
	}
	return &p, nil
}
