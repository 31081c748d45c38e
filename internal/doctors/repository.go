package doctors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores doctors in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a doctors repository.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("doctors: db required")
	}
	return &Repository{db: db}
}

const doctorColumns = `id, name, phone_number, secondary_phone, specialty, welcome_message,
	payment_link, notification_email, whitelist_only, schedule, subscription_status,
	subscription_expires_at, created_at, updated_at`

// Create inserts a new doctor row.
func (r *Repository) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.SubscriptionStatus == "" {
		d.SubscriptionStatus = SubscriptionTrial
	}

	scheduleJSON, err := json.Marshal(d.Schedule)
	if err != nil {
		return fmt.Errorf("doctors: encode schedule: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO doctors (id, name, phone_number, secondary_phone, specialty, welcome_message,
			payment_link, notification_email, whitelist_only, schedule, subscription_status,
			subscription_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.Name, d.PhoneNumber, d.SecondaryPhone, d.Specialty, d.WelcomeMessage,
		d.PaymentLink, d.NotificationEmail, d.WhitelistOnly, scheduleJSON,
		string(d.SubscriptionStatus), d.SubscriptionExpiresAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("doctors: create: %w", err)
	}
	return nil
}

// GetByID loads a doctor by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

// GetByPhone resolves the doctor owning a WhatsApp number, checking the
// secondary channel number as well.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE phone_number = $1 OR secondary_phone = $1`, phone)
	return scanDoctor(row)
}

// List returns every doctor ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `SELECT `+doctorColumns+` FROM doctors ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	return out, nil
}

// Update applies the non-nil fields of input and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Doctor, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		existing.Name = *input.Name
	}
	if input.SecondaryPhone != nil {
		existing.SecondaryPhone = *input.SecondaryPhone
	}
	if input.Specialty != nil {
		existing.Specialty = *input.Specialty
	}
	if input.WelcomeMessage != nil {
		existing.WelcomeMessage = *input.WelcomeMessage
	}
	if input.PaymentLink != nil {
		existing.PaymentLink = *input.PaymentLink
	}
	if input.NotificationEmail != nil {
		existing.NotificationEmail = *input.NotificationEmail
	}
	if input.WhitelistOnly != nil {
		existing.WhitelistOnly = *input.WhitelistOnly
	}
	if input.Schedule != nil {
		existing.Schedule = *input.Schedule
	}
	if input.SubscriptionStatus != nil {
		existing.SubscriptionStatus = *input.SubscriptionStatus
	}
	if input.SubscriptionExpiresAt != nil {
		existing.SubscriptionExpiresAt = input.SubscriptionExpiresAt
	}
	existing.UpdatedAt = time.Now().UTC()

	scheduleJSON, err := json.Marshal(existing.Schedule)
	if err != nil {
		return nil, fmt.Errorf("doctors: encode schedule: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		UPDATE doctors
		SET name = $1, secondary_phone = $2, specialty = $3, welcome_message = $4,
			payment_link = $5, notification_email = $6, whitelist_only = $7, schedule = $8,
			subscription_status = $9, subscription_expires_at = $10, updated_at = $11
		WHERE id = $12`,
		existing.Name, existing.SecondaryPhone, existing.Specialty, existing.WelcomeMessage,
		existing.PaymentLink, existing.NotificationEmail, existing.WhitelistOnly, scheduleJSON,
		string(existing.SubscriptionStatus), existing.SubscriptionExpiresAt,
		existing.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("doctors: update: %w", err)
	}
	return existing, nil
}

// Delete removes the doctor; patients, appointments and whitelist entries cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("doctors: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var scheduleJSON []byte
	var status string
	err := row.Scan(
		&d.ID, &d.Name, &d.PhoneNumber, &d.SecondaryPhone, &d.Specialty, &d.WelcomeMessage,
		&d.PaymentLink, &d.NotificationEmail, &d.WhitelistOnly, &scheduleJSON, &status,
		&d.SubscriptionExpiresAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("doctors: scan: %w", err)
	}
	d.SubscriptionStatus = SubscriptionStatus(status)
	if err := json.Unmarshal(scheduleJSON, &d.Schedule); err != nil {
		return nil, fmt.Errorf("doctors: decode schedule: %w", err)
	}
	return &d, nil
}
