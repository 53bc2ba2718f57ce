package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one confirmed booking in the ledger.
type Record struct {
	ID               uuid.UUID  `json:"id"`
	AppointmentID    string     `json:"appointmentId"`
	UserID           string     `json:"userId"`
	DoctorID         string     `json:"doctorId"`
	DoctorName       string     `json:"doctorName"`
	ScheduledFor     *time.Time `json:"scheduledFor,omitempty"`
	ConsultationType string     `json:"consultationType"`
	Reason           string     `json:"reason"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository persists ledger rows in Postgres.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	return &Repository{db: q}
}

// Insert stores rec. Re-inserting an appointment already in the ledger is a
// no-op reported as inserted == false.
func (r *Repository) Insert(ctx context.Context, rec Record) (bool, error) {
	query := `
		INSERT INTO bookings (id, appointment_id, user_id, doctor_id, doctor_name, scheduled_for, consultation_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (appointment_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		rec.ID, rec.AppointmentID, rec.UserID, rec.DoctorID, rec.DoctorName,
		rec.ScheduledFor, rec.ConsultationType, rec.Reason, rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("bookings: insert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecent returns the patient's latest bookings, newest first.
func (r *Repository) ListRecent(ctx context.Context, userID string, limit int32) ([]Record, error) {
	query := `
		SELECT id, appointment_id, user_id, doctor_id, doctor_name, scheduled_for, consultation_type, reason, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list recent: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.AppointmentID, &rec.UserID, &rec.DoctorID, &rec.DoctorName,
			&rec.ScheduledFor, &rec.ConsultationType, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
