package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
	"github.com/kirillkom/booking-assistant/internal/infrastructure/resilience"
)

// Gateway is the calendar backend. Availability reads are advisory; every
// write re-checks the slot row inside its transaction, so a conflict
// reported here is authoritative.
type Gateway struct {
	db       *sql.DB
	executor *resilience.Executor
}

type Options struct {
	ResilienceExecutor *resilience.Executor
}

func NewGateway(db *sql.DB) *Gateway {
	return NewGatewayWithOptions(db, Options{})
}

func NewGatewayWithOptions(db *sql.DB, options Options) *Gateway {
	return &Gateway{db: db, executor: options.ResilienceExecutor}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (g *Gateway) EnsureSchema(ctx context.Context) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api instances.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS availability_slots (
	slot_date TEXT NOT NULL,
	slot_time TEXT NOT NULL,
	service TEXT NOT NULL,
	duration_minutes INT NOT NULL DEFAULT 30,
	booked BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (slot_date, slot_time, service)
);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	service TEXT NOT NULL,
	booking_date TEXT NOT NULL,
	booking_time TEXT NOT NULL,
	timezone TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_availability_open
	ON availability_slots (slot_date, service) WHERE NOT booked;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return tx.Commit()
}

// ListAvailability returns open slots, optionally filtered by date and
// service. The timezone is an opaque pass-through and does not shift the
// stored business-local times. Safe to call repeatedly.
func (g *Gateway) ListAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.AvailabilitySlot, error) {
	var out []domain.AvailabilitySlot
	call := func(ctx context.Context) error {
		slots, err := g.listAvailability(ctx, query)
		if err != nil {
			return err
		}
		out = slots
		return nil
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "calendar.list_availability", call, classifyPostgresError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("list availability", err)
	}
	return out, nil
}

func (g *Gateway) listAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.AvailabilitySlot, error) {
	sqlQuery := `
SELECT slot_date, slot_time, duration_minutes, service
FROM availability_slots
WHERE NOT booked
`
	args := make([]any, 0, 2)
	if query.Date != "" {
		args = append(args, query.Date)
		sqlQuery += fmt.Sprintf("AND slot_date = $%d\n", len(args))
	}
	if query.Service != "" {
		args = append(args, query.Service)
		sqlQuery += fmt.Sprintf("AND service = $%d\n", len(args))
	}
	sqlQuery += "ORDER BY slot_date, slot_time"

	rows, err := g.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AvailabilitySlot, 0)
	for rows.Next() {
		var slot domain.AvailabilitySlot
		if err := rows.Scan(&slot.Date, &slot.Time, &slot.DurationMinutes, &slot.Service); err != nil {
			return nil, fmt.Errorf("scan availability slot: %w", err)
		}
		out = append(out, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}
	return out, nil
}

// CreateBooking claims the slot row and inserts the booking in one
// transaction. A zero-row claim means the slot was taken since the
// availability read.
func (g *Gateway) CreateBooking(ctx context.Context, input domain.BookingInput) (*domain.Booking, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("create booking", fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := claimSlot(ctx, tx, input.Date, input.Time, input.Service); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking := &domain.Booking{
		ID:        uuid.NewString(),
		Service:   input.Service,
		Date:      input.Date,
		Time:      input.Time,
		Timezone:  input.Timezone,
		Name:      input.Name,
		Phone:     input.Phone,
		Email:     input.Email,
		Notes:     input.Notes,
		Status:    domain.BookingConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO bookings (id, service, booking_date, booking_time, timezone, customer_name, phone, email, notes, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, booking.ID, booking.Service, booking.Date, booking.Time, booking.Timezone,
		booking.Name, booking.Phone, booking.Email, booking.Notes, string(booking.Status),
		booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("create booking", fmt.Errorf("insert booking: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapTemporaryIfNeeded("create booking", fmt.Errorf("commit: %w", err))
	}
	return booking, nil
}

// RescheduleBooking moves a confirmed booking to a new slot: claims the new
// slot, frees the old one, and updates the booking row, all in one
// transaction.
func (g *Gateway) RescheduleBooking(ctx context.Context, bookingID, newDate, newTime string) (*domain.Booking, error) {
	if bookingID == "" || newDate == "" || newTime == "" {
		return nil, domain.WrapError(domain.ErrValidation, "reschedule booking", fmt.Errorf("booking id, date and time are required"))
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("reschedule booking", fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := claimSlot(ctx, tx, newDate, newTime, booking.Service); err != nil {
		return nil, err
	}
	if err := freeSlot(ctx, tx, booking.Date, booking.Time, booking.Service); err != nil {
		return nil, err
	}

	booking.Date = newDate
	booking.Time = newTime
	booking.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
UPDATE bookings SET booking_date = $2, booking_time = $3, updated_at = $4
WHERE id = $1
`, booking.ID, booking.Date, booking.Time, booking.UpdatedAt)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("reschedule booking", fmt.Errorf("update booking: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapTemporaryIfNeeded("reschedule booking", fmt.Errorf("commit: %w", err))
	}
	return booking, nil
}

// CancelBooking marks the booking cancelled and frees its slot.
func (g *Gateway) CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "cancel booking", fmt.Errorf("booking id is required"))
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("cancel booking", fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	booking.Status = domain.BookingCancelled
	booking.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
UPDATE bookings SET status = $2, updated_at = $3
WHERE id = $1
`, booking.ID, string(booking.Status), booking.UpdatedAt)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("cancel booking", fmt.Errorf("update booking: %w", err))
	}

	if err := freeSlot(ctx, tx, booking.Date, booking.Time, booking.Service); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapTemporaryIfNeeded("cancel booking", fmt.Errorf("commit: %w", err))
	}
	return booking, nil
}

func claimSlot(ctx context.Context, tx *sql.Tx, date, clock, service string) error {
	result, err := tx.ExecContext(ctx, `
UPDATE availability_slots SET booked = TRUE
WHERE slot_date = $1 AND slot_time = $2 AND service = $3 AND NOT booked
`, date, clock, service)
	if err != nil {
		return wrapTemporaryIfNeeded("claim slot", fmt.Errorf("claim slot: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim slot rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrSlotUnavailable, "claim slot",
			fmt.Errorf("%s %s %s is not open", date, clock, service))
	}
	return nil
}

func freeSlot(ctx context.Context, tx *sql.Tx, date, clock, service string) error {
	_, err := tx.ExecContext(ctx, `
UPDATE availability_slots SET booked = FALSE
WHERE slot_date = $1 AND slot_time = $2 AND service = $3
`, date, clock, service)
	if err != nil {
		return wrapTemporaryIfNeeded("free slot", fmt.Errorf("free slot: %w", err))
	}
	return nil
}

func lockBooking(ctx context.Context, tx *sql.Tx, bookingID string) (*domain.Booking, error) {
	row := tx.QueryRowContext(ctx, `
SELECT id, service, booking_date, booking_time, timezone, customer_name, phone, email, notes, status, created_at, updated_at
FROM bookings
WHERE id = $1 AND status = $2
FOR UPDATE
`, bookingID, string(domain.BookingConfirmed))

	var booking domain.Booking
	var status string
	err := row.Scan(
		&booking.ID, &booking.Service, &booking.Date, &booking.Time, &booking.Timezone,
		&booking.Name, &booking.Phone, &booking.Email, &booking.Notes, &status,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBookingNotFound, "lock booking",
				fmt.Errorf("id=%s", bookingID))
		}
		return nil, wrapTemporaryIfNeeded("lock booking", fmt.Errorf("scan booking: %w", err))
	}
	booking.Status = domain.BookingStatus(status)
	return &booking, nil
}
