package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

func TestListAvailabilityFiltersByDateAndService(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)
	rows := sqlmock.NewRows([]string{"slot_date", "slot_time", "duration_minutes", "service"}).
		AddRow("2024-06-10", "15:00", 30, "haircut").
		AddRow("2024-06-10", "16:00", 30, "haircut")

	mock.ExpectQuery("FROM availability_slots").
		WithArgs("2024-06-10", "haircut").
		WillReturnRows(rows)

	slots, err := gateway.ListAvailability(context.Background(), domain.AvailabilityQuery{
		Date:    "2024-06-10",
		Service: "haircut",
	})
	if err != nil {
		t.Fatalf("ListAvailability() error = %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Time != "15:00" {
		t.Fatalf("expected ordered slots, got first time %q", slots[0].Time)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateBookingClaimsSlotAndInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE availability_slots SET booked = TRUE").
		WithArgs("2024-06-10", "15:00", "haircut").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := gateway.CreateBooking(context.Background(), domain.BookingInput{
		Service: "haircut", Date: "2024-06-10", Time: "15:00",
		Timezone: "UTC", Name: "Jane", Phone: "5551212",
	})
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if booking.ID == "" {
		t.Fatalf("expected assigned booking id")
	}
	if booking.Status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed status, got %s", booking.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateBookingReturnsSlotUnavailableOnWriteConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE availability_slots SET booked = TRUE").
		WithArgs("2024-06-10", "15:00", "haircut").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = gateway.CreateBooking(context.Background(), domain.BookingInput{
		Service: "haircut", Date: "2024-06-10", Time: "15:00",
		Timezone: "UTC", Name: "Jane", Phone: "5551212",
	})
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if !domain.IsKind(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable kind, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateBookingRejectsIncompleteInputWithoutTouchingDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)
	_, err = gateway.CreateBooking(context.Background(), domain.BookingInput{Service: "haircut"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation kind, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRescheduleBookingNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings").
		WithArgs("missing", string(domain.BookingConfirmed)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "service", "booking_date", "booking_time", "timezone",
			"customer_name", "phone", "email", "notes", "status", "created_at", "updated_at",
		}))
	mock.ExpectRollback()

	_, err = gateway.RescheduleBooking(context.Background(), "missing", "2024-06-11", "14:00")
	if err == nil {
		t.Fatalf("expected not found error")
	}
	if !domain.IsKind(err, domain.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound kind, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRescheduleBookingMovesSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings").
		WithArgs("b-1", string(domain.BookingConfirmed)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "service", "booking_date", "booking_time", "timezone",
			"customer_name", "phone", "email", "notes", "status", "created_at", "updated_at",
		}).AddRow("b-1", "haircut", "2024-06-10", "15:00", "UTC", "Jane", "5551212", "", "", "confirmed", now, now))
	mock.ExpectExec("UPDATE availability_slots SET booked = TRUE").
		WithArgs("2024-06-11", "14:00", "haircut").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE availability_slots SET booked = FALSE").
		WithArgs("2024-06-10", "15:00", "haircut").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET booking_date").
		WithArgs("b-1", "2024-06-11", "14:00", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := gateway.RescheduleBooking(context.Background(), "b-1", "2024-06-11", "14:00")
	if err != nil {
		t.Fatalf("RescheduleBooking() error = %v", err)
	}
	if booking.Date != "2024-06-11" || booking.Time != "14:00" {
		t.Fatalf("expected moved booking, got %s %s", booking.Date, booking.Time)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCancelBookingFreesSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	gateway := NewGateway(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings").
		WithArgs("b-1", string(domain.BookingConfirmed)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "service", "booking_date", "booking_time", "timezone",
			"customer_name", "phone", "email", "notes", "status", "created_at", "updated_at",
		}).AddRow("b-1", "haircut", "2024-06-10", "15:00", "UTC", "Jane", "5551212", "", "", "confirmed", now, now))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("b-1", string(domain.BookingCancelled), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE availability_slots SET booked = FALSE").
		WithArgs("2024-06-10", "15:00", "haircut").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := gateway.CancelBooking(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if booking.Status != domain.BookingCancelled {
		t.Fatalf("expected cancelled status, got %s", booking.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
