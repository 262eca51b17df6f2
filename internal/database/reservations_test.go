package database

import (
	"context"
	"os"
	"testing"
	"time"

	"barbershop/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func testReservation(barber, start, end string) *models.Reservation {
	return &models.Reservation{
		ID:         uuid.NewString(),
		ClientID:   "client-1",
		ClientName: "Test Client",
		BarberName: barber,
		Date:       time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		StartTime:  start,
		EndTime:    end,
		Services: []models.ServiceSnapshot{
			{ServiceID: "svc-1", Name: "Haircut", Duration: 60, Price: 25},
		},
		Status:        models.StatusPending,
		TotalDuration: 60,
		TotalPrice:    25,
	}
}

func TestCreateReservation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	r := testReservation("Dany", "10:00", "11:00")

	err := db.CreateReservation(ctx, r)
	require.NoError(t, err)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ClientName, got.ClientName)
	assert.Equal(t, "10:00", got.StartTime)
	assert.Equal(t, "11:00", got.EndTime)
	assert.Equal(t, models.StatusPending, got.Status)
	require.Len(t, got.Services, 1)
	assert.Equal(t, "Haircut", got.Services[0].Name)
	assert.Equal(t, 60, got.TotalDuration)
	assert.Equal(t, 25.0, got.TotalPrice)
}

func TestCreateReservation_SlotConflict(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateReservation(ctx, testReservation("Dany", "10:00", "11:00")))

	tests := []struct {
		name       string
		start, end string
		wantErr    error
	}{
		{"identical slot", "10:00", "11:00", ErrSlotConflict},
		{"partial overlap from before", "09:30", "10:30", ErrSlotConflict},
		{"partial overlap from after", "10:30", "11:30", ErrSlotConflict},
		{"contained", "10:15", "10:45", ErrSlotConflict},
		{"containing", "09:00", "12:00", ErrSlotConflict},
		{"abutting before", "09:00", "10:00", nil},
		{"abutting after", "11:00", "12:00", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.CreateReservation(ctx, testReservation("Dany", tt.start, tt.end))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateReservation_NoConflictAcrossBarbersAndDates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateReservation(ctx, testReservation("Dany", "10:00", "11:00")))

	// Same slot, different barber.
	require.NoError(t, db.CreateReservation(ctx, testReservation("Marat", "10:00", "11:00")))

	// Same barber and slot, different date.
	other := testReservation("Dany", "10:00", "11:00")
	other.Date = other.Date.AddDate(0, 0, 1)
	require.NoError(t, db.CreateReservation(ctx, other))
}

func TestCreateReservation_InactiveDoesNotBlock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	cancelled := testReservation("Dany", "10:00", "11:00")
	cancelled.Status = models.StatusCancelled
	require.NoError(t, db.CreateReservation(ctx, cancelled))

	completed := testReservation("Dany", "12:00", "13:00")
	completed.Status = models.StatusCompleted
	require.NoError(t, db.CreateReservation(ctx, completed))

	// Both slots are free again.
	require.NoError(t, db.CreateReservation(ctx, testReservation("Dany", "10:00", "11:00")))
	require.NoError(t, db.CreateReservation(ctx, testReservation("Dany", "12:00", "13:00")))
}

func TestGetReservation_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetReservation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReservation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	r := testReservation("Dany", "10:00", "11:00")
	require.NoError(t, db.CreateReservation(ctx, r))

	r.Status = models.StatusConfirmed
	r.Notes = "prefers scissors"
	require.NoError(t, db.UpdateReservation(ctx, r))

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "prefers scissors", got.Notes)
}

func TestUpdateReservation_KeepOwnSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	r := testReservation("Dany", "10:00", "11:00")
	require.NoError(t, db.CreateReservation(ctx, r))

	// Updating without moving must not conflict with the reservation itself.
	r.Notes = "same slot"
	assert.NoError(t, db.UpdateReservation(ctx, r))
}

func TestUpdateReservation_RescheduleConflict(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateReservation(ctx, testReservation("Dany", "10:00", "11:00")))

	r := testReservation("Dany", "12:00", "13:00")
	require.NoError(t, db.CreateReservation(ctx, r))

	r.StartTime = "10:30"
	r.EndTime = "11:30"
	assert.ErrorIs(t, db.UpdateReservation(ctx, r), ErrSlotConflict)
}

func TestUpdateReservation_CancelledSkipsSlotCheck(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateReservation(ctx, testReservation("Dany", "10:00", "11:00")))

	r := testReservation("Dany", "12:00", "13:00")
	require.NoError(t, db.CreateReservation(ctx, r))

	// Cancelling while nominally moving into an occupied slot is fine, the
	// reservation no longer holds any slot.
	r.Status = models.StatusCancelled
	r.StartTime = "10:00"
	r.EndTime = "11:00"
	assert.NoError(t, db.UpdateReservation(ctx, r))
}

func TestUpdateReservation_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	r := testReservation("Dany", "10:00", "11:00")
	assert.ErrorIs(t, db.UpdateReservation(context.Background(), r), ErrNotFound)
}

func TestDeleteReservation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	r := testReservation("Dany", "10:00", "11:00")
	require.NoError(t, db.CreateReservation(ctx, r))

	require.NoError(t, db.DeleteReservation(ctx, r.ID))
	_, err := db.GetReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.DeleteReservation(ctx, r.ID), ErrNotFound)
}

func TestListReservations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	early := testReservation("Dany", "09:00", "10:00")
	late := testReservation("Dany", "14:00", "15:00")
	late.ClientID = "client-2"
	late.Status = models.StatusConfirmed
	otherBarber := testReservation("Marat", "09:00", "10:00")
	nextDay := testReservation("Dany", "09:00", "10:00")
	nextDay.Date = nextDay.Date.AddDate(0, 0, 1)

	for _, r := range []*models.Reservation{late, nextDay, early, otherBarber} {
		require.NoError(t, db.CreateReservation(ctx, r))
	}

	all, err := db.ListReservations(ctx, models.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Ordered by date, then start time.
	assert.Equal(t, "09:00", all[0].StartTime)
	assert.Equal(t, "14:00", all[2].StartTime)
	assert.Equal(t, nextDay.ID, all[3].ID)

	byBarber, err := db.ListReservations(ctx, models.ReservationFilter{BarberName: "Marat"})
	require.NoError(t, err)
	require.Len(t, byBarber, 1)
	assert.Equal(t, otherBarber.ID, byBarber[0].ID)

	byClient, err := db.ListReservations(ctx, models.ReservationFilter{ClientID: "client-2"})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, late.ID, byClient[0].ID)

	byStatus, err := db.ListReservations(ctx, models.ReservationFilter{Status: models.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	byDate, err := db.ListReservations(ctx, models.ReservationFilter{Date: early.Date})
	require.NoError(t, err)
	assert.Len(t, byDate, 3)

	byRange, err := db.ListReservations(ctx, models.ReservationFilter{
		DateFrom: nextDay.Date,
		DateTo:   nextDay.Date,
	})
	require.NoError(t, err)
	require.Len(t, byRange, 1)
	assert.Equal(t, nextDay.ID, byRange[0].ID)
}

func TestCreateReservation_ConcurrentSameSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	const attempts = 10

	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			errs <- db.CreateReservation(ctx, testReservation("Dany", "10:00", "11:00"))
		}()
	}

	var created, conflicts int
	for i := 0; i < attempts; i++ {
		err := <-errs
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, ErrSlotConflict):
			conflicts++
		}
	}

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
}
