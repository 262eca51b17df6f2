package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"barbershop/internal/models"
)

const reservationColumns = `id, client_id, client_name, client_phone, barber_name,
                 date(date), start_time, end_time, services, status, notes,
                 total_duration, total_price, created_at, updated_at`

// CreateReservation checks the candidate slot against active reservations for
// the same barber and date and inserts it, all inside one transaction. SQLite
// holds a single writer, so the check and the insert cannot interleave with a
// concurrent booking.
func (d *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var conflicts int
	queryOverlap := `SELECT COUNT(*) FROM reservations
              WHERE barber_name = ? AND date(date) = date(?)
              AND status IN (?, ?)
              AND start_time < ? AND end_time > ?`
	err = tx.QueryRowContext(ctx, queryOverlap,
		r.BarberName, r.Date.Format(models.DateFormat),
		models.StatusPending, models.StatusConfirmed,
		r.EndTime, r.StartTime,
	).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if conflicts > 0 {
		return ErrSlotConflict
	}

	services, err := json.Marshal(r.Services)
	if err != nil {
		return fmt.Errorf("failed to encode service snapshots: %w", err)
	}

	now := time.Now()
	queryInsert := `INSERT INTO reservations (
				id, client_id, client_name, client_phone, barber_name,
				date, start_time, end_time, services, status, notes,
				total_duration, total_price, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		r.ID,
		r.ClientID,
		r.ClientName,
		r.ClientPhone,
		r.BarberName,
		r.Date.Format(models.DateFormat),
		r.StartTime,
		r.EndTime,
		string(services),
		r.Status,
		r.Notes,
		r.TotalDuration,
		r.TotalPrice,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	return tx.Commit()
}

func (d *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// UpdateReservation replaces all mutable fields. For a reservation that is
// still active it re-checks the slot against other active reservations in the
// same transaction, so a reschedule cannot introduce a conflict.
func (d *DB) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if r.IsActive() {
		var conflicts int
		queryOverlap := `SELECT COUNT(*) FROM reservations
              WHERE barber_name = ? AND date(date) = date(?)
              AND status IN (?, ?)
              AND id != ?
              AND start_time < ? AND end_time > ?`
		err = tx.QueryRowContext(ctx, queryOverlap,
			r.BarberName, r.Date.Format(models.DateFormat),
			models.StatusPending, models.StatusConfirmed,
			r.ID,
			r.EndTime, r.StartTime,
		).Scan(&conflicts)
		if err != nil {
			return fmt.Errorf("failed to check slot in tx: %w", err)
		}
		if conflicts > 0 {
			return ErrSlotConflict
		}
	}

	services, err := json.Marshal(r.Services)
	if err != nil {
		return fmt.Errorf("failed to encode service snapshots: %w", err)
	}

	now := time.Now()
	query := `UPDATE reservations SET
				client_name = ?, client_phone = ?, barber_name = ?, date = ?,
				start_time = ?, end_time = ?, services = ?, status = ?, notes = ?,
				total_duration = ?, total_price = ?, updated_at = ?
			WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		r.ClientName,
		r.ClientPhone,
		r.BarberName,
		r.Date.Format(models.DateFormat),
		r.StartTime,
		r.EndTime,
		string(services),
		r.Status,
		r.Notes,
		r.TotalDuration,
		r.TotalPrice,
		now,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	r.UpdatedAt = now

	return tx.Commit()
}

func (d *DB) DeleteReservation(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) ListReservations(ctx context.Context, f models.ReservationFilter) ([]*models.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.BarberName != "" {
		where = append(where, "barber_name = ?")
		args = append(args, f.BarberName)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if !f.Date.IsZero() {
		where = append(where, "date(date) = date(?)")
		args = append(args, f.Date.Format(models.DateFormat))
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "date(date) >= date(?)")
		args = append(args, f.DateFrom.Format(models.DateFormat))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "date(date) <= date(?)")
		args = append(args, f.DateTo.Format(models.DateFormat))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return reservations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r        models.Reservation
		dateStr  string
		services string
		phone    sql.NullString
		notes    sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.ClientID, &r.ClientName, &phone, &r.BarberName,
		&dateStr, &r.StartTime, &r.EndTime, &services, &r.Status, &notes,
		&r.TotalDuration, &r.TotalPrice, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ClientPhone = phone.String
	r.Notes = notes.String

	r.Date, err = time.Parse(models.DateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation date %s: %w", dateStr, err)
	}
	if err := json.Unmarshal([]byte(services), &r.Services); err != nil {
		return nil, fmt.Errorf("failed to decode service snapshots: %w", err)
	}
	return &r, nil
}
