package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barbershop/internal/models"
)

// UpsertSubscription inserts the subscription or, when (user_id, endpoint)
// already exists, refreshes its keys and metadata and reactivates it. The
// existing row keeps its id and created_at; s is updated in place to reflect
// the stored record.
func (d *DB) UpsertSubscription(ctx context.Context, s *models.PushSubscription) error {
	now := time.Now()
	query := `INSERT INTO push_subscriptions (
				id, user_id, endpoint, p256dh, auth, is_active,
				device_name, user_agent, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
			ON CONFLICT(user_id, endpoint) DO UPDATE SET
				p256dh = excluded.p256dh,
				auth = excluded.auth,
				is_active = 1,
				device_name = excluded.device_name,
				user_agent = excluded.user_agent,
				updated_at = excluded.updated_at`
	_, err := d.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.Endpoint, s.P256dh, s.Auth,
		s.DeviceName, s.UserAgent, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	stored, err := d.getSubscriptionByEndpoint(ctx, s.UserID, s.Endpoint)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

func (d *DB) getSubscriptionByEndpoint(ctx context.Context, userID, endpoint string) (*models.PushSubscription, error) {
	query := `SELECT id, user_id, endpoint, p256dh, auth, is_active,
                 device_name, user_agent, created_at, updated_at
              FROM push_subscriptions WHERE user_id = ? AND endpoint = ?`
	s, err := scanSubscription(d.db.QueryRowContext(ctx, query, userID, endpoint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return s, nil
}

// DeactivateSubscription soft-deletes the matching record. Absent records are
// not an error; unsubscribe is idempotent.
func (d *DB) DeactivateSubscription(ctx context.Context, userID, endpoint string) error {
	query := `UPDATE push_subscriptions SET is_active = 0, updated_at = ? WHERE user_id = ? AND endpoint = ?`
	if _, err := d.db.ExecContext(ctx, query, time.Now(), userID, endpoint); err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

// DeactivateSubscriptionByID soft-deletes a record after a permanent delivery
// failure so future broadcasts skip it.
func (d *DB) DeactivateSubscriptionByID(ctx context.Context, id string) error {
	query := `UPDATE push_subscriptions SET is_active = 0, updated_at = ? WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

func (d *DB) ListUserSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	query := `SELECT id, user_id, endpoint, p256dh, auth, is_active,
                 device_name, user_agent, created_at, updated_at
              FROM push_subscriptions WHERE user_id = ? AND is_active = 1`
	return d.listSubscriptions(ctx, query, userID)
}

func (d *DB) ListActiveSubscriptions(ctx context.Context) ([]*models.PushSubscription, error) {
	query := `SELECT id, user_id, endpoint, p256dh, auth, is_active,
                 device_name, user_agent, created_at, updated_at
              FROM push_subscriptions WHERE is_active = 1`
	return d.listSubscriptions(ctx, query)
}

func (d *DB) listSubscriptions(ctx context.Context, query string, args ...any) ([]*models.PushSubscription, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.PushSubscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(row rowScanner) (*models.PushSubscription, error) {
	var (
		s          models.PushSubscription
		deviceName sql.NullString
		userAgent  sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.IsActive,
		&deviceName, &userAgent, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.DeviceName = deviceName.String
	s.UserAgent = userAgent.String
	return &s, nil
}
