package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barbershop/internal/models"
)

func (d *DB) CreateService(ctx context.Context, s *models.Service) error {
	now := time.Now()
	query := `INSERT INTO services (id, name, duration, price, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := d.db.ExecContext(ctx, query, s.ID, s.Name, s.Duration, s.Price, s.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (d *DB) ListServices(ctx context.Context, activeOnly bool) ([]*models.Service, error) {
	query := `SELECT id, name, duration, price, is_active, created_at, updated_at FROM services`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Duration, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}
	return services, nil
}

func (d *DB) DeactivateService(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE services SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate service: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveServices returns one service per id, preserving input order.
// A single unknown id fails the whole lookup with ErrUnknownService.
func (d *DB) ResolveServices(ctx context.Context, ids []string) ([]*models.Service, error) {
	if len(ids) == 0 {
		return nil, ErrNoServices
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT id, name, duration, price, is_active, created_at, updated_at
              FROM services WHERE id IN (` + placeholders + `)`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve services: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Service, len(ids))
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Duration, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		byID[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}

	resolved := make([]*models.Service, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownService, id)
		}
		resolved = append(resolved, s)
	}
	return resolved, nil
}
