package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/agenda-api/internal/models"
)

const resourceColumns = "id, display_name, email, phone, color, active, created_at, updated_at"

// ResourceRepository persists the staff resources shown as grid columns.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns resources ordered by display name then id.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error) {
	base := "FROM resources WHERE 1=1"
	var conditions []string
	var args []interface{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = TRUE")
	}
	if len(filter.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.IDs))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY display_name ASC, id ASC", resourceColumns, base)
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// FindByID loads a resource by id.
func (r *ResourceRepository) FindByID(ctx context.Context, id int64) (*models.Resource, error) {
	query := fmt.Sprintf("SELECT %s FROM resources WHERE id = $1", resourceColumns)
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &resource, nil
}

// Create stores a resource and fills its generated id.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	now := time.Now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now
	const query = `INSERT INTO resources (display_name, email, phone, color, active, created_at, updated_at)
VALUES (:display_name, :email, :phone, :color, :active, :created_at, :updated_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, resource)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&resource.ID); err != nil {
			return fmt.Errorf("scan resource id: %w", err)
		}
	}
	return rows.Err()
}

// Update overwrites the mutable columns of a resource.
func (r *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	resource.UpdatedAt = time.Now().UTC()
	const query = `UPDATE resources SET display_name = :display_name, email = :email, phone = :phone, color = :color, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, resource)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return expectAffected(res)
}

// Deactivate hides a resource from the grid while keeping its history.
func (r *ResourceRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE resources SET active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate resource: %w", err)
	}
	return expectAffected(res)
}

// expectAffected turns a zero-row write into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
