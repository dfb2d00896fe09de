package sqlite

import (
	"context"
	"fmt"

	"github.com/example/room-booking/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO users (id, email, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, email, display_name, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	var user persistence.User
	var createdAtStr, updatedAtStr string

	err := r.helper.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}

	if user.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return user, nil
}

// ListUsers returns all users ordered by creation time, then ID.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	query := `
		SELECT id, email, display_name, created_at, updated_at
		FROM users
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		var user persistence.User
		var createdAtStr, updatedAtStr string

		if err := rows.Scan(&user.ID, &user.Email, &user.DisplayName, &createdAtStr, &updatedAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}

		if user.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if user.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return users, nil
}
