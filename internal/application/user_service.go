package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// UserService manages the user directory that bookings resolve bookers from.
type UserService struct {
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users persistence.UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	vErr := validateUserInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	record := persistence.User{
		ID:          s.idGenerator(),
		Email:       strings.ToLower(strings.TrimSpace(params.Input.Email)),
		DisplayName: strings.TrimSpace(params.Input.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.users.CreateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			dupErr := &ValidationError{}
			dupErr.add("email", "a user with this email already exists")
			err = dupErr
			return
		}
		err = &IntegrityError{Operation: "CreateUser", Err: err}
		return
	}

	user = toUser(record)
	return
}

// GetUser returns a single user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	record, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, &IntegrityError{Operation: "GetUser", Err: err}
	}
	return toUser(record), nil
}

// ListUsers returns the directory in creation order.
func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, nil
	}

	raw, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, &IntegrityError{Operation: "ListUsers", Err: err}
	}

	users := make([]User, len(raw))
	for i, record := range raw {
		users[i] = toUser(record)
	}
	return users, nil
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not a valid address")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("displayName", "displayName is required")
	}

	return vErr
}

func toUser(record persistence.User) User {
	return User{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
