package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by each driver. The
// user repository hangs off it so transactional and plain access share one
// shape.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// WithTx runs fn in a read/write transaction, committing when fn returns
	// nil and rolling back otherwise. Nested transactions are not supported.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a Store scoped to one transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns ErrNotFound when no user has id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalised (lowercase) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts u. A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)

	// UpdateMFASecret stores a sealed secret, leaving mfa_enabled untouched.
	UpdateMFASecret(ctx context.Context, userID string, sealed string) error

	// EnableMFA sets mfa_enabled. It fails with ErrNotFound unless the user
	// exists and the secret on file is still sealed.
	EnableMFA(ctx context.Context, userID, sealed string) error
}
