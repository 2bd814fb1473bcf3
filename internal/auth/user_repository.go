package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// UserStatus is the account status of a registered user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// UserRecord is a stored user, including hashed credentials. Passwords are
// never stored in plaintext; PasswordHash is produced and verified by the
// bcrypt-backed password hashing in Service. Service does not set Salt
// (bcrypt embeds its own salt in the hash).
type UserRecord struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Salt         string
	Status       UserStatus
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IUserRepository abstracts user persistence so Service can run against
// any backend (in-memory for tests, SQL in production).
type IUserRepository interface {
	FindByID(ctx context.Context, id uint64) (*UserRecord, error)
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Create(ctx context.Context, record UserRecord) (uint64, error)
	Update(ctx context.Context, record UserRecord) (bool, error)
}

// InMemoryUserRepository is a thread-safe in-memory IUserRepository for
// tests and development. Production deployments use SQLUserRepository.
type InMemoryUserRepository struct {
	mu     sync.Mutex
	users  map[uint64]UserRecord
	nextID uint64
}

// NewInMemoryUserRepository constructs an empty in-memory user store.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:  make(map[uint64]UserRecord),
		nextID: 1,
	}
}

func (r *InMemoryUserRepository) FindByID(_ context.Context, id uint64) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *InMemoryUserRepository) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryUserRepository) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryUserRepository) Create(_ context.Context, record UserRecord) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	record.ID = id
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	r.users[id] = record
	return id, nil
}

func (r *InMemoryUserRepository) Update(_ context.Context, record UserRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[record.ID]; !ok {
		return false, nil
	}
	record.UpdatedAt = time.Now()
	r.users[record.ID] = record
	return true, nil
}
