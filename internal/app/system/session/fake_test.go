package session_test

import (
	"context"
	"sync"
	"time"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memUsers is an in-memory UserRepository with the same error contract as
// the Mongo store.
type memUsers struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.User
	order []primitive.ObjectID
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[primitive.ObjectID]*models.User)}
}

func (m *memUsers) copyOf(u *models.User) *models.User {
	c := *u
	return &c
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if u := m.byID[id]; match(u) {
			return m.copyOf(u), nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = normalize.Email(email)
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memUsers) FindActiveByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id && !u.IsDeleted })
}

func (m *memUsers) FindByRefreshToken(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, userstore.ErrNotFound
	}
	return m.find(func(u *models.User) bool { return u.RefreshToken == token && !u.IsDeleted })
}

func (m *memUsers) FindByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, userstore.ErrNotFound
	}
	return m.find(func(u *models.User) bool {
		return u.ResetToken == token && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) && !u.IsDeleted
	})
}

func (m *memUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = normalize.Email(u.Email)
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Provider == "" {
		u.Provider = models.ProviderLocal
	}
	u.CreatedAt = time.Now().UTC()
	m.byID[u.ID] = &u
	m.order = append(m.order, u.ID)
	return u, nil
}

func (m *memUsers) update(id primitive.ObjectID, fn func(*models.User) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	if !fn(u) {
		return userstore.ErrTokenMismatch
	}
	return nil
}

func (m *memUsers) SetRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	return m.update(id, func(u *models.User) bool { u.RefreshToken = token; return true })
}

func (m *memUsers) RotateRefreshToken(_ context.Context, id primitive.ObjectID, old, next string) error {
	return m.update(id, func(u *models.User) bool {
		if old == "" || u.RefreshToken != old || u.IsDeleted {
			return false
		}
		u.RefreshToken = next
		return true
	})
}

func (m *memUsers) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	return m.update(id, func(u *models.User) bool {
		u.ResetToken = token
		u.ResetTokenExpiry = &expiry
		return true
	})
}

func (m *memUsers) ResetPassword(_ context.Context, id primitive.ObjectID, token, hash string, now time.Time) error {
	return m.update(id, func(u *models.User) bool {
		if token == "" || u.ResetToken != token || u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(now) || u.IsDeleted {
			return false
		}
		u.Password = hash
		u.ResetToken = ""
		u.ResetTokenExpiry = nil
		u.RefreshToken = ""
		return true
	})
}

// softDelete flags a user the way the store does.
func (m *memUsers) softDelete(id primitive.ObjectID) {
	_ = m.update(id, func(u *models.User) bool {
		u.IsDeleted = true
		u.RefreshToken = ""
		return true
	})
}

func (m *memUsers) get(id primitive.ObjectID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

type sentMail struct {
	to, name, link string
}

type memMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *memMailer) SendPasswordReset(_ context.Context, to, name, link string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, name: name, link: link})
	return nil
}

func (m *memMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}
