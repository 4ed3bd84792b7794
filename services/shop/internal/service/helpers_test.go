package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/media"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/testdb"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

type env struct {
	db   *gorm.DB
	repo *repo.GormRepo
	tx   *txn.Manager
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testdb.New(t)
	return env{db: db, repo: &repo.GormRepo{DB: db}, tx: txn.New(db, 3)}
}

func customer() principal.Principal {
	return principal.Principal{UserID: uuid.New(), Role: principal.RoleCustomer, Email: "buyer@example.com"}
}

func seller() principal.Principal {
	return principal.Principal{UserID: uuid.New(), Role: principal.RoleSeller}
}

func admin() principal.Principal {
	return principal.Principal{UserID: uuid.New(), Role: principal.RoleAdmin}
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}

type recordedEvent struct {
	Topic string
	Type  string
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) PublishEvent(_ context.Context, topic string, ev mykafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Topic: topic, Type: ev.Type})
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type sentNote struct {
	Recipient, Subject string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentNote
}

func (f *fakeDispatcher) Dispatch(_ context.Context, recipient, subject, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNote{Recipient: recipient, Subject: subject})
}

type fakeGateway struct {
	intentID  string
	createErr error
	valid     bool
	created   int
}

func (g *fakeGateway) CreateIntent(context.Context, *models.Order) (string, error) {
	g.created++
	return g.intentID, g.createErr
}

func (g *fakeGateway) Verify(_ context.Context, _ string, proof string) (bool, error) {
	return g.valid && proof != "", nil
}

type fakeMedia struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (m *fakeMedia) Upload(_ context.Context, name, _ string, r io.Reader) (media.Uploaded, error) {
	if _, err := io.ReadAll(r); err != nil {
		return media.Uploaded{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "products/" + name
	m.uploaded = append(m.uploaded, id)
	return media.Uploaded{PublicID: id, URL: "https://cdn.test/" + id}, nil
}

func (m *fakeMedia) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, publicID)
	return nil
}
