//go:build !integration

package web

import (
	"context"
	"sync"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/queue"
	"classroom-ai-platform/internal/domain/ports/repository"
	"classroom-ai-platform/internal/usecase"
)

// --- Mock Repositories (Ports) ---

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	SaveErr  error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*model.Session{}}
}

func (m *mockSessionRepo) Save(_ context.Context, _ repository.Tx, s *model.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- Mock Use Cases ---

type mockQueueUC struct {
	usecase.QueueUseCase // Embed interface for forward compatibility
	EnqueueFn            func(ctx context.Context, userID string, kind model.AIJobKind, input, linkedID, linkedType string) (*model.AIJob, error)
	GetStatusFn          func(ctx context.Context, jobID string) (*usecase.JobStatusInfo, error)
	StopAllFn            func(ctx context.Context, userID string) (int, error)
	StatsFn              func(ctx context.Context, includeAggregates bool) (*usecase.QueueStats, error)
}

func (m *mockQueueUC) Enqueue(ctx context.Context, userID string, kind model.AIJobKind, input, linkedID, linkedType string) (*model.AIJob, error) {
	return m.EnqueueFn(ctx, userID, kind, input, linkedID, linkedType)
}

func (m *mockQueueUC) GetStatus(ctx context.Context, jobID string) (*usecase.JobStatusInfo, error) {
	return m.GetStatusFn(ctx, jobID)
}

func (m *mockQueueUC) StopAll(ctx context.Context, userID string) (int, error) {
	return m.StopAllFn(ctx, userID)
}

func (m *mockQueueUC) GetQueueStats(ctx context.Context, includeAggregates bool) (*usecase.QueueStats, error) {
	return m.StatsFn(ctx, includeAggregates)
}

func (m *mockQueueUC) GetRateLimitStatus() queue.Snapshot { return queue.Snapshot{} }

type mockArchiveUC struct {
	N   int
	Err error
}

func (m *mockArchiveUC) SweepEnded(context.Context) (int, error) { return m.N, m.Err }
