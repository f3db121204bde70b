package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/queue"
	"classroom-ai-platform/internal/domain/ports/repository"
)

// --- In-memory fakes for the repository ports ---

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.AIJob
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: map[string]*model.AIJob{}} }

func (r *memJobRepo) Save(_ context.Context, _ repository.Tx, job *model.AIJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.AIJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) FindByUser(_ context.Context, _ repository.Tx, userID string, limit int) ([]*model.AIJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AIJob
	for _, j := range r.jobs {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobRepo) CountByStatus(_ context.Context, _ repository.Tx) (repository.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := repository.StatusCounts{}
	for _, j := range r.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func (r *memJobRepo) CountPendingBefore(_ context.Context, _ repository.Tx, jobID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.Status == model.AIJobStatusPending && j.ID < jobID {
			n++
		}
	}
	return n, nil
}

func (r *memJobRepo) FetchAndMarkRunning(_ context.Context) (*model.AIJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *model.AIJob
	for _, j := range r.jobs {
		if j.Status != model.AIJobStatusPending {
			continue
		}
		if oldest == nil || j.ID < oldest.ID {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	oldest.MarkRunning()
	cp := *oldest
	return &cp, nil
}

func (r *memJobRepo) UpdateProgress(_ context.Context, _ repository.Tx, jobID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[jobID]; ok && j.Status == model.AIJobStatusRunning {
		j.Progress = progress
	}
	return nil
}

func (r *memJobRepo) CompleteIfRunning(_ context.Context, _ repository.Tx, job *model.AIJob) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok || stored.Terminal() {
		return false, nil
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return true, nil
}

func (r *memJobRepo) StopAllByUser(_ context.Context, _ repository.Tx, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.UserID == userID && !j.Terminal() {
			j.Fail(model.StopReason)
			n++
		}
	}
	return n, nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*model.Session{}}
}

func (r *memSessionRepo) Save(_ context.Context, _ repository.Tx, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, _ repository.Tx, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

// memSessionCache counts hits so tests can assert the cache-aside flow.
type memSessionCache struct {
	mu      sync.Mutex
	entries map[string]*model.Session
	hits    int
	misses  int
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{entries: map[string]*model.Session{}}
}

func (c *memSessionCache) Get(_ context.Context, token string) (*model.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[token]; ok {
		c.hits++
		cp := *s
		return &cp, true
	}
	c.misses++
	return nil, false
}

func (c *memSessionCache) Set(_ context.Context, s *model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.entries[s.ID] = &cp
}

func (c *memSessionCache) Invalidate(_ context.Context, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

func (c *memSessionCache) contains(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[token]
	return ok
}

// fakeAdmission returns a fixed snapshot.
type fakeAdmission struct {
	snap queue.Snapshot
}

func (f *fakeAdmission) TryAcquire() bool         { return true }
func (f *fakeAdmission) Release()                 {}
func (f *fakeAdmission) Cancel()                  {}
func (f *fakeAdmission) Snapshot() queue.Snapshot { return f.snap }

func defaultSnapshot() queue.Snapshot {
	return queue.Snapshot{
		InFlight:       1,
		MaxConcurrent:  4,
		AvailableSlots: 3,
		RateLimit:      60,
		RateWindow:     time.Minute,
	}
}
