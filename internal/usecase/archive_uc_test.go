package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"
)

type memWorkItemRepo struct {
	mu    sync.Mutex
	items map[string]*model.WorkItem
}

func newMemWorkItemRepo() *memWorkItemRepo {
	return &memWorkItemRepo{items: map[string]*model.WorkItem{}}
}

func (r *memWorkItemRepo) Save(_ context.Context, _ repository.Tx, w *model.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.items[w.ID] = &cp
	return nil
}

func (r *memWorkItemRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *memWorkItemRepo) ArchiveEnded(_ context.Context, _ repository.Tx, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.items {
		if w.Status == model.WorkItemPublished && w.EndsAt != nil && !w.EndsAt.After(cutoff) {
			w.Status = model.WorkItemArchived
			n++
		}
	}
	return n, nil
}

func TestSweepEndedArchivesOnlyEndedPublished(t *testing.T) {
	repo := newMemWorkItemRepo()
	uc := NewArchiveUseCase(repo)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	items := []*model.WorkItem{
		{ID: "ended", Status: model.WorkItemPublished, EndsAt: &past},
		{ID: "open", Status: model.WorkItemPublished, EndsAt: &future},
		{ID: "no-end", Status: model.WorkItemPublished},
		{ID: "draft", Status: model.WorkItemDraft, EndsAt: &past},
	}
	for _, w := range items {
		if err := repo.Save(ctx, nil, w); err != nil {
			t.Fatal(err)
		}
	}

	n, err := uc.SweepEnded(ctx)
	if err != nil || n != 1 {
		t.Fatalf("SweepEnded = (%d, %v), want (1, nil)", n, err)
	}
	got, err := repo.FindByID(ctx, nil, "ended")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.WorkItemArchived {
		t.Fatalf("status = %s, want archived", got.Status)
	}

	// Idempotent: a second sweep finds nothing.
	n, err = uc.SweepEnded(ctx)
	if err != nil || n != 0 {
		t.Fatalf("repeat SweepEnded = (%d, %v), want (0, nil)", n, err)
	}
}
