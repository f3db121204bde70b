package model

import "time"

type WorkItemStatus string

const (
	WorkItemDraft     WorkItemStatus = "draft"
	WorkItemPublished WorkItemStatus = "published"
	WorkItemArchived  WorkItemStatus = "archived"
)

// WorkItem is a published piece of classroom work (a test or worksheet)
// with an effective end time. The archive sweep moves ended published
// items to archived.
type WorkItem struct {
	ID        string
	OrgID     string
	OwnerID   string
	Title     string
	Kind      string // "test" | "worksheet"
	Status    WorkItemStatus
	EndsAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ended reports whether the item's effective end time has passed.
func (w *WorkItem) Ended(now time.Time) bool {
	return w.EndsAt != nil && !w.EndsAt.After(now)
}
