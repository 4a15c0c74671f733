package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryGroups is an in-memory group repository with the same version
// semantics as the Mongo store. Snapshots are cloned on the way in and out.
type MemoryGroups struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.GroupConversation

	// BeforeSave, when set, runs before every Save is checked. Tests use it
	// to interleave a competing write.
	BeforeSave func(g models.GroupConversation)
	// Saves counts Save calls, successful or not.
	Saves int
	// TouchErr, when set, is returned by TouchActivity.
	TouchErr error
}

func NewMemoryGroups() *MemoryGroups {
	return &MemoryGroups{docs: make(map[primitive.ObjectID]models.GroupConversation)}
}

func (r *MemoryGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.GroupConversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.docs[id]
	if !ok {
		return models.GroupConversation{}, apperr.NotFound("group conversation")
	}
	return g.Clone(), nil
}

func (r *MemoryGroups) Create(_ context.Context, g models.GroupConversation) (models.GroupConversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g = g.Clone()
	g.ID = primitive.NewObjectID()
	g.NameCI = strings.ToLower(g.Name)
	g.Version = 1
	g.SyncMemberIDs()
	r.docs[g.ID] = g
	return g.Clone(), nil
}

func (r *MemoryGroups) Save(_ context.Context, g models.GroupConversation) (models.GroupConversation, error) {
	if hook := r.BeforeSave; hook != nil {
		hook(g.Clone())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saves++
	cur, ok := r.docs[g.ID]
	if !ok {
		return models.GroupConversation{}, apperr.NotFound("group conversation")
	}
	if cur.Version != g.Version {
		return models.GroupConversation{}, fmt.Errorf("%w: stale group version %d", apperr.ErrConflict, g.Version)
	}
	g = g.Clone()
	g.Version++
	g.NameCI = strings.ToLower(g.Name)
	g.SyncMemberIDs()
	r.docs[g.ID] = g
	return g.Clone(), nil
}

func (r *MemoryGroups) TouchActivity(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.TouchErr != nil {
		return r.TouchErr
	}
	g, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("group conversation")
	}
	if g.LastMessageAt != nil && !at.After(*g.LastMessageAt) {
		return nil
	}
	t := at
	g.LastMessageAt = &t
	if at.After(g.UpdatedAt) {
		g.UpdatedAt = at
	}
	g.Version++
	r.docs[id] = g
	return nil
}

func (r *MemoryGroups) ListByMember(_ context.Context, userID string, limit int64) ([]models.GroupConversation, error) {
	return r.list(limit, func(g models.GroupConversation) bool { return g.IsMember(userID) }, func(a, b models.GroupConversation) bool {
		return activity(a).After(activity(b))
	})
}

func (r *MemoryGroups) ListPublic(_ context.Context, query string, limit int64) ([]models.GroupConversation, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.list(limit, func(g models.GroupConversation) bool {
		return !g.IsPrivate && strings.Contains(g.NameCI, q)
	}, func(a, b models.GroupConversation) bool { return a.NameCI < b.NameCI })
}

// Put stores g as-is, bypassing version checks.
func (r *MemoryGroups) Put(g models.GroupConversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[g.ID] = g.Clone()
}

func (r *MemoryGroups) list(limit int64, keep func(models.GroupConversation) bool, less func(a, b models.GroupConversation) bool) ([]models.GroupConversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.GroupConversation{}
	for _, g := range r.docs {
		if keep(g) {
			out = append(out, g.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func activity(g models.GroupConversation) time.Time {
	if g.LastMessageAt != nil {
		return *g.LastMessageAt
	}
	return g.UpdatedAt
}

// MemoryMessages is an in-memory message repository.
type MemoryMessages struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.GroupMessage

	BeforeSave func(m models.GroupMessage)
	Saves      int
}

func NewMemoryMessages() *MemoryMessages {
	return &MemoryMessages{docs: make(map[primitive.ObjectID]models.GroupMessage)}
}

func (r *MemoryMessages) GetByID(_ context.Context, id primitive.ObjectID) (models.GroupMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.docs[id]
	if !ok {
		return models.GroupMessage{}, apperr.NotFound("group message")
	}
	return m, nil
}

func (r *MemoryMessages) Create(_ context.Context, m models.GroupMessage) (models.GroupMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = primitive.NewObjectID()
	m.Version = 1
	r.docs[m.ID] = m
	return m, nil
}

func (r *MemoryMessages) Save(_ context.Context, m models.GroupMessage) (models.GroupMessage, error) {
	if hook := r.BeforeSave; hook != nil {
		hook(m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saves++
	cur, ok := r.docs[m.ID]
	if !ok {
		return models.GroupMessage{}, apperr.NotFound("group message")
	}
	if cur.Version != m.Version {
		return models.GroupMessage{}, fmt.Errorf("%w: stale message version %d", apperr.ErrConflict, m.Version)
	}
	m.Version++
	r.docs[m.ID] = m
	return m, nil
}

func (r *MemoryMessages) ListVisible(_ context.Context, groupID primitive.ObjectID, viewerID string, moderator bool, page, size int) ([]models.GroupMessage, error) {
	all := r.filter(func(m models.GroupMessage) bool {
		return m.GroupID == groupID && m.VisibleTo(viewerID, moderator)
	})
	if size <= 0 || page < 0 {
		return []models.GroupMessage{}, nil
	}
	start := page * size
	if start >= len(all) {
		return []models.GroupMessage{}, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *MemoryMessages) ListPending(_ context.Context, groupID primitive.ObjectID) ([]models.GroupMessage, error) {
	return r.filter(func(m models.GroupMessage) bool {
		return m.GroupID == groupID && m.Status == models.StatusPending
	}), nil
}

// Put stores m as-is, bypassing version checks.
func (r *MemoryMessages) Put(m models.GroupMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[m.ID] = m
}

// filter returns matching messages newest first.
func (r *MemoryMessages) filter(keep func(models.GroupMessage) bool) []models.GroupMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.GroupMessage{}
	for _, m := range r.docs {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

// RecordingDispatcher collects dispatched notifications.
type RecordingDispatcher struct {
	mu     sync.Mutex
	events []models.Notification
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, n models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, n)
}

// Events returns a copy of everything dispatched so far.
func (d *RecordingDispatcher) Events() []models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Notification(nil), d.events...)
}

// Reset forgets recorded events.
func (d *RecordingDispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}
