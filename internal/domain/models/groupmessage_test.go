package models_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupchat/internal/domain/models"
)

func pending(sender string) models.GroupMessage {
	return models.GroupMessage{
		SenderID:    sender,
		Content:     "hello",
		MessageType: models.MessageTypeText,
		Status:      models.StatusPending,
		SentAt:      t0,
	}
}

func TestResolve_FromPending(t *testing.T) {
	later := t0.Add(time.Minute)

	m := pending("u2")
	changed, err := m.Resolve(true, "u1", "ignored", later)
	if err != nil || !changed {
		t.Fatalf("approve: changed=%v err=%v", changed, err)
	}
	if m.Status != models.StatusApproved {
		t.Errorf("status: got %q, want APPROVED", m.Status)
	}
	if m.ApprovedBy != "u1" || m.ApprovedAt == nil || !m.ApprovedAt.Equal(later) {
		t.Errorf("approval record: by=%q at=%v", m.ApprovedBy, m.ApprovedAt)
	}
	if m.ApprovalNote != "" {
		t.Errorf("approval should not record a note, got %q", m.ApprovalNote)
	}

	r := pending("u2")
	changed, err = r.Resolve(false, "u1", "off topic", later)
	if err != nil || !changed {
		t.Fatalf("reject: changed=%v err=%v", changed, err)
	}
	if r.Status != models.StatusRejected || r.ApprovalNote != "off topic" || r.ApprovedBy != "u1" {
		t.Errorf("reject record: %+v", r)
	}
}

func TestResolve_AlreadyResolved(t *testing.T) {
	tests := []struct {
		name    string
		status  models.MessageStatus
		approve bool
		wantErr error
	}{
		{"approved+approve is no-op", models.StatusApproved, true, nil},
		{"approved+reject is invalid", models.StatusApproved, false, models.ErrInvalidTransition},
		{"rejected+reject is no-op", models.StatusRejected, false, nil},
		{"rejected+approve is invalid", models.StatusRejected, true, models.ErrInvalidTransition},
		{"deleted+approve is invalid", models.StatusDeleted, true, models.ErrInvalidTransition},
		{"deleted+reject is invalid", models.StatusDeleted, false, models.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := pending("u2")
			m.Status = tt.status
			changed, err := m.Resolve(tt.approve, "u1", "", t0)
			if err != tt.wantErr {
				t.Errorf("err: got %v, want %v", err, tt.wantErr)
			}
			if changed {
				t.Error("already-resolved message must not change")
			}
			if m.Status != tt.status {
				t.Errorf("status moved from %q to %q", tt.status, m.Status)
			}
		})
	}
}

func TestDelete_TombstoneIsTerminal(t *testing.T) {
	for _, from := range []models.MessageStatus{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		t.Run(string(from), func(t *testing.T) {
			m := pending("u2")
			m.Status = from
			m.ApprovalNote = "note"
			if err := m.Delete("u1", t0); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if m.Status != models.StatusDeleted || m.DeletedFrom != from {
				t.Errorf("status=%q deletedFrom=%q", m.Status, m.DeletedFrom)
			}
			if m.Content != "" || m.ApprovalNote != "" {
				t.Error("tombstone should be scrubbed")
			}

			if err := m.Delete("u1", t0); err != models.ErrInvalidTransition {
				t.Errorf("second delete: expected ErrInvalidTransition, got %v", err)
			}
			if _, err := m.Resolve(true, "u1", "", t0); err != models.ErrInvalidTransition {
				t.Errorf("resolve after delete: expected ErrInvalidTransition, got %v", err)
			}
			if err := m.Edit("back", false, t0); err != models.ErrInvalidTransition {
				t.Errorf("edit after delete: expected ErrInvalidTransition, got %v", err)
			}
			if m.Status != models.StatusDeleted {
				t.Errorf("left DELETED: %q", m.Status)
			}
		})
	}
}

func TestEdit(t *testing.T) {
	later := t0.Add(time.Minute)

	m := pending("u2")
	m.Status = models.StatusApproved
	m.ApprovedBy = "u1"
	if err := m.Edit("hello again", false, later); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !m.IsEdited || m.EditedAt == nil || m.Content != "hello again" || m.Status != models.StatusApproved {
		t.Errorf("after edit: %+v", m)
	}

	if err := m.Edit("sneaky", true, later); err != models.ErrInvalidTransition {
		t.Fatalf("locked approved edit: expected ErrInvalidTransition, got %v", err)
	}
	if m.Status != models.StatusApproved || m.ApprovedBy != "u1" || m.Content != "hello again" {
		t.Errorf("refused edit must leave the message untouched: %+v", m)
	}

	p := pending("u2")
	if err := p.Edit("still pending", true, later); err != nil {
		t.Fatalf("pending edit: %v", err)
	}
	if p.Status != models.StatusPending || p.Content != "still pending" {
		t.Errorf("pending edit: %+v", p)
	}

	r := pending("u2")
	r.Status = models.StatusRejected
	if err := r.Edit("x", false, later); err != models.ErrInvalidTransition {
		t.Errorf("edit rejected: expected ErrInvalidTransition, got %v", err)
	}
}

func TestVisibleTo(t *testing.T) {
	deleted := func(from models.MessageStatus) models.GroupMessage {
		m := pending("author")
		m.Status = from
		_ = m.Delete("author", t0)
		return m
	}
	approved := pending("author")
	approved.Status = models.StatusApproved
	rejected := pending("author")
	rejected.Status = models.StatusRejected

	tests := []struct {
		name      string
		msg       models.GroupMessage
		viewer    string
		moderator bool
		want      bool
	}{
		{"approved to other", approved, "other", false, true},
		{"pending to author", pending("author"), "author", false, true},
		{"pending to other", pending("author"), "other", false, false},
		{"pending to moderator", pending("author"), "mod", true, true},
		{"rejected to author", rejected, "author", false, true},
		{"rejected to other", rejected, "other", false, false},
		{"tombstone of approved to other", deleted(models.StatusApproved), "other", false, true},
		{"tombstone of pending to other", deleted(models.StatusPending), "other", false, false},
		{"tombstone of pending to author", deleted(models.StatusPending), "author", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.VisibleTo(tt.viewer, tt.moderator); got != tt.want {
				t.Errorf("VisibleTo(%s, %v) = %v, want %v", tt.viewer, tt.moderator, got, tt.want)
			}
		})
	}
}
