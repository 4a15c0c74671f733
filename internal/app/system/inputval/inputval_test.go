package inputval

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/domain/models"
)

func TestUserID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"u1", true},
		{"64f1c0ffee00000000000001", true},
		{"user-42_x", true},
		{"", false},
		{"$where", false},
		{"a.b", false},
		{"with space", false},
		{strings.Repeat("x", MaxUserIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := UserID(tt.id)
			if (err == nil) != tt.want {
				t.Errorf("UserID(%q) err = %v, want ok=%v", tt.id, err, tt.want)
			}
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestObjectID(t *testing.T) {
	if _, err := ObjectID("64f1c0ffee00000000000001", "group id"); err != nil {
		t.Errorf("valid hex rejected: %v", err)
	}
	_, err := ObjectID("nope", "group id")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "group id") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestGroupName(t *testing.T) {
	got, err := GroupName("  <b>Band</b> room ")
	if err != nil || got != "Band room" {
		t.Errorf("GroupName: got %q, %v", got, err)
	}
	if _, err := GroupName("   "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank name: expected ErrValidation, got %v", err)
	}
	if _, err := GroupName(strings.Repeat("n", MaxGroupNameLen+1)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("long name: expected ErrValidation, got %v", err)
	}
}

func TestAvatarURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"https://cdn.example.com/a.png", true},
		{"http://localhost:9000/a.png", true},
		{"javascript:alert(1)", false},
		{"/relative/a.png", false},
		{"ftp://example.com/a.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := AvatarURL(tt.in)
			if (err == nil) != tt.want {
				t.Errorf("AvatarURL(%q) err = %v, want ok=%v", tt.in, err, tt.want)
			}
		})
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		typ     models.MessageType
		max     int
		want    string
		wantErr bool
	}{
		{"plain text", "hello", models.MessageTypeText, 0, "hello", false},
		{"markup stripped", "<i>hi</i> all", models.MessageTypeText, 0, "hi all", false},
		{"image reference", "https://cdn.example.com/p.jpg", models.MessageTypeImage, 0, "https://cdn.example.com/p.jpg", false},
		{"empty", "   ", models.MessageTypeText, 0, "", true},
		{"markup only", "<script>x()</script>", models.MessageTypeText, 0, "", true},
		{"too long", "abcdef", models.MessageTypeText, 5, "", true},
		{"exactly max", "abcde", models.MessageTypeText, 5, "abcde", false},
		{"multibyte counts runes", "ééééé", models.MessageTypeText, 5, "ééééé", false},
		{"system", "joined", models.MessageTypeSystem, 0, "", true},
		{"unknown type", "x", models.MessageType("STICKER"), 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Content(tt.content, tt.typ, tt.max)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
