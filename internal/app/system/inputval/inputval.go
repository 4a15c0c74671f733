// internal/app/system/inputval/inputval.go
package inputval

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/htmlsanitize"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field limits, in runes.
const (
	MaxUserIDLen      = 128
	MaxGroupNameLen   = 100
	MaxDescriptionLen = 1000
	MaxNoteLen        = 500
	MaxAvatarURLLen   = 2048

	// DefaultMaxContentLen applies when no limit is configured.
	DefaultMaxContentLen = 4000
)

// UserID checks an opaque user identifier. User ids key the members map, so
// they may not contain '.' or start with '$'.
func UserID(id string) error {
	if id == "" {
		return apperr.Validation("user id is required")
	}
	if len(id) > MaxUserIDLen {
		return apperr.Validation("user id longer than %d bytes", MaxUserIDLen)
	}
	if strings.HasPrefix(id, "$") || strings.ContainsRune(id, '.') {
		return apperr.Validation("user id %q contains a reserved character", id)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return apperr.Validation("user id %q contains whitespace", id)
		}
	}
	return nil
}

// ObjectID parses a hex id; what names the field in the error.
func ObjectID(hex, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s", what)
	}
	return oid, nil
}

// GroupName returns the cleaned group name.
func GroupName(name string) (string, error) {
	clean := htmlsanitize.PlainText(name)
	if clean == "" {
		return "", apperr.Validation("group name is required")
	}
	if utf8.RuneCountInString(clean) > MaxGroupNameLen {
		return "", apperr.Validation("group name longer than %d characters", MaxGroupNameLen)
	}
	return clean, nil
}

// Description returns the cleaned description. Empty is allowed.
func Description(desc string) (string, error) {
	clean := htmlsanitize.PlainText(desc)
	if utf8.RuneCountInString(clean) > MaxDescriptionLen {
		return "", apperr.Validation("description longer than %d characters", MaxDescriptionLen)
	}
	return clean, nil
}

// Note returns the cleaned moderation note. Empty is allowed.
func Note(note string) (string, error) {
	clean := htmlsanitize.PlainText(note)
	if utf8.RuneCountInString(clean) > MaxNoteLen {
		return "", apperr.Validation("note longer than %d characters", MaxNoteLen)
	}
	return clean, nil
}

// AvatarURL accepts an empty string or an absolute http(s) URL.
func AvatarURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > MaxAvatarURLLen {
		return "", apperr.Validation("avatar url longer than %d bytes", MaxAvatarURLLen)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Validation("avatar url must be an absolute http(s) url")
	}
	return raw, nil
}

// Content returns the cleaned body of a user-sent message. SYSTEM messages
// cannot be sent by users. maxLen <= 0 means DefaultMaxContentLen.
func Content(content string, typ models.MessageType, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLen
	}
	switch typ {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeVideo,
		models.MessageTypeAudio, models.MessageTypeFile:
	case models.MessageTypeSystem:
		return "", apperr.Validation("system messages cannot be sent by users")
	default:
		return "", apperr.Validation("unknown message type %q", typ)
	}

	clean := htmlsanitize.PlainText(content)
	if clean == "" {
		return "", apperr.Validation("message content is empty")
	}
	if utf8.RuneCountInString(clean) > maxLen {
		return "", apperr.Validation("message content longer than %d characters", maxLen)
	}
	return clean, nil
}
