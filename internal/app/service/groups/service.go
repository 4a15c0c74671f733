// Package groupservice orchestrates group conversations: membership,
// moderated messaging, and settings. Every mutation follows the same cycle:
// load a fresh snapshot, authorize against it, apply the change to the
// snapshot, and persist with a version-guarded write. A lost version race
// restarts the cycle, up to Config.ConflictRetries times.
package groupservice

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupchat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"github.com/dalemusser/groupchat/internal/app/system/notify"
	"github.com/dalemusser/groupchat/internal/app/system/paging"
	"github.com/dalemusser/groupchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupRepo persists group conversations. Save must fail with
// apperr.ErrConflict when the stored version differs from g.Version.
type GroupRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupConversation, error)
	Create(ctx context.Context, g models.GroupConversation) (models.GroupConversation, error)
	Save(ctx context.Context, g models.GroupConversation) (models.GroupConversation, error)
	// TouchActivity moves lastMessageAt forward to at. Older times are a no-op.
	TouchActivity(ctx context.Context, id primitive.ObjectID, at time.Time) error
	ListByMember(ctx context.Context, userID string, limit int64) ([]models.GroupConversation, error)
	ListPublic(ctx context.Context, query string, limit int64) ([]models.GroupConversation, error)
}

// MessageRepo persists group messages with the same version contract.
type MessageRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMessage, error)
	Create(ctx context.Context, m models.GroupMessage) (models.GroupMessage, error)
	Save(ctx context.Context, m models.GroupMessage) (models.GroupMessage, error)
	ListVisible(ctx context.Context, groupID primitive.ObjectID, viewerID string, moderator bool, page, size int) ([]models.GroupMessage, error)
	ListPending(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMessage, error)
}

// Config holds the service limits. Zero values take defaults.
type Config struct {
	MaxContentLength int   // runes per message (default inputval.DefaultMaxContentLen)
	DefaultPageSize  int   // getMessages size when none is given (default 50)
	MaxPageSize      int   // getMessages size ceiling (default 200)
	ConflictRetries  int   // extra attempts after a version conflict (default 3)
	ListLimit        int64 // cap on group listings (default 500)
}

func (c Config) withDefaults() Config {
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = inputval.DefaultMaxContentLen
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = paging.DefaultSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = paging.MaxSize
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
	if c.ConflictRetries < 0 {
		c.ConflictRetries = 0
	} else if c.ConflictRetries == 0 {
		c.ConflictRetries = 3
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 500
	}
	return c
}

// Service is the group conversation service.
type Service struct {
	groups   GroupRepo
	messages MessageRepo
	perms    *grouppolicy.Checker
	notifier notify.Dispatcher
	log      *zap.Logger
	cfg      Config
	now      func() time.Time
}

// New wires a Service. A negative cfg.ConflictRetries disables retrying.
func New(groups GroupRepo, messages MessageRepo, notifier notify.Dispatcher, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		groups:   groups,
		messages: messages,
		perms:    grouppolicy.NewChecker(groups, logger),
		notifier: notifier,
		log:      logger,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// mutateGroup loads the group, lets fn change the snapshot, and saves it.
// fn reports changed=false to finish without writing. The whole cycle is
// repeated when the save loses a version race.
func (s *Service) mutateGroup(ctx context.Context, groupID primitive.ObjectID, fn func(g *models.GroupConversation) (bool, error)) (models.GroupConversation, bool, error) {
	for attempt := 0; ; attempt++ {
		g, err := s.groups.GetByID(ctx, groupID)
		if err != nil {
			return models.GroupConversation{}, false, err
		}
		changed, err := fn(&g)
		if err != nil {
			return models.GroupConversation{}, false, err
		}
		if !changed {
			return g, false, nil
		}
		saved, err := s.groups.Save(ctx, g)
		if err == nil {
			return saved, true, nil
		}
		if !errors.Is(err, apperr.ErrConflict) || attempt >= s.cfg.ConflictRetries {
			return models.GroupConversation{}, false, err
		}
		s.log.Debug("group version conflict, retrying",
			zap.String("group_id", groupID.Hex()), zap.Int("attempt", attempt+1))
	}
}

// mutateMessage is mutateGroup for a message. fn also receives a fresh
// snapshot of the message's group for authorization.
func (s *Service) mutateMessage(ctx context.Context, messageID primitive.ObjectID, fn func(m *models.GroupMessage, g models.GroupConversation) (bool, error)) (models.GroupMessage, bool, error) {
	for attempt := 0; ; attempt++ {
		m, err := s.messages.GetByID(ctx, messageID)
		if err != nil {
			return models.GroupMessage{}, false, err
		}
		g, err := s.groups.GetByID(ctx, m.GroupID)
		if errors.Is(err, apperr.ErrNotFound) {
			// The message outlived its group; nobody holds a role in it.
			g = models.GroupConversation{ID: m.GroupID, Members: map[string]models.GroupMember{}}
		} else if err != nil {
			return models.GroupMessage{}, false, err
		}
		changed, err := fn(&m, g)
		if err != nil {
			return models.GroupMessage{}, false, err
		}
		if !changed {
			return m, false, nil
		}
		saved, err := s.messages.Save(ctx, m)
		if err == nil {
			return saved, true, nil
		}
		if !errors.Is(err, apperr.ErrConflict) || attempt >= s.cfg.ConflictRetries {
			return models.GroupMessage{}, false, err
		}
		s.log.Debug("message version conflict, retrying",
			zap.String("message_id", messageID.Hex()), zap.Int("attempt", attempt+1))
	}
}

// domainErr maps aggregate errors onto the service error kinds.
func domainErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrOwnerImmutable):
		return apperr.Unauthorized("%v", err)
	case errors.Is(err, models.ErrOwnerRole):
		return apperr.Validation("%v", err)
	case errors.Is(err, models.ErrNotMember):
		return apperr.NotFound("group member")
	case errors.Is(err, models.ErrInvalidTransition):
		return apperr.InvalidState("%v", err)
	}
	return err
}

// deny logs a failed permission check and returns the Unauthorized error.
func (s *Service) deny(op, userID string, groupID primitive.ObjectID, reason string) error {
	s.log.Warn("permission denied",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("group_id", groupID.Hex()),
		zap.String("reason", reason))
	return apperr.Unauthorized("%s", reason)
}

func validateUsers(ids ...string) error {
	for _, id := range ids {
		if err := inputval.UserID(id); err != nil {
			return err
		}
	}
	return nil
}
