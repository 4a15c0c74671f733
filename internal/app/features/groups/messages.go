// internal/app/features/groups/messages.go
package groups

import (
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/groupchat/internal/app/features/errors"
	groupservice "github.com/dalemusser/groupchat/internal/app/service/groups"
	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"github.com/dalemusser/groupchat/internal/app/system/paging"
	"github.com/dalemusser/groupchat/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type sendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ReplyToID   string `json:"reply_to_message_id"`
}

// HandleSendMessage serves POST /api/groups/{groupId}/messages.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if userID := caller(r); !h.sendLimit.Allow(userID) {
		h.log.Warn("message send rate limited",
			zap.String("user_id", userID),
			zap.String("group_id", groupID.Hex()))
		secs := int(h.sendLimit.RetryAfter(userID).Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		errorsfeature.Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many messages; slow down")
		return
	}
	var req sendMessageRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var replyTo *primitive.ObjectID
	if req.ReplyToID != "" {
		id, err := inputval.ObjectID(req.ReplyToID, "reply_to_message_id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		replyTo = &id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "sendMessage")
	defer cancel()

	m, err := h.svc.SendMessage(ctx, groupservice.SendMessageInput{
		GroupID:     groupID,
		SenderID:    caller(r),
		Content:     req.Content,
		MessageType: req.MessageType,
		ReplyToID:   replyTo,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, m)
}

// ServeMessages serves GET /api/groups/{groupId}/messages?page=&size=.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pg, err := paging.Parse(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "getMessages")
	defer cancel()

	list, err := h.svc.GetMessages(ctx, groupID, caller(r), pg.Page, pg.Size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cfg := h.svc.Config()
	errorsfeature.JSONWithMeta(w, http.StatusOK, list, &errorsfeature.Meta{
		Page:     pg.Page,
		PageSize: paging.Clamp(pg.Size, cfg.DefaultPageSize, cfg.MaxPageSize),
		Count:    len(list),
	})
}

// ServePendingMessages serves GET /api/groups/{groupId}/messages/pending.
func (h *Handler) ServePendingMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "getPendingMessages")
	defer cancel()

	list, err := h.svc.GetPendingMessages(ctx, groupID, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSONWithMeta(w, http.StatusOK, list, &errorsfeature.Meta{PageSize: len(list), Count: len(list)})
}

type approveRequest struct {
	Approve *bool  `json:"approve"`
	Note    string `json:"note"`
}

// HandleApprove serves POST /api/groups/messages/{messageId}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageId", "message id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req approveRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	// An omitted decision means approve.
	approve := req.Approve == nil || *req.Approve

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "approveMessage")
	defer cancel()

	m, err := h.svc.ApproveMessage(ctx, messageID, caller(r), approve, req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, m)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// HandleEditMessage serves PUT /api/groups/messages/{messageId}.
func (h *Handler) HandleEditMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageId", "message id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req editMessageRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "editMessage")
	defer cancel()

	m, err := h.svc.EditMessage(ctx, messageID, caller(r), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, m)
}

// HandleDeleteMessage serves DELETE /api/groups/messages/{messageId}.
func (h *Handler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageId", "message id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "deleteMessage")
	defer cancel()

	m, err := h.svc.DeleteMessage(ctx, messageID, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, m)
}
