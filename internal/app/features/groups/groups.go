// internal/app/features/groups/groups.go
package groups

import (
	"net/http"

	errorsfeature "github.com/dalemusser/groupchat/internal/app/features/errors"
	groupservice "github.com/dalemusser/groupchat/internal/app/service/groups"
	"github.com/dalemusser/groupchat/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
)

type createGroupRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AvatarURL      string   `json:"avatar_url"`
	InitialMembers []string `json:"initial_members"`
	IsPrivate      bool     `json:"is_private"`
	ApprovalType   string   `json:"message_approval_type"`
}

// HandleCreateGroup serves POST /api/groups.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "createGroup")
	defer cancel()

	g, err := h.svc.CreateGroup(ctx, groupservice.CreateGroupInput{
		Name:           req.Name,
		Description:    req.Description,
		AvatarURL:      req.AvatarURL,
		CreatedBy:      caller(r),
		InitialMembers: req.InitialMembers,
		IsPrivate:      req.IsPrivate,
		ApprovalType:   req.ApprovalType,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, g)
}

// ServeUserGroups serves GET /api/groups.
func (h *Handler) ServeUserGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "listUserGroups")
	defer cancel()

	list, err := h.svc.ListUserGroups(ctx, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSONWithMeta(w, http.StatusOK, list, &errorsfeature.Meta{PageSize: len(list), Count: len(list)})
}

// ServePublicGroups serves GET /api/groups/public?q=.
func (h *Handler) ServePublicGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "listPublicGroups")
	defer cancel()

	list, err := h.svc.ListPublicGroups(ctx, query.Get(r, "q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSONWithMeta(w, http.StatusOK, list, &errorsfeature.Meta{PageSize: len(list), Count: len(list)})
}

// ServeGroup serves GET /api/groups/{groupId}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.log, "getGroup")
	defer cancel()

	g, err := h.svc.GetGroup(ctx, groupID, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

// ServePermissions serves GET /api/groups/{groupId}/permissions.
func (h *Handler) ServePermissions(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.log, "getPermissions")
	defer cancel()

	p, err := h.svc.GetPermissions(ctx, groupID, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, p)
}

type updateSettingsRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ApprovalType string `json:"message_approval_type"`
	IsPrivate    bool   `json:"is_private"`
}

// HandleUpdateSettings serves PUT /api/groups/{groupId}.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req updateSettingsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "updateGroupSettings")
	defer cancel()

	g, err := h.svc.UpdateGroupSettings(ctx, groupID, caller(r), groupservice.UpdateSettingsInput{
		Name:         req.Name,
		Description:  req.Description,
		ApprovalType: req.ApprovalType,
		IsPrivate:    req.IsPrivate,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

// HandleAddMember serves POST /api/groups/{groupId}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req addMemberRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "addMember")
	defer cancel()

	g, err := h.svc.AddMember(ctx, groupID, req.UserID, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

// HandleRemoveMember serves DELETE /api/groups/{groupId}/members/{targetUserId}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "removeMember")
	defer cancel()

	g, err := h.svc.RemoveMember(ctx, groupID, chi.URLParam(r, "targetUserId"), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// HandleChangeRole serves PUT /api/groups/{groupId}/members/{targetUserId}/role.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req changeRoleRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "changeMemberRole")
	defer cancel()

	g, err := h.svc.ChangeMemberRole(ctx, groupID, chi.URLParam(r, "targetUserId"), req.Role, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

// HandleMute serves PUT /api/groups/{groupId}/members/{targetUserId}/mute.
func (h *Handler) HandleMute(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req muteRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "setMemberMuted")
	defer cancel()

	g, err := h.svc.SetMemberMuted(ctx, groupID, chi.URLParam(r, "targetUserId"), req.Muted, caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

// HandleLeave serves POST /api/groups/{groupId}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.log, "leaveGroup")
	defer cancel()

	if err := h.svc.LeaveGroup(ctx, groupID, caller(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, nil)
}
