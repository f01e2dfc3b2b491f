package roster

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/cinecircle/pkg/response"
)

// Handler exposes the membership detail view endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new roster handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for roster endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{groupID}/members", h.Members)
	r.Get("/{groupID}/requests", h.Requests)
	r.Post("/{groupID}/members/{userID}/promote", h.Promote)
	r.Post("/{groupID}/members/{userID}/demote", h.Demote)
	r.Delete("/{groupID}/members/{userID}", h.Remove)
	r.Post("/{groupID}/requests/{userID}/approve", h.Approve)
	r.Post("/{groupID}/requests/{userID}/decline", h.Decline)

	return r
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// Members handles GET /roster/{groupID}/members
// @Summary      List group members
// @Tags         roster
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]membership.Member}
// @Router       /roster/{groupID}/members [get]
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r, "groupID")
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	members, err := h.service.Members(r.Context(), groupID)
	if err != nil {
		response.BadGateway(w, "Failed to load members")
		return
	}

	response.JSON(w, http.StatusOK, members)
}

// Requests handles GET /roster/{groupID}/requests
// @Summary      List pending join requests
// @Tags         roster
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]membership.PendingRequest}
// @Failure      403 {object} response.APIResponse
// @Router       /roster/{groupID}/requests [get]
func (h *Handler) Requests(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r, "groupID")
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	requests, err := h.service.Requests(r.Context(), groupID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, requests)
}

// Promote handles POST /roster/{groupID}/members/{userID}/promote
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Promote)
}

// Demote handles POST /roster/{groupID}/members/{userID}/demote
func (h *Handler) Demote(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Demote)
}

// Remove handles DELETE /roster/{groupID}/members/{userID}
// @Summary      Remove a member
// @Description  Owner may remove anyone but themselves; moderators may remove plain members only
// @Tags         roster
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Param        userID path int true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /roster/{groupID}/members/{userID} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Remove)
}

// Approve handles POST /roster/{groupID}/requests/{userID}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Approve)
}

// Decline handles POST /roster/{groupID}/requests/{userID}/decline
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Decline)
}

type moderationFunc func(ctx context.Context, groupID, userID int64) error

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, fn moderationFunc) {
	groupID, ok := pathID(r, "groupID")
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := fn(r.Context(), groupID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Done"})
}

// writeError maps service errors onto the envelope. Notices for the viewer
// were already pushed at the service boundary.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAllowed), errors.Is(err, ErrTargetOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrRemoveSelf), errors.Is(err, ErrWrongRole), errors.Is(err, ErrNoApprovals):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrTargetNotFound):
		response.NotFound(w, err.Error())
	default:
		response.BadGateway(w, "The server rejected the request")
	}
}
