package membership

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/cinecircle/pkg/response"
)

// Handler exposes the membership engine to views over the local control API
type Handler struct {
	registry *Registry
}

// NewHandler creates a new membership handler
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes returns the router for membership endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{groupID}", h.Status)
	r.Post("/{groupID}/actions", h.Action)
	r.Post("/{groupID}/refresh", h.Refresh)
	r.Get("/{groupID}/content", h.Content)
	r.Delete("/{groupID}", h.Detach)

	return r
}

func groupIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	return id, err == nil && id > 0
}

// Status handles GET /membership/{groupID}
// @Summary      Get membership status
// @Description  Resolve the viewer's effective role for a group, reconciling local and server state
// @Tags         membership
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=StatusResponse}
// @Failure      502 {object} response.APIResponse
// @Router       /membership/{groupID} [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	svc, err := h.registry.Get(r.Context(), groupID)
	if err != nil {
		response.BadGateway(w, "Failed to load group from server")
		return
	}
	svc.Reconcile(r.Context())

	response.JSON(w, http.StatusOK, statusOf(svc))
}

// Action handles POST /membership/{groupID}/actions
// @Summary      Request a membership action
// @Description  Dispatch join/request/withdraw/leave/delete. Outcomes are reported through the notice stream; the response carries the resulting status.
// @Tags         membership
// @Accept       json
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Param        request body ActionRequest true "Action to perform"
// @Success      200 {object} response.APIResponse{data=StatusResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /membership/{groupID}/actions [post]
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	svc, err := h.registry.Get(r.Context(), groupID)
	if err != nil {
		response.BadGateway(w, "Failed to load group from server")
		return
	}

	if err := svc.Dispatch(r.Context(), req.Kind); err != nil {
		if errors.Is(err, ErrUnknownAction) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to perform action")
		return
	}
	svc.Reconcile(r.Context())

	response.JSON(w, http.StatusOK, statusOf(svc))
}

// Refresh handles POST /membership/{groupID}/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	svc, err := h.registry.Get(r.Context(), groupID)
	if err != nil {
		response.BadGateway(w, "Failed to load group from server")
		return
	}
	if err := svc.Refresh(r.Context()); err != nil {
		response.InternalError(w, "Failed to refresh group")
		return
	}

	response.JSON(w, http.StatusOK, statusOf(svc))
}

// Content handles GET /membership/{groupID}/content
// @Summary      Get member-only content
// @Description  Returns the group's favorites and activity, available to members only
// @Tags         membership
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=MemberContent}
// @Failure      403 {object} response.APIResponse
// @Router       /membership/{groupID}/content [get]
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	svc, err := h.registry.Get(r.Context(), groupID)
	if err != nil {
		response.BadGateway(w, "Failed to load group from server")
		return
	}
	svc.Reconcile(r.Context())

	if !svc.EffectiveRole().GrantsMembership() {
		response.Forbidden(w, "Members only")
		return
	}

	content := svc.Content()
	if content == nil {
		content = &MemberContent{}
	}
	response.JSON(w, http.StatusOK, content)
}

// Detach handles DELETE /membership/{groupID}; views call it on navigation away
func (h *Handler) Detach(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	h.registry.Detach(groupID)
	response.JSON(w, http.StatusOK, map[string]string{"message": "Group view detached"})
}
