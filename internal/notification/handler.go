package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/cinecircle/pkg/response"
)

// Handler exposes the notice stream to views
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for notification endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Drain)
	return r
}

// Drain handles GET /notices
// @Summary      Drain pending notices
// @Description  Returns all undelivered transient notices; reading consumes them
// @Tags         notices
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Notice}
// @Router       /notices [get]
func (h *Handler) Drain(w http.ResponseWriter, r *http.Request) {
	notices := h.service.Drain()
	if notices == nil {
		notices = []Notice{}
	}
	response.JSON(w, http.StatusOK, notices)
}
