package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aiox-platform/memchat/internal/api"
)

type lister interface {
	ListBySession(ctx context.Context, sessionID string, params ListParams) ([]TurnAudit, int64, error)
}

// Handler provides HTTP handlers for audit endpoints.
type Handler struct {
	repo lister
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListBySession returns paginated audits for the session in the URL.
func (h *Handler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.HandleError(w, api.NewBadRequestError("session id is required"))
		return
	}

	params := parseListParams(r)

	audits, total, err := h.repo.ListBySession(r.Context(), sessionID, params)
	if err != nil {
		slog.Error("listing turn audits", "error", err, "session_id", sessionID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, audits, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	if o := q.Get("outcome"); o != "" {
		params.Outcome = o
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	return params
}
