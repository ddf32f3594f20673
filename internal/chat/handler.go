package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/aiox-platform/memchat/internal/api"
	"github.com/aiox-platform/memchat/internal/llm"
	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/session"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Handler{
		svc:      svc,
		validate: v,
	}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	turn, err := h.svc.Send(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.handleServiceError(w, "processing chat turn", err)
		return
	}

	res := turn.Result
	api.JSON(w, http.StatusOK, ChatResponse{
		SessionID:           turn.SessionID,
		Reply:               res.Response,
		Memory:              res.UpdatedMemory,
		Analysis:            nullable(res.Analysis),
		ClarificationNeeded: res.ClarificationNeeded,
		NoNewInfo:           res.NoNewInfo,
		DebugInfo:           res.DebugInfo,
	})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	// An empty body is allowed.
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.HandleError(w, api.ErrBadRequest)
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := h.svc.CreateSession(r.Context(), req.SessionID)
	if err != nil {
		h.handleServiceError(w, "creating session", err)
		return
	}

	api.JSON(w, http.StatusCreated, CreateSessionResponse{SessionID: id})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, "getting session", err)
		return
	}

	resp := SessionResponse{
		SessionID:           sess.ID,
		History:             sess.History,
		Memory:              sess.PreviousMemory().Clone(),
		Analysis:            nullable(sess.State.Analysis),
		ClarificationNeeded: sess.State.ClarificationNeeded,
	}
	if resp.History == nil {
		resp.History = []memory.Message{}
	}
	if !sess.State.UpdatedAt.IsZero() {
		t := sess.State.UpdatedAt
		resp.UpdatedAt = &t
	}

	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.handleServiceError(w, "deleting session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		api.HandleError(w, api.ErrSessionNotFound)
	case errors.Is(err, llm.ErrMissingAPIKey):
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrProviderNotConfigured)
	case errors.Is(err, ErrEmptyMessage):
		api.HandleError(w, api.NewValidationError(err.Error()))
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

// nullable keeps an absent analysis as JSON null.
func nullable(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
