package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jpreston42/warband-campaign/internal/battle"
	"github.com/jpreston42/warband-campaign/internal/store"
)

// userHeader carries the caller's identity. Real authentication lives in the
// session layer in front of this service; the header is its hand-off.
const userHeader = "X-User-ID"

type Handler struct {
	store store.Store
	log   *zap.Logger
}

func NewHandler(st store.Store, log *zap.Logger) *Handler {
	return &Handler{store: st, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) listBattles(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	battles, err := h.store.ListCampaignBattles(r.Context(), campaignID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, battles)
}

func (h *Handler) createBattle(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in battle.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed battle payload"})
		return
	}

	created, err := h.store.CreateBattle(r.Context(), campaignID, userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) joinBattle(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	battleID := chi.URLParam(r, "battleID")
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	updated, err := h.store.JoinBattle(r.Context(), campaignID, battleID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) cancelBattle(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	battleID := chi.URLParam(r, "battleID")
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	updated, err := h.store.CancelBattle(r.Context(), campaignID, battleID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
		return "", false
	}
	return userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNoInvitees), errors.Is(err, store.ErrCreatorMissing):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, battle.ErrNotInviting),
		errors.Is(err, battle.ErrNotParticipant),
		errors.Is(err, battle.ErrInviteDeclined),
		errors.Is(err, battle.ErrNotCreator),
		errors.Is(err, battle.ErrBattleClosed):
		// Precondition lost between the client's render and its click; the
		// client treats this as a race and refreshes.
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.Error("battle store failure",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("write response", zap.Error(err))
	}
}
