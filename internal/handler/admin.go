package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/internal/middleware"
	"github.com/capitalize-ai/conversation-store/internal/repository"
	"github.com/capitalize-ai/conversation-store/pkg/logger"
)

// AdminHandler exposes the secondary-index lookup for internal use. The
// index path is still access-scoped: the lookup runs under the caller's
// own partition and a foreign conversation id is denied, not hidden.
type AdminHandler struct {
	conversations *repository.Conversations
	logger        *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(conversations *repository.Conversations, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		conversations: conversations,
		logger:        log,
	}
}

// GetConversation handles GET /admin/conversations/{id}
func (h *AdminHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "missing conversation id")
		return
	}

	conv, err := h.conversations.FindByIDViaIndex(ctx, userID, conversationID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, conv)
	case errors.Is(err, repository.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, kvstore.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, kvstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage backend unavailable")
	default:
		h.logger.Error("admin conversation lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
	}
}
