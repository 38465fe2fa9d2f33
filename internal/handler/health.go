// Package handler provides HTTP handlers for the operational surface.
package handler

import (
	"net/http"

	"github.com/capitalize-ai/conversation-store/internal/kvstore/natskv"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	client *natskv.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(client *natskv.Client) *HealthHandler {
	return &HealthHandler{
		client: client,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.client == nil || !h.client.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "storage backend not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
