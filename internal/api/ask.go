package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/talk2data/talk2data/internal/auth"
	"github.com/talk2data/talk2data/internal/catalog"
	"github.com/talk2data/talk2data/internal/config"
	"github.com/talk2data/talk2data/internal/pipeline"
)

const maxQuestionBytes = 1 << 16

type askRequest struct {
	Question string `json:"question"`
	Database string `json:"database"`
}

func handleAsk(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var payload askRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON object with a question", false, map[string]any{"details": err.Error()})
		return
	}
	payload.Question = strings.TrimSpace(payload.Question)
	payload.Database = strings.TrimSpace(payload.Database)
	if payload.Question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "question is required", false, nil)
		return
	}

	ctx := r.Context()
	timeout := deps.AskTimeout
	if timeout <= 0 {
		timeout = cfg.AI.Timeout + cfg.Database.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := pipeline.Request{Question: payload.Question}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		req.ReadOnly = !identity.CanWrite()
	}

	answer, err := deps.Workspace.Ask(ctx, payload.Database, req)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "DATABASE_NOT_FOUND", "database was not found", false, map[string]any{"database": payload.Database})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ASK_FAILED", "failed to open database", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, answer.View())
}
