package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/talk2data/talk2data/internal/auth"
	"github.com/talk2data/talk2data/internal/storage"
)

func handleGetArchive(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archives == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "result archiving is not enabled", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" || strings.Contains(key, "..") || !strings.HasSuffix(key, ".parquet") {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARCHIVE_KEY", "archive key must name a parquet object", false, map[string]any{"key": key})
		return
	}

	info, err := deps.Archives.Stat(r.Context(), key)
	if err != nil {
		writeArchiveError(w, r, key, err)
		return
	}
	body, err := deps.Archives.Get(r.Context(), key)
	if err != nil {
		writeArchiveError(w, r, key, err)
		return
	}
	defer func() { _ = body.Close() }()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", info.ETag)
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+archiveFilename(key)+"\"")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "archive download interrupted", "key", key, "error", err)
	}
}

func writeArchiveError(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "ARCHIVE_NOT_FOUND", "archive was not found", false, map[string]any{"key": key})
		return
	}
	writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_FETCH_FAILED", "failed to read archive", true, map[string]any{"key": key, "details": err.Error()})
}

func archiveFilename(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
