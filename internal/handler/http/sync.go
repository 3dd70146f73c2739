package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/utils"
	"github.com/MKhiriev/go-health-keeper/models"
)

// maxPushBodyBytes bounds a decoded push body. 1000 entries of a few KiB each
// fit comfortably.
const maxPushBodyBytes = 16 << 20

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.push").Msg("no user ID was given")
		utils.WriteError(w, "no user ID was given", http.StatusUnauthorized)
		return
	}

	var req models.PushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBodyBytes)).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.push").Msg("invalid JSON was passed")
		h.writeError(w, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	resp, err := h.services.SyncService.Push(ctx, userID, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.push").Int("entries", len(req.Entries)).Msg("push failed")
		h.writeError(w, err)
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.pull").Msg("no user ID was given")
		utils.WriteError(w, "no user ID was given", http.StatusUnauthorized)
		return
	}

	req, err := parsePullRequest(r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.pull").Msg("invalid pull query")
		h.writeError(w, err)
		return
	}
	req.UserID = userID

	resp, err := h.services.SyncService.Pull(ctx, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.pull").Int64("since", req.Since).Msg("pull failed")
		h.writeError(w, err)
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

// parsePullRequest reads since and limit. Missing parameters stay zero and
// are defaulted by the service.
func parsePullRequest(r *http.Request) (models.PullRequest, error) {
	var req models.PullRequest
	query := r.URL.Query()

	if raw := query.Get("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: since=%q", ErrInvalidQueryParam, raw)
		}
		req.Since = since
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%w: limit=%q", ErrInvalidQueryParam, raw)
		}
		req.Limit = limit
	}

	return req, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	utils.WriteError(w, messageFromStatus(err, status), status)
}
