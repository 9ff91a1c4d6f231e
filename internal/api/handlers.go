package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blockedby/grouppulse/internal/stats"
	"github.com/blockedby/grouppulse/internal/telegram"
)

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("grouppulse is running"))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// listGroups returns the groups visible to the session.
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Directory.ListGroups(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("api: group listing failed")
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GroupsFromDomain(groups))
}

// groupStats computes the trailing-window activity summary for one group.
func (s *Server) groupStats(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	groupID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id: "+idStr)
		return
	}

	msgs, err := s.deps.Fetcher.RecentMessages(r.Context(), groupID, s.config.FetchLimit)
	if err != nil {
		s.log.Error().Err(err).Int64("group_id", groupID).Msg("api: message fetch failed")
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats.Summarize(msgs, time.Now()))
}

// writeDomainError maps error kinds to response codes; the body carries
// the underlying message.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, telegram.ErrNotAuthorized):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, telegram.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
