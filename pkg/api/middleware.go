package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/metrics"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// teamHeader carries the caller's team identity. Platform auth sits in
// front of this service and is trusted to have verified it.
const teamHeader = "X-Team-ID"

type ctxKey int

const teamKey ctxKey = iota

// instrument logs every request and records the API metrics
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method).Observe(duration.Seconds())

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("api request")
	})
}

// requireTeam resolves the X-Team-ID header to a team and stores it in
// the request context. A missing header and an unknown team id produce
// the same forbidden response, so probing cannot confirm which team
// ids exist.
func (s *Server) requireTeam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		teamID := r.Header.Get(teamHeader)
		if teamID == "" {
			respondError(w, apperr.New(apperr.KindForbidden, "missing %s header", teamHeader))
			return
		}

		team, err := s.store.GetTeam(teamID)
		if err != nil {
			respondError(w, apperr.New(apperr.KindForbidden, "team access denied"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), teamKey, team)))
	})
}

// teamFrom returns the team requireTeam placed in the context
func teamFrom(r *http.Request) *types.Team {
	team, _ := r.Context().Value(teamKey).(*types.Team)
	return team
}
