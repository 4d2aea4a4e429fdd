package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/types"
)

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	team, err := s.teams.CreateTeam(r.Context(), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, team)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams()
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, teams)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.store.GetTeam(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

func (s *Server) handleCurrentTeam(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, teamFrom(r))
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	sources, err := s.store.ListSourcesByTeam(team.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	sort.Slice(sources, func(a, b int) bool {
		return kindRank(sources[a].Kind) < kindRank(sources[b].Kind)
	})
	respondData(w, http.StatusOK, sources)
}

// handleDeleteSource deletes one of the caller's sources. Ids owned by
// another team are silently ignored, so the response never reveals
// whether a foreign id exists.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	if err := s.store.DeleteSourceScoped(team.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListShards(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.registry.ShardStatuses()
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, statuses)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, s.agents.List())
}

// handleEvents streams control-plane events as newline-delimited JSON
// until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, apperr.New(apperr.KindInternal, "streaming not supported"))
		return
	}

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case event, open := <-sub:
			if !open {
				return
			}
			if err := enc.Encode(event); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func kindRank(kind types.SourceKind) int {
	for i, k := range types.SourceKinds {
		if k == kind {
			return i
		}
	}
	return len(types.SourceKinds)
}
