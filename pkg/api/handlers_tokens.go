package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// tokenRecord is the API shape of an ingestion token. The stored hash
// stays out of every response; the prefix is all a UI needs to let a
// user recognize a token.
type tokenRecord struct {
	ID            string            `json:"id"`
	TokenPrefix   string            `json:"token_prefix"`
	Status        types.TokenStatus `json:"status"`
	AssignedShard string            `json:"assigned_shard"`
	Description   string            `json:"description,omitempty"`
	LastUsedAt    *time.Time        `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time        `json:"revoked_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// issuedToken is the create and rotate response. Token carries the
// plaintext; this response is the only place it ever appears.
type issuedToken struct {
	Token       string      `json:"token"`
	TokenRecord tokenRecord `json:"token_record"`
}

func toTokenRecord(t *types.IngestionToken) tokenRecord {
	return tokenRecord{
		ID:            t.ID,
		TokenPrefix:   t.TokenPrefix,
		Status:        t.Status,
		AssignedShard: t.AssignedShard,
		Description:   t.Description,
		LastUsedAt:    t.LastUsedAt,
		RevokedAt:     t.RevokedAt,
		CreatedAt:     t.CreatedAt,
	}
}

func toIssuedToken(issued *registry.Issued) issuedToken {
	return issuedToken{
		Token:       issued.Token,
		TokenRecord: toTokenRecord(issued.Record),
	}
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	tokens, err := s.registry.List(team.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	records := make([]tokenRecord, 0, len(tokens))
	for _, tok := range tokens {
		records = append(records, toTokenRecord(tok))
	}
	respondData(w, http.StatusOK, records)
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	var req struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	issued, err := s.registry.Create(team.ID, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIssuedToken(issued))
}

func (s *Server) handleRotateToken(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	issued, err := s.registry.Rotate(team.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIssuedToken(issued))
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	record, err := s.registry.Revoke(team.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTokenRecord(record))
}

func (s *Server) handleAssignShard(w http.ResponseWriter, r *http.Request) {
	team := teamFrom(r)

	var req struct {
		AssignedShard string `json:"assigned_shard"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AssignedShard == "" {
		respondError(w, apperr.New(apperr.KindInvalid, "assigned_shard is required"))
		return
	}

	record, err := s.registry.AssignShard(team.ID, chi.URLParam(r, "id"), req.AssignedShard)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":             record.ID,
		"assigned_shard": record.AssignedShard,
	})
}
