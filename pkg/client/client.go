package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// requestTimeout bounds every non-streaming call
const requestTimeout = 10 * time.Second

// teamHeader carries the team scope on tenant routes
const teamHeader = "X-Team-ID"

// TokenRecord is the API's view of an ingestion token
type TokenRecord struct {
	ID            string            `json:"id"`
	TokenPrefix   string            `json:"token_prefix"`
	Status        types.TokenStatus `json:"status"`
	AssignedShard string            `json:"assigned_shard"`
	Description   string            `json:"description,omitempty"`
	LastUsedAt    *time.Time        `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time        `json:"revoked_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// IssuedToken pairs a freshly minted plaintext with its record. The
// server returns the plaintext exactly once; callers must show or save
// it immediately.
type IssuedToken struct {
	Token       string      `json:"token"`
	TokenRecord TokenRecord `json:"token_record"`
}

// Client is a typed HTTP client for the switchboard control-plane API
type Client struct {
	baseURL string
	teamID  string
	http    *http.Client
}

// New creates a client against the given base URL, e.g.
// "http://localhost:4320".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// WithTeam returns a copy of the client scoped to a team. Team-scoped
// calls on an unscoped client are rejected by the server.
func (c *Client) WithTeam(teamID string) *Client {
	scoped := *c
	scoped.teamID = teamID
	return &scoped
}

// CreateTeam registers a new team and bootstraps its tenant
func (c *Client) CreateTeam(name string) (*types.Team, error) {
	var team types.Team
	if err := c.call(http.MethodPost, "/teams", map[string]string{"name": name}, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeams lists all registered teams
func (c *Client) ListTeams() ([]*types.Team, error) {
	var out struct {
		Data []*types.Team `json:"data"`
	}
	if err := c.call(http.MethodGet, "/teams", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetTeam fetches one team by id
func (c *Client) GetTeam(id string) (*types.Team, error) {
	var team types.Team
	if err := c.call(http.MethodGet, "/teams/"+id, nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// CurrentTeam fetches the team the client is scoped to
func (c *Client) CurrentTeam() (*types.Team, error) {
	var team types.Team
	if err := c.call(http.MethodGet, "/team", nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateToken issues a new ingestion token for the scoped team
func (c *Client) CreateToken(description string) (*IssuedToken, error) {
	var issued IssuedToken
	body := map[string]string{"description": description}
	if err := c.call(http.MethodPost, "/ingestion-tokens", body, &issued); err != nil {
		return nil, err
	}
	return &issued, nil
}

// ListTokens lists the scoped team's tokens, newest first
func (c *Client) ListTokens() ([]*TokenRecord, error) {
	var out struct {
		Data []*TokenRecord `json:"data"`
	}
	if err := c.call(http.MethodGet, "/ingestion-tokens", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// RotateToken revokes a token and returns its replacement
func (c *Client) RotateToken(id string) (*IssuedToken, error) {
	var issued IssuedToken
	if err := c.call(http.MethodPost, "/ingestion-tokens/"+id+"/rotate", nil, &issued); err != nil {
		return nil, err
	}
	return &issued, nil
}

// RevokeToken revokes a token
func (c *Client) RevokeToken(id string) (*TokenRecord, error) {
	var record TokenRecord
	if err := c.call(http.MethodDelete, "/ingestion-tokens/"+id, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// AssignShard moves a token to the named shard
func (c *Client) AssignShard(tokenID, shard string) error {
	body := map[string]string{"assigned_shard": shard}
	return c.call(http.MethodPatch, "/ingestion-tokens/"+tokenID+"/shard", body, nil)
}

// ListSources lists the scoped team's sources
func (c *Client) ListSources() ([]*types.Source, error) {
	var out struct {
		Data []*types.Source `json:"data"`
	}
	if err := c.call(http.MethodGet, "/sources", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DeleteSource deletes one of the scoped team's sources
func (c *Client) DeleteSource(id string) error {
	return c.call(http.MethodDelete, "/sources/"+id, nil, nil)
}

// ListShards returns shard occupancy
func (c *Client) ListShards() ([]types.ShardStatus, error) {
	var out struct {
		Data []types.ShardStatus `json:"data"`
	}
	if err := c.call(http.MethodGet, "/shards", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListAgents returns the collector agents the control plane tracks
func (c *Client) ListAgents() ([]*agent.State, error) {
	var out struct {
		Data []*agent.State `json:"data"`
	}
	if err := c.call(http.MethodGet, "/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// StreamEvents follows the control-plane event stream, invoking fn for
// each event until the context is cancelled or the stream breaks.
func (c *Client) StreamEvents(ctx context.Context, fn func(*events.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var ev events.Event
		if err := dec.Decode(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		fn(&ev)
	}
}

// call performs one request and decodes the response into out
func (c *Client) call(method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if c.teamID != "" {
		req.Header.Set(teamHeader, c.teamID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an API error envelope back into an apperr so CLI
// callers can branch on the kind.
func decodeError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error.Kind == "" {
		return fmt.Errorf("api request failed with status %d", resp.StatusCode)
	}
	return apperr.New(apperr.Kind(payload.Error.Kind), "%s", payload.Error.Message)
}
