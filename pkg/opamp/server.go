package opamp

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/open-telemetry/opamp-go/protobufs"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/collectorcfg"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
)

const (
	contentTypeProtobuf = "application/x-protobuf"
	contentTypeJSON     = "application/json"

	// configFileName keys the config inside the AgentConfigMap
	configFileName = "collector.json"

	// maxMessageBytes caps an AgentToServer body
	maxMessageBytes = 4 << 20
)

// serverCapabilities is what this control plane offers: it accepts
// status reports and hands out remote configs. There is no
// server-initiated push; agents poll with their heartbeats.
var serverCapabilities = uint64(protobufs.ServerCapabilities_ServerCapabilities_AcceptsStatus) |
	uint64(protobufs.ServerCapabilities_ServerCapabilities_OffersRemoteConfig)

// Server is the plain-HTTP OpAMP endpoint collectors heartbeat
// against.
type Server struct {
	agents      *agent.Registry
	synthesizer *collectorcfg.Synthesizer
	logger      zerolog.Logger
	httpServer  *http.Server
}

// NewServer creates the OpAMP server
func NewServer(agents *agent.Registry, synthesizer *collectorcfg.Synthesizer) *Server {
	return &Server{
		agents:      agents,
		synthesizer: synthesizer,
		logger:      log.WithComponent("opamp"),
	}
}

// Handler returns the OpAMP route mux
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/opamp", s.handleMessage)
	return r
}

// Start serves the OpAMP endpoint on addr. Blocks until Shutdown or a
// listener error.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("opamp endpoint listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("opamp server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleMessage speaks one round of the OpAMP protocol: decode the
// agent's status, merge it into the registry, and answer with the
// remote config for the agent's shard.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != contentTypeProtobuf {
		metrics.OpAMPRequests.WithLabelValues("unsupported_media_type").Inc()
		http.Error(w, "expected "+contentTypeProtobuf, http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		metrics.OpAMPRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	var msg protobufs.AgentToServer
	if err := proto.Unmarshal(body, &msg); err != nil {
		metrics.OpAMPRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "malformed AgentToServer message", http.StatusBadRequest)
		return
	}

	// A config-accepting collector without its shard identity is
	// misconfigured; the operator must set it via
	// OTEL_RESOURCE_ATTRIBUTES. The gate runs before the registry sees
	// the message: no entry is created, no eviction clock starts, and
	// an existing entry keeps its last good attributes.
	capabilities, shardID := s.agents.Preview(&msg)
	if capabilities&uint64(protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig) != 0 && shardID == "" {
		metrics.OpAMPRequests.WithLabelValues("agent_misconfigured").Inc()
		s.logger.Error().
			Str("instance_uid", hex.EncodeToString(msg.InstanceUid)).
			Str("attribute", agent.ShardAttributeKey).
			Msg("agent reported no shard id; refusing to configure")
		http.Error(w, "agent misconfigured: missing "+agent.ShardAttributeKey, http.StatusInternalServerError)
		return
	}

	state := s.agents.Process(&msg)

	resp := &protobufs.ServerToAgent{
		InstanceUid:  msg.InstanceUid,
		Capabilities: serverCapabilities,
	}

	if capabilities&uint64(protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig) != 0 {
		cfg := s.synthesizer.ForShard(shardID)
		configBody, configHash, err := cfg.Render()
		if err != nil {
			metrics.OpAMPRequests.WithLabelValues("error").Inc()
			s.logger.Error().Err(err).Str("shard", shardID).Msg("config render failed")
			http.Error(w, "config synthesis failed", http.StatusInternalServerError)
			return
		}

		resp.RemoteConfig = &protobufs.AgentRemoteConfig{
			Config: &protobufs.AgentConfigMap{
				ConfigMap: map[string]*protobufs.AgentConfigFile{
					configFileName: {
						Body:        configBody,
						ContentType: contentTypeJSON,
					},
				},
			},
			ConfigHash: configHash,
		}

		s.agents.SetDelivered(msg.InstanceUid, configHash)
		metrics.ConfigsDelivered.WithLabelValues(string(cfg.Kind)).Inc()

		s.logger.Debug().
			Str("instance_uid", state.InstanceUID).
			Str("shard", shardID).
			Str("kind", string(cfg.Kind)).
			Msg("config delivered")
	}

	out, err := proto.Marshal(resp)
	if err != nil {
		metrics.OpAMPRequests.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("response marshal failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.OpAMPRequests.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", contentTypeProtobuf)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
