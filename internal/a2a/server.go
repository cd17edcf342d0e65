package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"hr-agents/internal/infra/middleware"
)

const maxRequestBytes = 1 << 20

// Executor runs the agent behind this server. Input is the concatenated text
// of the inbound message's parts.
type Executor interface {
	Execute(ctx context.Context, input string) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, input string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// Server exposes one agent over the a2a protocol: the card at the well-known
// path and message/send at the root.
type Server struct {
	card      AgentCard
	executor  Executor
	logger    *slog.Logger
	addr      string
	httpSrv   *http.Server
	boundAddr string
}

// NewServer creates an a2a server for the given agent.
func NewServer(card AgentCard, executor Executor, addr string, logger *slog.Logger) *Server {
	return &Server{
		card:     card,
		executor: executor,
		logger:   logger,
		addr:     addr,
	}
}

// Handler builds the full HTTP handler, middleware included. The context
// bounds the rate limiter's janitor goroutine.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+AgentCardPath, s.handleCard)
	mux.HandleFunc("POST /", s.handleRPC)

	var handler http.Handler = mux
	handler = middleware.RateLimit(ctx, 300, 30)(handler)
	handler = middleware.SecurityHeaders(handler)
	return handler
}

// Start begins serving. Blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	handler := s.Handler(ctx)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("a2a listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	s.httpSrv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("a2a server started", "agent", s.card.Name, "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("a2a serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the actual address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		s.logger.Error("encode agent card", "error", err)
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, nil, codeParseError, "read request failed")
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, nil, codeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, codeInvalidRequest, "jsonrpc must be 2.0")
		return
	}
	if req.Method != "message/send" {
		s.writeError(w, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
		return
	}

	var params sendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidRequest, "invalid params")
		return
	}

	input := joinTextParts(params.Message.Parts)
	s.logger.Info("message received", "agent", s.card.Name, "message_id", params.Message.MessageID)

	answer, err := s.executor.Execute(r.Context(), input)
	if err != nil {
		s.logger.Error("executor failed", "agent", s.card.Name, "error", err)
		s.writeError(w, req.ID, codeInternalError, err.Error())
		return
	}

	reply := Message{
		Role:      "agent",
		MessageID: ulid.Make().String(),
		Kind:      "message",
		Parts:     []Part{{Kind: "text", Text: answer}},
	}
	result, err := json.Marshal(reply)
	if err != nil {
		s.writeError(w, req.ID, codeInternalError, "encode reply failed")
		return
	}

	s.writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, code int, msg string) {
	s.writeResponse(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: msg},
	})
}

func (s *Server) writeResponse(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// joinTextParts concatenates the text parts of a message with newlines,
// skipping non-text kinds.
func joinTextParts(parts []Part) string {
	var texts []string
	for _, p := range parts {
		if p.Kind == "text" || p.Kind == "" {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}
