// Package server exposes the router over a small JSON HTTP API. The server
// keeps no conversation state: callers send the history with every request.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llamachat/toolchat/internal/logging"
	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/router"
	"github.com/llamachat/toolchat/internal/tools"
)

const (
	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 5 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	router *router.Router
	engine *gin.Engine
}

// New builds a Server around r.
func New(r *router.Router) (*Server, error) {
	if r == nil {
		return nil, errors.New("router is required")
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestID(), requestLogger(), gin.Recovery())

	s := &Server{router: r, engine: engine}
	engine.GET("/healthz", s.health)
	v1 := engine.Group("/v1")
	v1.GET("/tools", s.listTools)
	v1.POST("/route", s.route)
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger().Info("http server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logging.Logger().Info("http server stopped")
	return nil
}

type routeRequest struct {
	History []provider.ChatMessage `json:"history"`
	Message string                 `json:"message"`
}

type routeResponse struct {
	Reply provider.ChatMessage `json:"reply"`
	Tool  *tools.Invocation    `json:"tool,omitempty"`
	Usage provider.TokenUsage  `json:"usage"`
}

type errorResponse struct {
	Error string            `json:"error"`
	Stage router.Stage      `json:"stage,omitempty"`
	Tool  *tools.Invocation `json:"tool,omitempty"`
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Triggers    []string       `json:"triggers"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listTools(c *gin.Context) {
	specs := s.router.Registry().List()
	out := make([]toolInfo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, toolInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Schema(),
			Triggers:    spec.Triggers,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

func (s *Server) route(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if err := validateHistory(req.History); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	history, changed := sanitizeToolTurns(req.History)
	if changed {
		logging.Logger().Info("dropped unmatched tool messages from history", "request_id", c.GetString(requestIDKey), "before", len(req.History), "after", len(history))
	}

	turn, err := s.router.Route(c.Request.Context(), history, req.Message)
	if err != nil {
		status, body := routeFailure(err)
		logging.Logger().Warn("route request failed", "request_id", c.GetString(requestIDKey), "status", status, "err", err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, routeResponse{Reply: turn.Reply, Tool: turn.Invocation, Usage: turn.Usage})
}

func validateHistory(history []provider.ChatMessage) error {
	for i, msg := range history {
		if strings.TrimSpace(string(msg.Role)) == "" {
			return fmt.Errorf("history[%d]: role is required", i)
		}
		if !msg.Role.Valid() {
			return fmt.Errorf("history[%d]: invalid role %q", i, msg.Role)
		}
	}
	return nil
}

func routeFailure(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, router.ErrEmptyMessage):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, provider.ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorResponse{Error: "request canceled"}
	}

	var routeErr *router.RouteError
	if errors.As(err, &routeErr) {
		return http.StatusBadGateway, errorResponse{
			Error: routeErr.Err.Error(),
			Stage: routeErr.Stage,
			Tool:  routeErr.Invocation,
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: err.Error()}
}
