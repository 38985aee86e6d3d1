// Package server exposes the Francine agent over HTTP. It serves prompts,
// human clarifications for in-flight prompts, the tool catalogue, daily job
// scheduling and an MCP endpoint over the same tool registry.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/httpx"
	"github.com/tansive/francine/internal/common/logtrace"
	"github.com/tansive/francine/internal/common/middleware"
	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/invoker"
	"github.com/tansive/francine/internal/francine/scheduler"
	"github.com/tansive/francine/internal/francine/tools"
	"github.com/tansive/francine/pkg/api"
)

// APIVersionHeader carries the client's API version. Requests without it are
// accepted.
const APIVersionHeader = api.VersionHeader

const (
	shortRequestTimeout = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Asker answers one prompt.
type Asker interface {
	Handle(ctx context.Context, prompt string) agent.Result
}

// ToolRunner invokes registered tools.
type ToolRunner interface {
	Invoke(ctx context.Context, name string, args map[string]any) invoker.Outcome
	Registry() *tools.Registry
}

// JobScheduler registers and lists daily jobs.
type JobScheduler interface {
	ScheduleDaily(timeOfDay, command string) (scheduler.JobID, error)
	Jobs() []scheduler.Job
}

// Options configures a Server. Agent and Tools are required.
type Options struct {
	Agent      Asker
	Tools      ToolRunner
	Scheduler  JobScheduler
	Broker     *Broker
	HandleCORS bool
	APISecret  string
	EnableMCP  bool
}

// Server is the HTTP front end of the agent.
type Server struct {
	Router *chi.Mux
	opts   Options
	mcp    *MCPEndpoint
}

// New creates a server. Call MountHandlers before serving.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Agent == nil || opts.Tools == nil {
		return nil, ErrServerError.Msg("agent and tools are required")
	}
	if opts.Broker == nil {
		opts.Broker = NewBroker(0)
	}
	s := &Server{
		Router: chi.NewRouter(),
		opts:   opts,
	}
	if opts.EnableMCP {
		s.mcp = NewMCPEndpoint(ctx, opts.Tools.Registry(), opts.Tools)
	}
	return s, nil
}

// MountHandlers installs middleware and routes.
func (s *Server) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.opts.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Use(checkAPIVersion)
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in francine router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *Server) mountResourceHandlers(r chi.Router) {
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)

	r.Group(func(r chi.Router) {
		r.Use(RequireToken(s.opts.APISecret))

		// prompts may wait on a human, so /ask and /mcp carry no timeout
		r.Post("/ask", httpx.WrapHttpRsp(s.ask))
		if s.mcp != nil {
			r.Post("/mcp", s.mcp.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.SetTimeout(shortRequestTimeout))
			r.Get("/tools", httpx.WrapHttpRsp(s.listTools))
			r.Get("/clarifications", httpx.WrapHttpRsp(s.listClarifications))
			r.Post("/clarifications/{id}", httpx.WrapHttpRsp(s.answerClarification))
			r.Get("/schedule", httpx.WrapHttpRsp(s.listJobs))
			r.Post("/schedule", httpx.WrapHttpRsp(s.scheduleJob))
		})
	})
}

func checkAPIVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get(APIVersionHeader); v != "" && !IsAPICompatible(v) {
			httpx.SendError(w, ErrBadRequest.Msg("unsupported API version "+v+", server speaks "+APIVersion))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Ctx(ctx).Info().Str("addr", addr).Msg("francine server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	log.Ctx(ctx).Info().Msg("shutting down francine server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, &api.VersionResponse{
		ServerVersion: "Francine Server: " + Version,
		ApiVersion:    APIVersion,
	})
}

func (s *Server) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS allows browser clients from any origin.
func (s *Server) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding", APIVersionHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
