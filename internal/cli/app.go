package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/audit"
	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/eventbus"
	"github.com/tansive/francine/internal/francine/evolution"
	"github.com/tansive/francine/internal/francine/interactions"
	"github.com/tansive/francine/internal/francine/invoker"
	"github.com/tansive/francine/internal/francine/llm"
	"github.com/tansive/francine/internal/francine/memory"
	"github.com/tansive/francine/internal/francine/rag"
	"github.com/tansive/francine/internal/francine/reflector"
	"github.com/tansive/francine/internal/francine/scheduler"
	"github.com/tansive/francine/internal/francine/tools"
	"github.com/tansive/francine/internal/francine/toolset"
)

// AuditLogFile is the signed interaction log inside the audit directory.
const AuditLogFile = "interactions.tlog"

// AppOptions are the surface-specific collaborators of an App.
type AppOptions struct {
	Clarifier agent.Clarifier
	Responder agent.Responder
	Chooser   agent.Chooser
	// Sinks starts the asynchronous audit and Postgres consumers.
	Sinks bool
}

// App owns every long-lived handle of one francine process.
type App struct {
	Config       *config.ConfigParam
	Store        *memory.Store
	Backend      *llm.Backend
	Index        *rag.Index // nil when retrieval is disabled or unavailable
	Scheduler    *scheduler.Scheduler
	Constitution *evolution.Constitution
	Registry     *tools.Registry
	Invoker      *invoker.Invoker
	Loop         *agent.Loop

	bus        *eventbus.Bus
	fanout     *interactions.Fanout
	stopSinks  context.CancelFunc
	auditPath  string
	closeFuncs []func() error
}

// NewApp builds the agent and its collaborators from cfg.
func NewApp(ctx context.Context, cfg *config.ConfigParam, opts AppOptions) (*App, error) {
	store, err := memory.NewStore(cfg.Data.Dir)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Store: store, auditPath: store.Path(memory.AuditDir, AuditLogFile)}

	a.Constitution = evolution.NewConstitution(store)
	if err := a.Constitution.EnsureDefault(); err != nil {
		return nil, err
	}

	a.Backend, err = llm.NewFromConfig(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("provider", a.Backend.Provider).Str("model", a.Backend.Model).Msg("llm backend ready")

	if cfg.RAG.Enabled {
		idx, err := rag.Open(store.Path(memory.RAGDBFile), a.Backend.Embedder, rag.WithTopK(cfg.RAG.TopK))
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("retrieval disabled, unable to open index")
		} else {
			a.Index = idx
			a.closeFuncs = append(a.closeFuncs, idx.Close)
		}
	}

	a.Scheduler = scheduler.New(scheduler.WithTick(config.MustDuration(cfg.Scheduler.TickInterval)))

	files, err := toolset.NewFileManager(store.Path(memory.ManagedFilesDir))
	if err != nil {
		a.Close()
		return nil, err
	}
	deps := toolset.Deps{
		Files:        files,
		Scheduler:    a.Scheduler,
		Constitution: a.Constitution,
		Tools:        cfg.Tools,
		RAGTopK:      cfg.RAG.TopK,
		ScriptDir:    store.Path("tools"),
	}
	var contextProvider agent.ContextProvider
	if a.Index != nil {
		deps.Index = a.Index
		contextProvider = a.Index
	}
	a.Registry, err = toolset.NewRegistry(ctx, deps)
	if err != nil {
		a.Close()
		return nil, err
	}

	invOpts := []invoker.Option{
		invoker.WithTimeout(config.MustDuration(cfg.Agent.ToolTimeout)),
		invoker.WithMaxBlockingWorkers(cfg.Agent.MaxBlockingWorkers),
		invoker.WithResultStore(invoker.NewDirStore(store.Path(memory.RawHitsDir))),
	}
	if cfg.Agent.ToolRatePerSecond > 0 {
		invOpts = append(invOpts, invoker.WithRateLimit(cfg.Agent.ToolRatePerSecond, cfg.Agent.ToolBurst))
	}
	a.Invoker = invoker.New(a.Registry, invOpts...)

	a.bus = eventbus.New()
	a.fanout = interactions.NewFanout(a.bus)
	if opts.Sinks {
		sinkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopSinks = cancel
		a.startSinks(sinkCtx)
	}

	a.Loop, err = agent.New(agent.Deps{
		LLM:         a.Backend.Client,
		Tools:       a.Registry,
		Invoker:     a.Invoker,
		Reflector:   reflector.New(a.Backend.Client, a.Registry.SchemaJSON()),
		Log:         interactions.NewRecorder(store.Memlog(), a.bus),
		Context:     contextProvider,
		Clarifier:   opts.Clarifier,
		Responder:   opts.Responder,
		Persona:     evolution.NewPersona(store, a.Constitution),
		Chooser:     opts.Chooser,
		FeedbackLog: evolution.NewFeedbackLog(store),
	},
		agent.WithMaxRetries(cfg.AgentMaxRetries()),
		agent.WithMaxPromptChars(cfg.Agent.MaxRetryPromptChars),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// startSinks subscribes the configured asynchronous interaction sinks. A
// sink that cannot be opened is skipped; the memlog stays authoritative.
func (a *App) startSinks(ctx context.Context) {
	cfg := a.Config
	if cfg.Audit.Enabled {
		key, err := audit.LoadKey(a.Store.Path(memory.AuditDir), cfg.Audit.SigningSecret)
		if err == nil {
			var w *audit.Writer
			if w, err = audit.OpenWriter(a.auditPath, cfg.Audit.FlushInterval, key); err == nil {
				a.fanout.Start(ctx, interactions.NewAuditSink(w))
			}
		}
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("audit log disabled")
		}
	}
	if cfg.Postgres.Enabled {
		pg, err := interactions.OpenPostgres(ctx, cfg.Postgres.DSN, "")
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("postgres interaction sink disabled")
		} else {
			a.fanout.Start(ctx, pg)
		}
	}
}

// AuditPath is the location of the signed interaction log.
func (a *App) AuditPath() string { return a.auditPath }

// RunScheduler runs due jobs in the background until ctx ends.
func (a *App) RunScheduler(ctx context.Context) {
	go func() {
		if err := a.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Ctx(ctx).Error().Err(err).Msg("scheduler stopped")
		}
	}()
}

// Reflect distils recent interactions into core memory. Failures are logged,
// not returned, so a broken model never blocks startup.
func (a *App) Reflect(ctx context.Context) []string {
	insights, err := evolution.ReflectOnMemory(ctx, a.Backend.Client, a.Store)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("memory reflection failed")
		return nil
	}
	return insights
}

// Close flushes the sinks and releases every handle. It is safe to call on a
// partially built App.
func (a *App) Close() {
	if a.stopSinks != nil {
		a.stopSinks()
	}
	if a.fanout != nil {
		a.fanout.Stop()
	}
	if a.bus != nil {
		a.bus.Shutdown()
	}
	if a.Scheduler != nil {
		a.Scheduler.Wait()
	}
	for _, fn := range a.closeFuncs {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("error while closing")
		}
	}
	a.closeFuncs = nil
}
