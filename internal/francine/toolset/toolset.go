// Package toolset assembles francine's built-in tools and the tools declared
// in the configuration into a registry.
package toolset

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/httpclient"
	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/rag"
	"github.com/tansive/francine/internal/francine/runners"
	"github.com/tansive/francine/internal/francine/runners/jsrunner"
	"github.com/tansive/francine/internal/francine/scheduler"
	"github.com/tansive/francine/internal/francine/tools"
)

// Querier answers rag_query.
type Querier interface {
	Query(ctx context.Context, question string, k int) ([]rag.Hit, error)
}

// JobScheduler accepts schedule_job requests.
type JobScheduler interface {
	ScheduleDaily(timeOfDay, command string) (scheduler.JobID, error)
}

// RuleKeeper accepts update_constitution requests.
type RuleKeeper interface {
	UpdateMessage(ctx context.Context, rule string) string
}

// Deps are the collaborators the built-in tools need. Nil collaborators
// leave their tools registered but failing with ErrNotConfigured, except for
// Files, which is required. Pass a nil interface, not a typed nil pointer.
type Deps struct {
	Files        *FileManager
	Index        Querier
	Scheduler    JobScheduler
	Constitution RuleKeeper
	HTTP         *httpclient.HTTPClient
	Resolver     *net.Resolver
	Endpoints    Endpoints
	Tools        config.ToolsConfig
	RAGTopK      int
	ScriptDir    string // base directory for configured command and JS tools
}

// Build returns every tool in registration order. Configured tools come last
// and may not reuse a built-in name.
func Build(ctx context.Context, deps Deps) ([]tools.Tool, error) {
	if deps.Files == nil {
		return nil, ErrNotConfigured.Msg("file manager is required")
	}
	web := NewWeb(deps.HTTP, deps.Endpoints)
	recon := NewRecon(web, deps.Resolver)
	commerce := NewCommerce(web, deps.Tools.Shopify)

	var all []tools.Tool
	all = append(all, recon.Tools()...)
	all = append(all, commerce.Tools()...)
	all = append(all, agentTools(deps, web)...)
	all = append(all, deps.Files.Tools()...)

	commandTools, err := runners.CommandTools(ctx, deps.Tools.Command, deps.ScriptDir)
	if err != nil {
		return nil, err
	}
	all = append(all, commandTools...)

	// JS tools may call any tool registered before them.
	builtins, err := tools.NewRegistry(all...)
	if err != nil {
		return nil, err
	}
	jsTools, err := runners.JSTools(ctx, deps.Tools.JS, deps.ScriptDir, registryCaller(builtins))
	if err != nil {
		return nil, err
	}
	all = append(all, jsTools...)

	log.Ctx(ctx).Debug().Int("total", len(all)).Int("command", len(commandTools)).Int("js", len(jsTools)).Msg("tools assembled")
	return all, nil
}

// NewRegistry builds the tools and the registry in one step.
func NewRegistry(ctx context.Context, deps Deps) (*tools.Registry, error) {
	all, err := Build(ctx, deps)
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(all...)
}

// registryCaller lets JavaScript tools call registered tools after schema
// validation.
func registryCaller(r *tools.Registry) jsrunner.ToolCaller {
	return func(ctx context.Context, name string, args map[string]any) (any, error) {
		t, ok := r.Lookup(name)
		if !ok {
			return nil, tools.ErrUnknownTool.Msg("unknown tool: " + name)
		}
		if err := r.Validate(name, args); err != nil {
			return nil, err
		}
		return t.Capability.Call(ctx, args)
	}
}

func agentTools(deps Deps, web *Web) []tools.Tool {
	topK := deps.RAGTopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	return []tools.Tool{
		tools.New("rag_query", "Queries the document index for relevant documents and returns a list of (text, score) results.", tools.FamilyRAG,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				if deps.Index == nil {
					return nil, ErrNotConfigured.Msg("the document index is not available; run 'francine index build'")
				}
				hits, err := deps.Index.Query(ctx, tools.StringArg(args, "question", ""), tools.IntArg(args, "k", topK))
				if err != nil {
					return nil, err
				}
				return hits, nil
			}),
			tools.Required("question", "string", "The question to query the RAG index with."),
			tools.Optional("k", "integer", fmt.Sprintf("The number of top results to retrieve (default %d).", topK)),
		).WithBlocking(),
		tools.New("schedule_job", "Schedules a job to run at specified intervals using a cron-like expression. (Non-blocking)", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				if deps.Scheduler == nil {
					return nil, ErrNotConfigured.Msg("the scheduler is not running")
				}
				at := tools.StringArg(args, "cron_expression", "")
				command := tools.StringArg(args, "command", "")
				id, err := deps.Scheduler.ScheduleDaily(at, command)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("Job scheduled: '%s' to run daily at %s (job %s).", command, at, id), nil
			}),
			tools.Required("cron_expression", "string", "A cron-like expression (e.g., 'HH:MM' for daily)."),
			tools.Required("command", "string", "The shell command to execute."),
		),
		tools.New("scrape_text_content", "Navigates to a URL and returns its full text content for general web scraping.", tools.FamilyScrape,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return web.ScrapeText(ctx, tools.StringArg(args, "url", ""), tools.StringArg(args, "selector", "body"))
			}),
			tools.Required("url", "string", "The URL to scrape."),
			tools.Optional("selector", "string", "CSS selector for the content to scrape (default 'body')."),
		).WithBlocking(),
		tools.New("update_constitution", "Adds a new rule to Francine's constitution.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				if deps.Constitution == nil {
					return nil, ErrNotConfigured.Msg("the constitution is not available")
				}
				return deps.Constitution.UpdateMessage(ctx, tools.StringArg(args, "new_rule", "")), nil
			}),
			tools.Required("new_rule", "string", "The new rule to add to the constitution."),
		),
	}
}
