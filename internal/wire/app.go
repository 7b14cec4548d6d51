package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	pgdb "github.com/marcusai/marcus/internal/adapter/postgres"
	pgagent "github.com/marcusai/marcus/internal/adapter/postgres/agent"
	pgartifact "github.com/marcusai/marcus/internal/adapter/postgres/artifact"
	pgassignment "github.com/marcusai/marcus/internal/adapter/postgres/assignment"
	pgdecision "github.com/marcusai/marcus/internal/adapter/postgres/decision"
	pglocker "github.com/marcusai/marcus/internal/adapter/postgres/locker"
	pgproject "github.com/marcusai/marcus/internal/adapter/postgres/project"
	pgtask "github.com/marcusai/marcus/internal/adapter/postgres/task"

	pgkv "github.com/marcusai/marcus/internal/adapter/postgres/kv"

	boardgithub "github.com/marcusai/marcus/internal/adapter/board/github"
	boardnoop "github.com/marcusai/marcus/internal/adapter/board/noop"

	llmanthropic "github.com/marcusai/marcus/internal/adapter/llm/anthropic"
	llmnoop "github.com/marcusai/marcus/internal/adapter/llm/noop"

	"github.com/marcusai/marcus/internal/adapter/conversationlog/file"
	"github.com/marcusai/marcus/internal/adapter/eventbus/inproc"
	"github.com/marcusai/marcus/internal/clock"
	"github.com/marcusai/marcus/internal/config"

	portassignment "github.com/marcusai/marcus/internal/port/assignment"
	portboard "github.com/marcusai/marcus/internal/port/board"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
	portkv "github.com/marcusai/marcus/internal/port/kv"
	portllm "github.com/marcusai/marcus/internal/port/llm"
	portproject "github.com/marcusai/marcus/internal/port/project"

	assignmentsvc "github.com/marcusai/marcus/internal/service/assignment"
	"github.com/marcusai/marcus/internal/service/contextbuilder"
	"github.com/marcusai/marcus/internal/service/coordinator"
	dependencysvc "github.com/marcusai/marcus/internal/service/dependency"
	leasesvc "github.com/marcusai/marcus/internal/service/lease"
	memorysvc "github.com/marcusai/marcus/internal/service/memory"
	"github.com/marcusai/marcus/internal/service/registry"

	"github.com/marcusai/marcus/internal/transport"
	mcptransport "github.com/marcusai/marcus/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool      *pgxpool.Pool
	Server    *http.Server
	ConvLog   *file.Log
	Registry  *registry.Service
	Leases    *leasesvc.Manager
	Coord     *coordinator.Coordinator
	MCPServer *mcptransport.Server
	Model     portllm.Model
	Bus       portbus.EventBus

	monitoringInterval time.Duration
	projects           portproject.Repository
	assignments        portassignment.Repository
}

// Build is the composition root: the only place concrete types are wired to
// their interface dependencies.
func Build(ctx context.Context) (*App, error) {
	// ── Configuration (spec §6) ──────────────────────────────────────────
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	// ── Database ─────────────────────────────────────────────────────────
	dbURL := cfg.DatabaseURL
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	pool, err := pgdb.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// ── Repository adapters ──────────────────────────────────────────────
	taskRepo := pgtask.New(pool)
	agentRepo := pgagent.New(pool)
	profileRepo := pgagent.NewProfileRepository(pool)
	projectRepo := pgproject.New(pool)
	assignmentRepo := pgassignment.New(pool)
	decisionRepo := pgdecision.New(pool)
	artifactRepo := pgartifact.New(pool)
	lock := pglocker.New(pool)

	var kvStore portkv.Store = pgkv.New(pool)

	// ── Conversation log ─────────────────────────────────────────────────
	convLog, err := file.New(cfg.ConversationLogDir)
	if err != nil {
		return nil, fmt.Errorf("opening conversation log: %w", err)
	}

	// ── Event bus ─────────────────────────────────────────────────────────
	var eventBus portbus.EventBus = inproc.New()

	// ── Board providers, keyed by provider name (spec §4.2's board_binding) ─
	boards := map[string]portboard.Provider{
		"noop": boardnoop.New(),
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		boards["github"] = boardgithub.New(token)
	}

	// ── LLM model, wired into the coordinator's blocker suggestions and the
	// context builder's instruction synthesis; degrades to a null model that
	// keeps both operable without AI (spec §9). ───────────────────────────
	var model portllm.Model
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && cfg.AI.Enabled {
		if cfg.AI.Model != "" {
			model = llmanthropic.NewWithModel(apiKey, cfg.AI.Model)
		} else {
			model = llmanthropic.New(apiKey)
		}
	} else {
		model = llmnoop.New()
	}

	// ── Services ──────────────────────────────────────────────────────────
	regSvc := registry.NewService(taskRepo, projectRepo, eventBus, boards)

	depsSvc := dependencysvc.NewService(taskRepo, cfg.DependencyInference.PropagationFactor, cfg.DependencyInference.ConfidenceThreshold)

	memSvc := memorysvc.NewService(kvStore, profileRepo)
	ctxBuilder := contextbuilder.NewService(taskRepo, decisionRepo, artifactRepo, depsSvc, model)
	engine := assignmentsvc.NewEngine(taskRepo, assignmentRepo, agentRepo, depsSvc)

	leaseCfg := leasesvc.Config{
		DefaultHours:           cfg.TaskLease.DefaultHours,
		MinHours:               cfg.TaskLease.MinHours,
		MaxHours:               cfg.TaskLease.MaxHours,
		WarningHours:           cfg.TaskLease.WarningHours,
		GracePeriodMinutes:     cfg.TaskLease.GracePeriodMinutes,
		RenewalDecayFactor:     cfg.TaskLease.RenewalDecayFactor,
		StuckThresholdRenewals: cfg.TaskLease.StuckThresholdRenewals,
	}
	leases := leasesvc.NewManager(leaseCfg, clock.Real{}, assignmentRepo, taskRepo, agentRepo, profileRepo, eventBus)

	coord := coordinator.New(
		regSvc,
		depsSvc,
		memSvc,
		ctxBuilder,
		engine,
		leases,
		agentRepo,
		profileRepo,
		assignmentRepo,
		decisionRepo,
		artifactRepo,
		eventBus,
		convLog,
		lock,
		kvStore,
		model,
		cfg.BoardHealth.MaxTasksPerAgent,
	)

	// ── MCP transport ─────────────────────────────────────────────────────
	reg := mcptransport.NewSessionRegistry()
	mcpServer := mcptransport.New(reg, coord)

	// ── HTTP transport ────────────────────────────────────────────────────
	pingDB := func(ctx context.Context) error { return pool.Ping(ctx) }
	router := transport.NewRouter(ctx, coord, mcpServer, eventBus, pingDB)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	slog.Info("application wired", "addr", cfg.HTTPAddr)

	app := &App{
		Pool:               pool,
		Server:             server,
		ConvLog:            convLog,
		Registry:           regSvc,
		Leases:             leases,
		Coord:              coord,
		MCPServer:          mcpServer,
		Model:              model,
		Bus:                eventBus,
		monitoringInterval: time.Duration(cfg.MonitoringInterval * float64(time.Second)),
		projects:           projectRepo,
		assignments:        assignmentRepo,
	}

	startBoardReconciler(ctx, app)

	return app, nil
}

// Close flushes and releases the resources Build acquired, in reverse order.
func (a *App) Close() error {
	if err := a.ConvLog.Close(); err != nil {
		slog.Error("failed to close conversation log", "error", err)
	}
	a.Pool.Close()
	return nil
}
