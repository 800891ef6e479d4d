package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkohler/newsroom/pkg/agents"
	"github.com/mkohler/newsroom/pkg/api"
	"github.com/mkohler/newsroom/pkg/config"
	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/llm"
	"github.com/mkohler/newsroom/pkg/observability"
	"github.com/mkohler/newsroom/pkg/resilience"
	"github.com/mkohler/newsroom/pkg/tools"
	"github.com/mkohler/newsroom/pkg/workflow"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"

	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	tracer    trace.Tracer
)

func main() {
	var (
		configPath = flag.String("config", "configs/default.yaml", "Path to configuration file")
		version    = flag.Bool("version", false, "Show version information")
		apiMode    = flag.Bool("api", false, "Run in API server mode")
		topic      = flag.String("topic", "", "Research topic (for CLI mode)")
		sequential = flag.Bool("sequential", false, "Skip the review loop (CLI mode)")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Newsroom Research Pipeline\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg := config.LoadOrDefault(*configPath)

	ctx := context.Background()
	if err := initObservability(cfg); err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	defer shutdownObservability(ctx)

	ctx, span := tracer.Start(ctx, "main",
		trace.WithAttributes(
			attribute.String("version", Version),
			attribute.String("mode", getMode(*apiMode)),
		),
	)
	defer span.End()

	log.Printf("Starting newsroom v%s (built: %s)", Version, BuildTime)

	if err := run(ctx, cfg, *apiMode, *topic, *sequential); err != nil {
		span.RecordError(err)
		log.Fatalf("Application failed: %v", err)
	}
}

func initObservability(cfg *config.Config) error {
	telConfig := cfg.TelemetrySettings(Version)

	var err error
	telemetry, err = observability.NewTelemetry(&telConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	tracer = telemetry.Tracer()

	if cfg.Observability.Metrics.Enabled {
		metrics, err = observability.NewMetrics(telemetry.Meter())
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}
	return nil
}

func shutdownObservability(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, apiMode bool, topic string, sequential bool) error {
	ctx, span := tracer.Start(ctx, "initialize_components")

	ollamaClient := llm.NewOllamaClient(
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		&llm.OllamaOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
		},
	)

	healthCtx, healthSpan := tracer.Start(ctx, "ollama_health_check")
	if err := ollamaClient.CheckHealth(healthCtx); err != nil {
		healthSpan.RecordError(err)
		healthSpan.End()
		span.End()
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	healthSpan.End()
	log.Println("Ollama connection established")

	instrumented, err := llm.NewInstrumentedLLMClient(ollamaClient, telemetry, cfg.LLM.Model)
	if err != nil {
		span.End()
		return fmt.Errorf("failed to instrument LLM client: %w", err)
	}

	// Breaker transitions feed metrics when they are enabled.
	var observer resilience.StateObserver
	if metrics != nil {
		observer = func(name string, oldState, newState resilience.State) {
			metrics.RecordBreakerTransition(context.Background(), name, string(oldState), string(newState))
		}
	}
	registry := resilience.NewBreakerRegistry(cfg.BreakerDefaults(), observer)
	policy := resilience.NewRetryPolicy(cfg.RetryPolicy())

	caller, err := llm.NewResilientCaller(instrumented, cfg.LLM.Model, policy, registry)
	if err != nil {
		span.End()
		return fmt.Errorf("failed to build resilient caller: %w", err)
	}

	search := buildSearchClient(cfg)
	engine, err := buildEngine(cfg, caller, search)
	if err != nil {
		span.End()
		return fmt.Errorf("failed to build workflow engine: %w", err)
	}
	engine.SetTelemetry(telemetry, metrics)

	span.End()

	if apiMode {
		return runAPIServer(ctx, cfg, engine, registry)
	}
	return runCLI(ctx, engine, topic, sequential)
}

// buildSearchClient registers the web search tool in a registry and
// returns a searcher backed by it. A nil return means search is
// disabled or has no API key; the Researcher degrades gracefully on a
// nil client.
func buildSearchClient(cfg *config.Config) domain.SearchClient {
	if !cfg.Tools.WebSearch.Enabled {
		return nil
	}
	client := tools.NewWebSearchClient(cfg.SearchSettings())
	if !client.Configured() {
		log.Println("Web search API key not configured, running without search")
		return nil
	}

	toolRegistry := tools.NewBasicRegistry()
	if err := toolRegistry.Register(tools.NewWebSearchTool(client)); err != nil {
		log.Printf("Failed to register web search tool, running without search: %v", err)
		return nil
	}
	return tools.NewRegistrySearcher(toolRegistry)
}

func buildEngine(cfg *config.Config, caller domain.LLMClient, search domain.SearchClient) (*workflow.Engine, error) {
	registry := agents.NewRegistry()
	for _, agent := range []domain.Agent{
		agents.Instrument(agents.NewResearcher(caller, search)),
		agents.Instrument(agents.NewFactChecker(caller)),
		agents.Instrument(agents.NewSynthesizer(caller)),
		agents.Instrument(agents.NewWriter(caller)),
		agents.Instrument(agents.NewCritic(caller)),
	} {
		if err := registry.Register(agent); err != nil {
			return nil, err
		}
	}
	return workflow.NewEngineFromRegistry(cfg.WorkflowSettings(), registry)
}

func runAPIServer(ctx context.Context, cfg *config.Config, engine *workflow.Engine, registry *resilience.BreakerRegistry) error {
	server := api.NewServer(engine, registry)
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()
	log.Printf("API server listening on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		log.Println("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func runCLI(ctx context.Context, engine *workflow.Engine, topic string, sequential bool) error {
	if topic == "" {
		fmt.Print("Enter a research topic: ")
		_, err := fmt.Scanln(&topic)
		if err != nil {
			return fmt.Errorf("failed to read topic from stdin: %w", err)
		}
	}
	if topic == "" {
		return fmt.Errorf("no research topic provided")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	startTime := time.Now()
	log.Printf("Starting research for: %s", topic)

	var result *workflow.Result
	if sequential {
		result = engine.ExecuteSequential(ctx, topic, "")
	} else {
		result = engine.Execute(ctx, topic, "")
	}

	if result.Status == workflow.StageFailed {
		return fmt.Errorf("research failed: %s", result.Error)
	}

	printResult(result, time.Since(startTime))
	return nil
}

func printResult(result *workflow.Result, elapsed time.Duration) {
	fmt.Println("\n=== Research Report ===")
	if result.Report != nil {
		fmt.Printf("Title: %s\n\n", result.Report.Title)
		fmt.Println(result.Report.Content)
	}

	if result.Review != nil {
		fmt.Printf("\nReview score: %.2f (approved: %v, iterations: %d)\n",
			result.Review.Score, result.Review.Approved, result.Iterations)
		for i, suggestion := range result.Review.Suggestions {
			fmt.Printf("%d. %s\n", i+1, suggestion)
		}
	}

	if result.FactCheck != nil {
		fmt.Printf("\nClaims checked: %d (verified: %d)\n",
			len(result.FactCheck.Claims), len(result.FactCheck.VerifiedClaims))
	}

	fmt.Printf("\nCorrelation ID: %s\n", result.CorrelationID)
	fmt.Printf("Duration: %s\n", elapsed)
}

func getMode(apiMode bool) string {
	if apiMode {
		return "api"
	}
	return "cli"
}
