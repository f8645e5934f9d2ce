package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/techpulse/techpulse-backend/internal/analytics"
	"github.com/techpulse/techpulse-backend/internal/breakdown"
	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/clients/anthropic"
	"github.com/techpulse/techpulse-backend/internal/clients/assemblyai"
	"github.com/techpulse/techpulse-backend/internal/clients/openai"
	"github.com/techpulse/techpulse-backend/internal/clients/pinecone"
	"github.com/techpulse/techpulse-backend/internal/clients/redisx"
	"github.com/techpulse/techpulse-backend/internal/config"
	"github.com/techpulse/techpulse-backend/internal/db"
	"github.com/techpulse/techpulse-backend/internal/graph"
	"github.com/techpulse/techpulse-backend/internal/handlers"
	"github.com/techpulse/techpulse-backend/internal/ingest"
	"github.com/techpulse/techpulse-backend/internal/llm"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/platform/envutil"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/repos"
	"github.com/techpulse/techpulse-backend/internal/server"
	"github.com/techpulse/techpulse-backend/internal/signals"
	"github.com/techpulse/techpulse-backend/internal/sources"
	"github.com/techpulse/techpulse-backend/internal/transcripts"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Config load failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is optional; without it the catalog persists to a JSON
	// document and breakdowns live only in memory.
	pg, err := db.NewFromEnv(log)
	if err != nil {
		log.Warn("Postgres init failed, continuing without it", "error", err.Error())
		pg = nil
	}
	if pg != nil {
		if err := pg.AutoMigrateAll(); err != nil {
			log.Warn("Postgres auto migration failed", "error", err.Error())
		}
	}

	var persister catalog.Persister
	if cfg.StoreBackend == "relational" && pg != nil {
		persister = repos.NewStorePersister(pg.DB(), log)
	} else {
		if cfg.StoreBackend == "relational" {
			log.Warn("Relational backend requested but Postgres is not configured, using file backend")
		}
		persister = catalog.NewFilePersister(log, cfg.CatalogPath)
	}

	store := catalog.NewStore(log, cfg.MaxRecords)

	redisClient, err := redisx.NewFromEnv(log)
	if err != nil {
		log.Warn("Redis init failed, using in-process caches", "error", err.Error())
		redisClient = nil
	}

	// LLM and embedding providers degrade to template output when
	// unconfigured.
	openaiClient, err := openai.NewFromEnv(log)
	if err != nil {
		log.Warn("OpenAI init failed", "error", err.Error())
		openaiClient = nil
	}
	var llmClient llm.Client
	switch cfg.LLMProvider {
	case "openai":
		if openaiClient != nil {
			llmClient = openaiClient
		} else {
			log.Warn("LLM_PROVIDER is openai but no OpenAI credentials are set, using templates")
		}
	case "anthropic":
		anthropicClient, err := anthropic.NewFromEnv(log)
		if err != nil {
			log.Warn("Anthropic init failed, using templates", "error", err.Error())
		} else if anthropicClient != nil {
			llmClient = anthropicClient
		} else {
			log.Warn("LLM_PROVIDER is anthropic but ANTHROPIC_API_KEY is not set, using templates")
		}
	}

	var embedder llm.Embedder
	if cfg.EmbeddingProvider == "openai" && openaiClient != nil {
		embedder = openaiClient
	}

	vectors, err := pinecone.NewVectorStoreFromEnv(log)
	if err != nil {
		log.Warn("Pinecone init failed, knowledge graph disabled", "error", err.Error())
		vectors = nil
	}

	graphClient, err := graph.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, graph mirror disabled", "error", err.Error())
		graphClient = nil
	}
	defer graphClient.Close(context.Background())

	assemblyClient, err := assemblyai.NewFromEnv(log)
	if err != nil {
		log.Warn("AssemblyAI init failed", "error", err.Error())
		assemblyClient = nil
	}

	// Transcript pipeline.
	var unavailable transcripts.UnavailabilityCache
	if redisClient != nil {
		unavailable = transcripts.NewRedisUnavailabilityCache(log, redisClient)
	} else {
		unavailable = transcripts.NewMemoryUnavailabilityCache()
	}
	var whisper transcripts.WhisperClient
	if openaiClient != nil {
		whisper = openaiClient
	}
	var assembly transcripts.AssemblyClient
	if assemblyClient != nil {
		assembly = assemblyClient
	}
	pipeline := transcripts.NewPipeline(
		log,
		cfg.TranscriptServiceURL,
		transcripts.NewCaptionFetcher(log),
		transcripts.NewAudioDownloader(log, envutil.String("AUDIO_WORK_DIR", "")),
		whisper,
		assembly,
		unavailable,
	)

	// Breakdown pipeline and optional knowledge-graph tier.
	var atomRepo breakdown.AtomStore
	var linkRepo breakdown.LinkStore
	var podcastRepo breakdown.BreakdownStore
	var channelLister sources.ChannelLister
	if pg != nil {
		atomRepo = repos.NewAtomRepo(pg.DB(), log)
		linkRepo = repos.NewLinkRepo(pg.DB(), log)
		podcastRepo = repos.NewPodcastRepo(pg.DB(), log)
		channelLister = repos.NewChannelRepo(pg.DB(), log)
	}
	var vectorIndex breakdown.VectorIndex
	if vectors != nil {
		vectorIndex = vectors
	}
	var mirror breakdown.GraphMirror
	if graphClient != nil {
		mirror = graph.NewMirror(log, graphClient)
	}
	builder := breakdown.NewBuilder(log, llmClient)
	ingestor := breakdown.NewIngestor(log, llmClient, embedder, vectorIndex, atomRepo, linkRepo, mirror)
	processor := breakdown.NewProcessor(log, pipeline, builder, ingestor, store, podcastRepo)
	processor.Start(ctx)

	// Source adapters per config, each behind its own rate gate.
	var adapters []sources.Adapter
	for _, name := range cfg.Sources {
		limiter := ratelimit.NewLimiter(name, cfg.Rate(name))
		switch name {
		case "arxiv":
			adapters = append(adapters, sources.NewArxivAdapter(log, limiter))
		case "semanticscholar":
			adapters = append(adapters, sources.NewSemanticScholarAdapter(log, limiter))
		case "openalex":
			adapters = append(adapters, sources.NewOpenAlexAdapter(log, limiter))
		case "crossref":
			adapters = append(adapters, sources.NewCrossrefAdapter(log, limiter, cfg.CrossrefMailto))
		case "pubmed":
			adapters = append(adapters, sources.NewPubmedAdapter(log, limiter))
		case "dblp":
			adapters = append(adapters, sources.NewDBLPAdapter(log, limiter))
		case "github":
			adapters = append(adapters, sources.NewGitHubAdapter(log, limiter))
		case "hackernews":
			adapters = append(adapters, sources.NewHackerNewsAdapter(log, limiter))
		case "patents":
			adapters = append(adapters, sources.NewPatentsAdapter(log, limiter))
		case "youtube":
			adapters = append(adapters, sources.NewYouTubeAdapter(log, limiter, channelLister))
		default:
			log.Warn("Unknown source in config, skipping", "source", name)
		}
	}

	orchestrator := ingest.NewOrchestrator(log, adapters, store, persister, cfg.MaxRecords)
	orchestrator.SetPodcastSink(processor)
	orchestrator.Hydrate(ctx)

	// Analytics.
	aggregator := signals.NewAggregator(log, store)
	var snapshots analytics.SnapshotStore
	if pg != nil {
		snapshots = repos.NewSnapshotRepo(pg.DB(), log)
	}
	engine := analytics.NewEngine(log, aggregator, llmClient, snapshots)
	if pg != nil {
		engine.SetNarrativeStore(repos.NewNarrativeRepo(pg.DB(), log))
	}

	scheduler := ingest.NewScheduler(log, orchestrator, engine, cfg.RefreshInterval, cfg.DeepRefresh)
	go scheduler.Run(ctx)

	router := server.NewRouter(server.RouterConfig{
		PapersHandler:   handlers.NewPapersHandler(log, store, scheduler),
		InsightsHandler: handlers.NewInsightsHandler(log, engine),
		HealthHandler:   handlers.NewHealthHandler(store, scheduler),
	})

	port := envutil.String("PORT", "8080")
	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown failed", "error", err.Error())
	}
	processor.Wait()
}
