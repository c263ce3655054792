package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cnogradi/training-consolidation-workbench/internal/curriculum"
	"github.com/cnogradi/training-consolidation-workbench/internal/data/graph"
	"github.com/cnogradi/training-consolidation-workbench/internal/generate"
	"github.com/cnogradi/training-consolidation-workbench/internal/handlers"
	"github.com/cnogradi/training-consolidation-workbench/internal/harmonize"
	"github.com/cnogradi/training-consolidation-workbench/internal/ingest"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/envutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/neo4jdb"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/openai"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/qdrant"
	"github.com/cnogradi/training-consolidation-workbench/internal/prediction"
	"github.com/cnogradi/training-consolidation-workbench/internal/server"
	"github.com/cnogradi/training-consolidation-workbench/internal/vectorindex"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Neo4j
	log.Info("Connecting to Neo4j...")
	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Neo4j client", "error", err)
		os.Exit(1)
	}
	defer neo4jClient.Close(ctx)

	graphStore, err := graph.NewNeo4jStore(ctx, neo4jClient, log)
	if err != nil {
		log.Error("Could not init graph store", "error", err)
		os.Exit(1)
	}

	// OpenAI
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Qdrant is optional: without it ingestion still builds the graph and
	// generation skips slide retrieval.
	var index vectorindex.Index
	qdrantCfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Warn("Qdrant not configured, slide retrieval disabled", "error", err)
	} else {
		store, err := qdrant.NewStore(log, qdrantCfg)
		if err != nil {
			log.Error("Could not init Qdrant store", "error", err)
			os.Exit(1)
		}
		index, err = vectorindex.New(log, openaiClient, store)
		if err != nil {
			log.Error("Could not init vector index", "error", err)
			os.Exit(1)
		}
	}

	// Curriculum template
	template, err := curriculum.Load(os.Getenv("WB_TEMPLATE_PATH"))
	if err != nil {
		log.Error("Could not load curriculum template", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services from main...")
	predictService, err := prediction.NewService(log, openaiClient, template)
	if err != nil {
		log.Error("Could not init prediction service", "error", err)
		os.Exit(1)
	}
	aggregator, err := ingest.NewAggregator(log, graphStore, predictService, index, ingest.ConfigFromEnv())
	if err != nil {
		log.Error("Could not init aggregator", "error", err)
		os.Exit(1)
	}
	harmonizer, err := harmonize.New(log, graphStore, predictService)
	if err != nil {
		log.Error("Could not init harmonizer", "error", err)
		os.Exit(1)
	}
	generator, err := generate.New(log, graphStore, predictService, index, template, generate.ConfigFromEnv())
	if err != nil {
		log.Error("Could not init generator", "error", err)
		os.Exit(1)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	ingestHandler := handlers.NewIngestHandler(log, aggregator)
	harmonizeHandler := handlers.NewHarmonizeHandler(log, harmonizer)
	generateHandler := handlers.NewGenerateHandler(log, generator)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		IngestHandler:    ingestHandler,
		HarmonizeHandler: harmonizeHandler,
		GenerateHandler:  generateHandler,
	})

	port := envutil.String("PORT", "8080")
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
