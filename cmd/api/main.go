// @title           Tutor RAG API
// @version         1.0
// @description     Document ingestion, retrieval and tutoring chat over a retrieval augmented generation pipeline.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/blob"
	"github.com/akolanti/TutorAPI/internal/data/redisStore"
	"github.com/akolanti/TutorAPI/internal/data/store"
	jobmodel "github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/internal/handlers"
	"github.com/akolanti/TutorAPI/internal/job"
	"github.com/akolanti/TutorAPI/internal/mcpserver"
	"github.com/akolanti/TutorAPI/internal/rag"
	"github.com/akolanti/TutorAPI/internal/rag/embedding"
	"github.com/akolanti/TutorAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/TutorAPI/internal/rag/embedding/httpEmbedding"
	"github.com/akolanti/TutorAPI/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/TutorAPI/internal/rag/generation"
	"github.com/akolanti/TutorAPI/internal/rag/ingest"
	"github.com/akolanti/TutorAPI/internal/rag/llm/gemini"
	"github.com/akolanti/TutorAPI/internal/rag/retrieval"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/TutorAPI/internal/server"
	"github.com/akolanti/TutorAPI/internal/worker"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

var (
	envFile           string
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&envFile, "env-file", ".env", "optional .env file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides LISTEN_ADDR")
	flag.Parse()

	settings, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	logger_i.Init(settings.IsProd, settings.LogLevel)
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	redisOpts := redisStore.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword}

	//init job service and stores, falling back to memory when redis is offline
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	jobStore := store.GetRedisJobStore(serviceContext, redisOpts)
	messageStore := store.GetRedisMessageStore(serviceContext, redisOpts)
	documentStore := store.GetRedisDocumentStore(serviceContext, redisOpts)
	if jobStore == nil || messageStore == nil || documentStore == nil {
		logger.Warn("Redis stores are offline, using in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
		serviceConfig.DocumentStore = store.InitDocumentStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
		serviceConfig.DocumentStore = documentStore
	}
	service := job.InitJobService(serviceConfig)

	blobs, err := blob.NewFileStorage(settings.BlobRoot)
	if err != nil {
		logger.Error("Blob storage unavailable", "error", err)
		return
	}

	provider, err := newEmbeddingProvider(serviceContext, settings)
	if err != nil {
		logger.Error("Embedding provider failed to initialize", "provider", settings.EmbeddingProvider, "error", err)
		return
	}
	embedder := embedding.NewClient(provider, embedding.DefaultOptions())

	vectors := newVectorStore(serviceContext, settings, logger)
	cache := newRetrievalCache(serviceContext, settings, redisOpts, logger)
	retriever := retrieval.NewRetriever(embedder, vectors, cache, retrieval.DefaultOptions(settings))

	indexer := ingest.NewIndexer(blobs, service.DocumentStore, ingest.NewFileExtractor(), embedder, vectors, retriever, ingest.DefaultOptions(settings))

	llmProvider, err := gemini.NewGenerator(serviceContext, settings.GoogleAPIKey, settings.GeminiModel)
	if err != nil {
		logger.Error("LLM provider failed to initialize", "error", err)
		return
	}
	orchestrator := generation.NewOrchestrator(llmProvider, generation.DefaultOptions(settings))

	ragService := rag.NewService(indexer, retriever, orchestrator)

	handlers.InitJobHandler(service, ragService, blobs)

	mcp, err := mcpserver.NewServer(ragService)
	if err != nil {
		logger.Error("MCP server failed to initialize", "error", err)
		return
	}

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(settings, mcp.Handler())

	<-stopExecution
	logger.Info("Server stopped")
}

func newEmbeddingProvider(ctx context.Context, s config.Settings) (embedding.Provider, error) {
	switch s.EmbeddingProvider {
	case config.EmbeddingProviderOpenAI:
		return openaiEmbedding.NewProvider(s.OpenAIAPIKey, s.OpenAIBaseURL, s.EmbeddingModel, s.EmbeddingDimension)
	case config.EmbeddingProviderHTTP:
		return httpEmbedding.NewProvider(s.EmbeddingURL, s.EmbeddingAPIKey, s.EmbeddingModel, config.EmbeddingCallTimeout)
	default:
		return googleEmbedding.NewProvider(ctx, s.GoogleAPIKey, s.EmbeddingModel, s.EmbeddingDimension)
	}
}

// newVectorStore prefers Qdrant and keeps the service usable without it.
func newVectorStore(ctx context.Context, s config.Settings, logger *logger_i.Logger) vectorDB.Store {
	qdrant, err := qdrantDB.NewStore(ctx, qdrantDB.OptionsFrom(s))
	if err != nil {
		logger.Warn("Qdrant is offline, chunks are kept in memory", "error", err)
		return memoryDB.NewStore()
	}
	return qdrant
}

func newRetrievalCache(ctx context.Context, s config.Settings, opts redisStore.Options, logger *logger_i.Logger) retrieval.Cache {
	if s.CacheBackend == config.CacheBackendRedis {
		if rs := redisStore.GetRedisStore(ctx, opts, config.RedisCacheStore); rs != nil {
			return retrieval.NewRedisCache(rs, s.CacheTTL)
		}
		logger.Warn("Redis cache is offline, using the in-memory cache")
	}
	return retrieval.NewMemoryCache(s.CacheTTL)
}
