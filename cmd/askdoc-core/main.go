package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/adapters/driven/ai"
	"github.com/askdoc-labs/askdoc-core/internal/adapters/driven/memory"
	"github.com/askdoc-labs/askdoc-core/internal/adapters/driven/pinecone"
	"github.com/askdoc-labs/askdoc-core/internal/adapters/driven/postgres"
	redisadapter "github.com/askdoc-labs/askdoc-core/internal/adapters/driven/redis"
	"github.com/askdoc-labs/askdoc-core/internal/adapters/driving/http"
	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/services"
	"github.com/askdoc-labs/askdoc-core/internal/normalisers"
	"github.com/askdoc-labs/askdoc-core/internal/postprocessors"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
	"github.com/askdoc-labs/askdoc-core/internal/worker"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	log.Printf("askdoc-core %s starting", version)

	// Configuration from environment
	port := getEnvInt("PORT", 8080)
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	pineconeHost := getEnv("PINECONE_HOST", "")
	pineconeKey := getEnv("PINECONE_API_KEY", "")
	openAIKey := getEnv("OPENAI_API_KEY", "")

	ctx := context.Background()

	// ===== PostgreSQL (optional: ingest bookkeeping) =====
	var db *postgres.DB
	if databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		}
		var err error
		db, err = postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")
	} else {
		log.Println("DATABASE_URL not set, document records disabled")
	}

	// ===== Redis (optional: conversation sessions) =====
	var redisClient *redis.Client
	if redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	} else {
		log.Println("REDIS_URL not set, conversation sessions disabled")
	}

	// ===== Vector store (Pinecone if configured, otherwise in-memory) =====
	var vectorStore driven.VectorStore
	if pineconeHost != "" {
		store, err := pinecone.New(pineconeHost, pineconeKey)
		if err != nil {
			log.Fatalf("Failed to configure Pinecone: %v", err)
		}
		if err := store.Ping(ctx); err != nil {
			log.Printf("Warning: Pinecone health check failed: %v", err)
		}
		vectorStore = store
		log.Println("Using Pinecone vector store")
	} else {
		vectorStore = memory.New()
		log.Println("PINECONE_HOST not set, using in-memory vector store (volatile)")
	}

	// ===== AI services =====
	runtimeServices := runtime.NewServices()
	defer runtimeServices.Close()

	if openAIKey != "" {
		factory := ai.NewFactory()
		settings := ai.Settings{
			Provider:        ai.ProviderOpenAI,
			APIKey:          openAIKey,
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:  getEnv("OPENAI_EMBEDDING_MODEL", ""),
			CompletionModel: getEnv("OPENAI_COMPLETION_MODEL", ""),
			Retry:           domain.DefaultRetryPolicy(),
		}

		embedding, err := factory.CreateEmbeddingService(settings)
		if err != nil {
			log.Fatalf("Failed to create embedding service: %v", err)
		}
		if err := runtimeServices.ValidateAndSetEmbedding(ctx, embedding); err != nil {
			log.Printf("Warning: embedding service validation failed: %v", err)
			runtimeServices.SetEmbeddingService(embedding)
		}

		completion, err := factory.CreateCompletionService(settings)
		if err != nil {
			log.Fatalf("Failed to create completion service: %v", err)
		}
		if err := runtimeServices.ValidateAndSetCompletion(ctx, completion); err != nil {
			log.Printf("Warning: completion service validation failed: %v", err)
			runtimeServices.SetCompletionService(completion)
		}
		log.Println("OpenAI services configured")
	} else {
		log.Println("OPENAI_API_KEY not set, ingestion and chat will be rejected")
	}

	// ===== Stores =====
	var documentStore driven.DocumentStore
	var chunkStore driven.ChunkStore
	if db != nil {
		documentStore = postgres.NewDocumentStore(db)
		chunkStore = postgres.NewChunkStore(db)
	}

	var conversationStore driven.ConversationStore
	if redisClient != nil {
		conversationStore = redisadapter.NewConversationStore(redisClient, redisadapter.DefaultTTL)
	}

	// ===== Core services =====
	logger := slog.Default()
	pool := worker.NewPool(getEnvInt("EMBED_CONCURRENCY", 4), logger)

	ingestService := services.NewIngestService(
		normalisers.DefaultRegistry(),
		postprocessors.DefaultPipeline(),
		vectorStore,
		documentStore,
		chunkStore,
		runtimeServices,
		pool,
		services.IngestConfig{
			EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", services.DefaultEmbedBatchSize),
			MaxDocumentBytes: getEnvInt("MAX_DOCUMENT_BYTES", services.DefaultMaxDocumentBytes),
		},
		logger,
	)

	retriever := services.NewRetriever(vectorStore, runtimeServices, logger)
	synthesizer := services.NewSynthesizer(runtimeServices, services.SynthesizerConfig{
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", services.DefaultMaxContextChars),
	}, logger)
	chatService := services.NewChatService(retriever, synthesizer, logger)
	documentService := services.NewDocumentService(documentStore, chunkStore, vectorStore, logger)

	// ===== HTTP server =====
	cfg := http.DefaultConfig()
	cfg.Port = port
	cfg.Version = version
	cfg.RateLimit = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimit)
	cfg.RateBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateBurst)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	var dbPinger http.Pinger
	if db != nil {
		dbPinger = db
	}

	server := http.NewServer(
		cfg,
		ingestService,
		chatService,
		documentService,
		runtimeServices,
		vectorStore,
		conversationStore,
		dbPinger,
	)

	log.Printf("API server starting on :%d", port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
