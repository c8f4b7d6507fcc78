package main

import (
	"fmt"
	"log"
	"net/http"

	"tutor/config"
	"tutor/db"
	"tutor/handlers"
	"tutor/services"
	"tutor/services/docindex"
	"tutor/services/generation"
	"tutor/services/revision"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DB_URL environment variable is required")
	}

	sessionRepo, err := db.NewPostgresSessionRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize session database: %v", err)
	}
	defer sessionRepo.Close()

	topicRepo, err := db.NewPostgresTopicRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize topic database: %v", err)
	}
	defer topicRepo.Close()

	var chunkIndex services.ChunkIndex
	if cfg.PineconeAPIKey != "" {
		docindexService, err := docindex.NewService(cfg.PineconeAPIKey, cfg.OpenAIAPIKey, cfg.PineconeIndexName)
		if err != nil {
			log.Fatalf("Failed to initialize document index service: %v", err)
		}
		chunkIndex = docindexService
	} else {
		log.Printf("[WARN] PINECONE_API_KEY not set, topics without stored subtopics will have no content")
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize generation service: %v", err)
	}

	contentService := services.NewContentService(topicRepo, chunkIndex)
	revisionService := revision.NewService(sessionRepo, contentService, generator, revision.Config{
		RequiredCorrectAnswers: cfg.RequiredCorrectAnswers,
	})
	revisionHandler := handlers.NewRevisionHandler(revisionService, contentService)

	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(jsonMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	revisionHandler.RegisterRoutes(router)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	addr := ":" + cfg.Port
	fmt.Printf("Server starting on port %s\n", cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func newGenerator(cfg *config.Config) (generation.Generator, error) {
	switch cfg.GenerationProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
		}
		return generation.NewAnthropicGenerator(cfg.AnthropicAPIKey), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
		return generation.NewOpenAIGenerator(cfg.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
