package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"dispute-assistant/internal/config"
	"dispute-assistant/internal/domain/entities"
	Iservices "dispute-assistant/internal/domain/interfaces/services"
	"dispute-assistant/internal/infra/artifacts"
	"dispute-assistant/internal/infra/handlers"
	"dispute-assistant/internal/infra/logger"
	"dispute-assistant/internal/infra/provider"
	"dispute-assistant/internal/infra/repository"
	"dispute-assistant/internal/infra/routes"
	"dispute-assistant/internal/infra/services"
	"dispute-assistant/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogLevel, true)

	artifactStore := artifacts.NewStore(cfg.ConversationTTL, log)
	conversationStore := repository.NewCacheStore(cfg.ConversationTTL, func(id string, conversation *entities.Conversation) {
		artifactStore.Release(conversation.ArtifactIDs()...)
		log.Info("Conversation released", logrus.Fields{"conversation_id": id})
	})

	httpClient := &http.Client{Timeout: cfg.BackendTimeout}
	assistantProvider := provider.NewAssistantProvider(log, httpClient, cfg.BackendBaseURL)

	var conversationSvc Iservices.IConversationService = services.NewConversationService(
		log,
		assistantProvider,
		conversationStore,
		artifactStore,
		cfg.FollowUpPolicy,
	)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))

	conversationHandlers := handlers.NewConversationHandlers(log, conversationSvc)

	routes := routes.NewRoutes(router, conversationHandlers)
	routes.Init()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	go func() {
		log.Info(fmt.Sprintf("Server is running on port %s", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(fmt.Sprintf("Error running HTTP server: %s", err))
			os.Exit(1)
		}
	}()

	<-stop
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	} else {
		log.Info("Server stopped gracefully.")
	}
}
