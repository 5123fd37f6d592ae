package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-accounts-api/internal/config"
	"github.com/go-accounts-api/internal/infrastructure/dynamo"
	"github.com/go-accounts-api/internal/infrastructure/smtp"
	snsinfra "github.com/go-accounts-api/internal/infrastructure/sns"
	"github.com/go-accounts-api/internal/notify"
	transporthttp "github.com/go-accounts-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.EmailNotifications)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS event publisher (optional — graceful fallback).
	var events snsinfra.EventPublisher
	if cfg.SNSTopicARN != "" {
		if p, err := snsinfra.NewPublisher(cfg); err == nil {
			events = p
		} else {
			log.Printf("WARN: SNS publisher not available: %v", err)
		}
	}

	notifier := notify.NewDispatcher(notificationRepo, mailer, events, cfg.NotifierQueueLen)
	notifier.Start()
	defer notifier.Stop()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo: userRepo,
		Notifier: notifier,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
