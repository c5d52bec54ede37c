package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"

	config "github.com/bonniEdo/badminton-go/configs"
	"github.com/bonniEdo/badminton-go/internal/badminton/audit"
	"github.com/bonniEdo/badminton-go/internal/badminton/broker"
	"github.com/bonniEdo/badminton-go/internal/badminton/db"
	handlers "github.com/bonniEdo/badminton-go/internal/badminton/handlers"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
	nats "github.com/bonniEdo/badminton-go/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "badminton"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	ctx := context.Background()

	// schema first, then the pool
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	dbpool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	sinks := []service.EventSink{broker.NewPublisher(n.Conn)}

	// Optional Mongo activity feed
	var activity handlers.ActivityReader
	mongoDB, mongoClose, err := db.ConnectMongo(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if mongoDB != nil {
		defer mongoClose()
		auditLog, err := audit.NewLogger(ctx, mongoDB, 7*24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to prepare activity feed: %v", err)
		}
		sinks = append(sinks, auditLog)
		activity = auditLog
		log.Printf("mongo activity feed enabled")
	}

	tokenAuth := jwtauth.New("HS256", []byte(os.Getenv("JWT_SECRET_KEY")), nil)

	rosterService := service.NewRosterService(dbpool, sinks...)
	matchService := service.NewMatchService(dbpool, service.RatingPolicyFromEnv(), sinks...)
	gameService := service.NewGameService(dbpool)
	userService := service.NewUserService(dbpool, tokenAuth)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(tokenAuth, rosterService, matchService, gameService, userService, activity)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
