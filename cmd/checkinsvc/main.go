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

	config "github.com/clusterpass/checkin-services/configs"
	"github.com/clusterpass/checkin-services/internal/checkinsvc/broker"
	"github.com/clusterpass/checkin-services/internal/checkinsvc/db"
	handlers "github.com/clusterpass/checkin-services/internal/checkinsvc/handlers"
	"github.com/clusterpass/checkin-services/internal/checkinsvc/service"
	"github.com/clusterpass/checkin-services/internal/checkinsvc/store"
	nats "github.com/clusterpass/checkin-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "checkin"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// mongo connection for the audit log sink
	mongoDB, cancelMongo, err := db.ConnectMongo(os.Getenv("MONGODB_URI"))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancelMongo()
	log.Printf("mongo connection established successfully")

	cardStore := store.NewCardStore(dbpool)
	userStore := store.NewUserStore(dbpool)
	settingStore := store.NewSettingStore(dbpool)

	logStore := store.NewLogStore(mongoDB)
	if err := logStore.EnsureIndexes(context.Background()); err != nil {
		log.Warnf("audit log index creation failed: %v", err)
	}

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	notifier := broker.NewNatsNotifier(n.Conn)
	checkinService := service.NewCheckinService(cardStore, userStore, settingStore, logStore, notifier)

	// init message broker for the websocket gateway
	b := broker.NewBroker(n.Conn, checkinService)

	sub, err := b.SubscribeSocketService(broker.TopicSocketService)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

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
	h := handlers.NewHandler(checkinService, userStore, logStore)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("CHECKIN_SERVICE_PORT"),
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

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
