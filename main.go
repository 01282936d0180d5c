package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	intconfig "ticketing/internal/config"
	router "ticketing/internal/http"
	"ticketing/internal/http/handlers"
	"ticketing/internal/notify"
	"ticketing/internal/repositories"
	"ticketing/internal/services"
)

func main() {
	_ = godotenv.Load()
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db := intconfig.ConnectDB(env.MySQLDSN)
	defer db.Close()

	mongoClient := intconfig.ConnectMongo(env.MongoURI)
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(ctx)
		}()
	}

	redisClient := intconfig.ConnectRedis(env.RedisAddr, env.RedisPassword, env.RedisDB)
	defer redisClient.Close()

	amqpConn := intconfig.ConnectAMQP(env.AMQPURL)
	if amqpConn != nil {
		defer amqpConn.Close()
	}

	if err := repositories.EnsureSchema(db); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := (repositories.CouponRepo{DB: db}).SeedDefaults(ctx); err != nil {
			log.Printf("warning: coupon seed failed: %v", err)
		}
		cancel()
	}

	var mailer notify.EmailPublisher
	if amqpConn != nil {
		publisher, err := notify.NewAMQPPublisher(amqpConn, env.EmailQueue)
		if err != nil {
			log.Printf("warning: email publisher setup failed: %v", err)
		} else {
			mailer = publisher
		}
	}

	api := handlers.API{
		Env:        env,
		DB:         db,
		Relational: repositories.BookingMySQLRepo{DB: db},
		Document:   repositories.NewBookingMongoRepo(mongoClient, env.MongoDB),
		Events:     repositories.EventRepo{DB: db},
		Coupons:    repositories.CouponRepo{DB: db},
		Loyalty:    repositories.LoyaltyRepo{DB: db},
		CheckIns:   repositories.CheckInRedisStore{Client: redisClient},
		Gateway:    services.SimulatedGateway{DeclineRate: env.PaymentDeclineRate},
		Mailer:     mailer,
	}

	r := router.NewRouter(api)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped cleanly.")
}
