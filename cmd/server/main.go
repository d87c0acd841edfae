package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/config"
	"github.com/uniaccess/campus-assist/internal/database"
	"github.com/uniaccess/campus-assist/internal/handler"
	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/middleware"
	"github.com/uniaccess/campus-assist/internal/poller"
	"github.com/uniaccess/campus-assist/internal/policy"
	"github.com/uniaccess/campus-assist/internal/queue"
	"github.com/uniaccess/campus-assist/internal/repository"
	"github.com/uniaccess/campus-assist/internal/router"
	"github.com/uniaccess/campus-assist/internal/storage"
	"github.com/uniaccess/campus-assist/internal/validator"
)

func main() {
	_ = godotenv.Load() // absent .env is fine in production
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil disables cache and rate limiting

	backend, err := storage.NewBackendFromEnv(ctx)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rides := repository.NewRideRepo(db)
	sessions := repository.NewSessionRepo(db)
	complaints := repository.NewComplaintRepo(db)
	loans := repository.NewLoanRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	locations := repository.NewLocationRepo(db)
	messages := repository.NewMessageRepo(db)
	uploads := repository.NewUploadRepo(db)

	// One lifecycle controller per request kind. Only drivers may back
	// out of a ride they already accepted.
	rideCtrl := lifecycle.NewController(policy.KindRide, rides, true)
	sessionCtrl := lifecycle.NewController(policy.KindSession, sessions, false)
	complaintCtrl := lifecycle.NewController(policy.KindComplaint, complaints, false)
	loanCtrl := lifecycle.NewController(policy.KindLoan, loans, false)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	studentRideH := handler.NewStudentRideHandler(rides, locations, rideCtrl)
	driverRideH := handler.NewDriverRideHandler(rides, locations, rideCtrl)
	sessionH := handler.NewSessionHandler(sessions, sessionCtrl, cfg.CodeTTLMin)
	complaintH := handler.NewComplaintHandler(complaints, complaintCtrl)
	loanH := handler.NewLoanHandler(loans, loanCtrl)
	assignmentH := handler.NewAssignmentHandler(assignments, users)
	messageH := handler.NewMessageHandler(messages, assignments, users)
	uploadH := handler.NewUploadHandler(uploads, backend)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, limiter)
	router.RegisterShared(e, messageH, uploadH, complaintH, cfg.JWTSecret)
	router.RegisterStudent(e, studentRideH, sessionH, loanH, assignmentH, cfg.JWTSecret, cacheMW)
	router.RegisterHelper(e, sessionH, assignmentH, cfg.JWTSecret, cacheMW)
	router.RegisterDriver(e, driverRideH, cfg.JWTSecret, cacheMW)
	router.RegisterAdmin(e, assignmentH, complaintH, loanH, cfg.JWTSecret)

	// Background workers: the dispatch log consumer and the ticker
	// jobs (ride announcements, location pruning, code expiry).
	go func() {
		if err := queue.StartDispatchConsumer(); err != nil {
			log.Printf("dispatch consumer stopped: %v", err)
		}
	}()
	poller.New(rides, sessions, locations, cfg.DispatchPollSec, cfg.LocationSweepSec, cfg.LocationTTLMin).Start(ctx)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil {
		log.Print(err)
	}
}
