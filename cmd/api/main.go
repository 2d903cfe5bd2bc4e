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

	"github.com/gin-gonic/gin"

	"hostelmess/internal/account"
	"hostelmess/internal/api"
	"hostelmess/internal/attendance"
	"hostelmess/internal/auth"
	"hostelmess/internal/config"
	"hostelmess/internal/guard"
	"hostelmess/internal/httpmiddleware"
	"hostelmess/internal/issue"
	"hostelmess/internal/queue"
	"hostelmess/internal/report"
	"hostelmess/internal/store"
	"hostelmess/internal/student"
	"hostelmess/internal/worker"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	if db == nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Printf("warning: schema not applied: %v", err)
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
	} else {
		q = queue.NewRedisQueue(rdb.Client, queue.DefaultKey)
	}

	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
	studentRepo := student.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)

	students := student.NewService(studentRepo, time.Now, cfg.Timezone)
	accounts := account.NewService(account.NewAdminRepository(db.Client), studentRepo, issuer)
	reports := report.NewService(attendanceRepo, studentRepo, report.NewRedisCache(rdb.Client), cfg.ReportCacheTTL, time.Now, cfg.Timezone)

	if created, err := accounts.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Printf("warning: bootstrap admin not created: %v", err)
	} else if created {
		log.Printf("bootstrap admin %q created", cfg.AdminUsername)
	}

	if cfg.QueueBackend == "memory" {
		// No separate worker can reach an in-process queue.
		proc := &worker.Processor{Reports: reports, Students: students}
		sched, err := proc.Start(ctx, q, cfg.LeaveSweepSchedule)
		if err != nil {
			return fmt.Errorf("invalid LEAVE_SWEEP_SCHEDULE %q: %w", cfg.LeaveSweepSchedule, err)
		}
		defer func() { <-sched.Stop().Done() }()
	}

	srv := &api.Server{
		Accounts:     accounts,
		Students:     students,
		Attendance:   attendance.NewService(attendanceRepo, studentRepo, guard.NewRedis(rdb.Client, "mess:guard", cfg.GuardTTL), q),
		Issues:       issue.NewService(issue.NewRepository(db.Client), time.Now),
		Reports:      reports,
		Issuer:       issuer,
		LoginLimiter: httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Events:       q,
		CORSOrigins:  cfg.CORSOrigins,
		Health: map[string]api.HealthCheck{
			"db":    db.Healthy,
			"redis": rdb.Healthy,
		},
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}
