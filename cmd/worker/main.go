package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelmess/internal/attendance"
	"hostelmess/internal/config"
	"hostelmess/internal/queue"
	"hostelmess/internal/report"
	"hostelmess/internal/store"
	"hostelmess/internal/student"
	"hostelmess/internal/worker"
)

// Worker consumes mess events to keep cached reports fresh and runs the
// scheduled leave sweep.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		log.Printf("warning: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	if cfg.QueueBackend == "memory" {
		log.Println("QUEUE_BACKEND=memory: events are handled inside the api process")
	}

	studentRepo := student.NewRepository(db.Client)
	students := student.NewService(studentRepo, time.Now, cfg.Timezone)
	reports := report.NewService(attendance.NewRepository(db.Client), studentRepo,
		report.NewRedisCache(rdb.Client), cfg.ReportCacheTTL, time.Now, cfg.Timezone)
	proc := &worker.Processor{Reports: reports, Students: students}

	sched, err := proc.Schedule(ctx, cfg.LeaveSweepSchedule)
	if err != nil {
		log.Fatalf("invalid LEAVE_SWEEP_SCHEDULE %q: %v", cfg.LeaveSweepSchedule, err)
	}
	defer func() { <-sched.Stop().Done() }()

	// Catch up on leave that ended while the worker was down.
	proc.SweepLeaves(ctx)

	if cfg.QueueBackend == "memory" {
		<-ctx.Done()
		log.Println("worker stopped")
		return
	}

	log.Println("worker started, waiting for messages...")
	if err := proc.Run(ctx, queue.NewRedisQueue(rdb.Client, queue.DefaultKey)); err != nil {
		log.Printf("queue consume failed: %v", err)
	}
	log.Println("worker stopped")
}
