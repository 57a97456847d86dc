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

	"medfocus/internal/auth"
	"medfocus/internal/config"
	"medfocus/internal/db"
	httpx "medfocus/internal/http"
	"medfocus/internal/jobs"
)

func main() {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, gdb, jwtSvc)

	// worker + periodic enqueues
	jobsRepo := &jobs.Repo{DB: gdb}
	worker := &jobs.Worker{ID: fmt.Sprintf("worker-%d", os.Getpid()), Repo: jobsRepo, DB: gdb}
	sched := jobs.NewScheduler(jobsRepo, cfg.ReminderStartHour, cfg.ReminderEndHour)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	sched.Stop()
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
