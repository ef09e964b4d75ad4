package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/pos"
	"restoran-pos/internal/realtime"
	"restoran-pos/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json, toml or .env)")
	accessLog := flag.Bool("access-log", true, "log every request")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := cfg.Logger()
	cfg.Warn(log)

	db, err := database.Open(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}, log)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}

	resolver, err := auth.NewResolver(db, cfg.RoleCacheSize)
	if err != nil {
		log.Error("resolver", "error", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(0)
	events := realtime.Multi{hub}
	if cfg.RabbitMQURL != "" {
		mq, err := realtime.DialAMQP(cfg.RabbitMQURL, realtime.DefaultExchange, log)
		if err != nil {
			log.Error("rabbitmq", "error", err)
			os.Exit(1)
		}
		defer mq.Close()
		events = append(events, mq)
		log.Info("publishing changes to rabbitmq", "exchange", realtime.DefaultExchange)
	}

	app := server.New(server.Deps{
		Config:    cfg,
		DB:        db,
		Log:       log,
		Resolver:  resolver,
		POS:       pos.NewService(db, events, log),
		Hub:       hub,
		Events:    events,
		AccessLog: *accessLog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.HTTPPort)
		errc <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown", "error", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
