package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "path to client directory (overrides config)")
	dbPath := flag.String("db", "", "path to SQLite database (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		panic("config: " + err.Error())
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	flush, err := InitLogger(cfg.Server.Debug)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer flush()

	db, err := OpenDB(cfg.Server.DBPath)
	if err != nil {
		logger.Fatalw("open database", "path", cfg.Server.DBPath, "err", err)
	}
	defer db.Close()

	hub := NewHub(cfg, db)
	go hub.Run()

	mux := SetupRoutes(hub, cfg.Server.ClientDir, cfg.Server.PublicURL)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("server starting", "addr", cfg.Server.Addr, "client_dir", cfg.Server.ClientDir)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatalw("listen", "err", err)
		}
	}()

	<-stop
	logger.Infow("shutting down")
	hub.sessions.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
