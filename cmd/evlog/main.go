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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/evlog/evlog/internal/api"
	"github.com/evlog/evlog/internal/buildinfo"
	"github.com/evlog/evlog/internal/config"
	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/geoip"
	"github.com/evlog/evlog/internal/hub"
	"github.com/evlog/evlog/internal/ingest"
	"github.com/evlog/evlog/internal/logstore"
	"github.com/evlog/evlog/internal/redisout"
	"github.com/evlog/evlog/internal/retention"
)

func main() {
	// 1. Flags. Flags beat file and environment.
	var (
		configPath  = pflag.String("config", "", "path to YAML config file")
		host        = pflag.String("host", "", "listen address for UDP and HTTP")
		udpPort     = pflag.Int("udp-port", 0, "syslog UDP port")
		httpPort    = pflag.Int("http-port", 0, "HTTP API port")
		dataDir     = pflag.String("data-dir", "", "directory for the database")
		dbFile      = pflag.String("db", "", "database file, relative paths live under the data dir")
		showVersion = pflag.BoolP("version", "v", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("evlog %s (%s, built %s)\n", buildinfo.Version, buildinfo.GitCommit, buildinfo.BuildTime)
		return
	}

	// 2. Load and validate config.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("host") {
		cfg.ListenAddress = *host
	}
	if pflag.CommandLine.Changed("udp-port") {
		cfg.UDPPort = *udpPort
	}
	if pflag.CommandLine.Changed("http-port") {
		cfg.HTTPPort = *httpPort
	}
	if pflag.CommandLine.Changed("data-dir") {
		cfg.DataDir = *dataDir
	}
	if pflag.CommandLine.Changed("db") {
		cfg.DBFile = *dbFile
	}

	if cfg.AdminToken == "" {
		log.Printf("[main] EVLOG_ADMIN_TOKEN not set, API is unauthenticated")
	} else if config.IsWeakToken(cfg.AdminToken) {
		log.Printf("[main] warning: admin token is weak, consider a longer random value")
	}

	// 3. Storage.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("[main] create data dir: %v", err)
	}
	store, err := logstore.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("[main] open store: %v", err)
	}

	// 4. Pipeline services.
	enricher, err := enrich.New(store, cfg.DisplayNameCacheTTL)
	if err != nil {
		log.Fatalf("[main] enricher: %v", err)
	}
	h := hub.New(cfg.SubscriberBuffer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := ingest.NewMetrics(registry, h.SubscriberCount)

	router := ingest.NewRouter(store, enricher, h, metrics)

	var geo *geoip.Resolver
	if cfg.GeoIPDB != "" {
		geo, err = geoip.Open(cfg.GeoIPDB)
		if err != nil {
			log.Printf("[main] geoip disabled: %v", err)
		} else {
			router = router.WithGeo(geo)
		}
	}

	var mirror *redisout.Sink
	if cfg.RedisAddr != "" {
		mirror, err = redisout.New(cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			log.Fatalf("[main] redis mirror: %v", err)
		}
		router = router.WithMirror(mirror)
	}

	// 5. Ingestion.
	udp, err := ingest.ListenUDP(cfg.ListenAddress, cfg.UDPPort, cfg.IngestQueueSize)
	if err != nil {
		log.Fatalf("[main] udp: %v", err)
	}
	router.Run(udp.Datagrams())

	// 6. Retention.
	var purger *retention.Service
	if cfg.Retention > 0 {
		purger, err = retention.New(store, cfg.Retention, cfg.RetentionSchedule)
		if err != nil {
			log.Fatalf("[main] retention: %v", err)
		}
		purger.Start()
	}

	// 7. HTTP API.
	srv := api.NewServer(cfg.ListenAddress, cfg.HTTPPort, api.Deps{
		Store:        store,
		Enricher:     enricher,
		Hub:          h,
		Gatherer:     registry,
		AdminToken:   cfg.AdminToken,
		MaxBodyBytes: int64(cfg.APIMaxBodyBytes),
		MaxConns:     cfg.MaxHTTPConns,
		Version:      buildinfo.Version,
	})
	go func() {
		log.Printf("[main] evlog %s serving HTTP on %s:%d", buildinfo.Version, cfg.ListenAddress, cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] http server: %v", err)
		}
	}()

	// 8. Graceful shutdown. Stop accepting input first, drain the
	// pipeline, then release storage.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("[main] received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] http shutdown: %v", err)
	}

	if err := udp.Close(); err != nil {
		log.Printf("[main] udp close: %v", err)
	}
	router.Wait()

	if purger != nil {
		purger.Stop()
	}
	h.Close()
	if mirror != nil {
		mirror.Close()
	}
	if geo != nil {
		geo.Close()
	}
	if err := store.Close(); err != nil {
		log.Printf("[main] store close: %v", err)
	}
	log.Println("[main] stopped")
}
