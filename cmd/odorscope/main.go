package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/odorscope/odorscope/internal/analysis"
	"github.com/odorscope/odorscope/internal/assets"
	"github.com/odorscope/odorscope/internal/config"
	"github.com/odorscope/odorscope/internal/health"
	httpapi "github.com/odorscope/odorscope/internal/http"
	"github.com/odorscope/odorscope/internal/interpret"
	"github.com/odorscope/odorscope/internal/natsrpc"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using defaults")
	}

	defaultCfg := os.Getenv("ODORSCOPE_CONFIG")
	if defaultCfg == "" {
		defaultCfg = "configs/dev/odorscope.yaml"
	}
	cfgPath := flag.String("config", defaultCfg, "path to config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cache := assets.NewCache(cfg.Assets.Paths())
	a, err := cache.Get()
	if err != nil {
		log.Fatalf("load assets: %v", err)
	}
	log.Printf("loaded %s model %s: %d features, %d odors",
		a.Model.Kind(), a.Model.Version(), len(a.Features), len(a.Labels))

	opts := []analysis.Option{analysis.WithTopK(cfg.Analysis.TopK)}
	if cfg.Rules.RulesPath != "" {
		rules, err := interpret.LoadRules(cfg.Rules.RulesPath)
		if err != nil {
			log.Fatalf("load rules: %v", err)
		}
		opts = append(opts, analysis.WithAnnotator(interpret.New(rules)))
	}
	analyzer := analysis.NewAnalyzer(a.Model, a.Features, a.Labels, opts...)

	mux := http.NewServeMux()
	mux.Handle("/health", health.Handler(func() error {
		_, err := cache.Get()
		return err
	}))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"kind":     a.Model.Kind(),
			"version":  a.Model.Version(),
			"features": a.Model.InputWidth(),
			"odors":    a.Model.OutputWidth(),
		})
	})

	api := httpapi.New(analyzer, "Odor analysis")
	api.Register(mux)

	srv := &http.Server{
		Addr:         cfg.Service.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Timeout,
	}

	var responder *natsrpc.Responder
	if cfg.NATS.URL != "" {
		responder, err = natsrpc.New(natsrpc.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.SubjectAnalyze,
			Queue:   cfg.NATS.Queue,
		}, analyzer)
		if err != nil {
			log.Fatalf("nats responder: %v", err)
		}
		defer responder.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("%s listening on %s", cfg.Service.Name, cfg.Service.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if responder != nil {
		g.Go(func() error {
			return responder.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
