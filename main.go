package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"hospitalpredict/config"
	"hospitalpredict/dataset"
	"hospitalpredict/diagnosis"
	qhttp "hospitalpredict/http"
	"hospitalpredict/logger"
	"hospitalpredict/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	source, err := cfg.Dataset.NewSource()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Metrics, service and websocket hub
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewWithRegistry(registry)
	svc, err := diagnosis.NewService(source, cfg.Options(), log.Named("diagnosis"), metrics)
	if err != nil {
		return err
	}

	hub := monitoring.NewHub(log.Named("ws"), metrics.WSClients)
	go hub.Run(ctx)
	go forwardEvents(ctx, svc, hub, log)

	// 3. Watch the dataset file
	if fileSource, ok := source.(dataset.FileSource); ok && cfg.Dataset.Watch {
		watcher, err := dataset.NewWatcher(fileSource.Path, dataset.DefaultDebounce, log.Named("watcher"))
		if err != nil {
			log.Warn("dataset watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			go svc.Watch(ctx, watcher.Changes())
		}
	}

	// 4. Warm the model so a broken dataset shows up at startup
	if model, err := svc.Train(ctx); err != nil {
		log.Warn("initial training failed", zap.String("source", source.String()), zap.Error(err))
	} else {
		log.Info("model ready", zap.String("accuracy", model.AccuracyText()), zap.Int("rows", model.Rows))
	}

	// 5. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, svc,
		qhttp.WithLogger(log.Named("http")),
		qhttp.WithHub(hub),
		qhttp.WithMetrics(metrics, registry),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 6. Handle graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("exiting")
	return nil
}

// forwardEvents relays service events to websocket clients.
func forwardEvents(ctx context.Context, svc *diagnosis.Service, hub *monitoring.Hub, log *zap.Logger) {
	events, cancel := svc.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			var err error
			switch event.Type {
			case diagnosis.EventModelTrained:
				err = hub.Publish(monitoring.ModelTrained, event.Model)
			case diagnosis.EventDatasetChanged:
				err = hub.Publish(monitoring.DatasetChanged, nil)
			case diagnosis.EventTrainingFailed:
				err = hub.Publish(monitoring.TrainingFailed, map[string]string{"error": event.Error})
			}
			if err != nil {
				log.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
			}
		}
	}
}
