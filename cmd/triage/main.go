package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hospitalpredict/config"
	"hospitalpredict/diagnosis"
	"hospitalpredict/logger"
	"hospitalpredict/tui"
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
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The alternate screen owns the terminal; log to the file only.
	cfg.Log.Console = false
	if cfg.Log.File == "" {
		cfg.Log.File = logger.DefaultConfig().File
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
	svc, err := diagnosis.NewService(source, cfg.Options(), log.Named("diagnosis"), nil)
	if err != nil {
		return err
	}
	model, err := svc.Train(context.Background())
	if err != nil {
		return err
	}
	return tui.Run(model, source.String())
}
