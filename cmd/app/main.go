package main

import (
	"flag"
	"log"
	"os"

	"QuantDesk/internal/di"
	"QuantDesk/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path (empty for defaults)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s state=%s activity=%s", cfg.Environment, cfg.State.Backend, cfg.Activity.Backend)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
