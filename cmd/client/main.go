package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-otp-vault/internal/adapter"
	"github.com/MKhiriev/go-otp-vault/internal/cache"
	"github.com/MKhiriev/go-otp-vault/internal/client"
	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("otp-vault-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server adapter")
	}

	vaultCache, err := cache.NewVaultCache(context.Background(), cfg.Storage.Cache.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening device cache")
	}
	defer vaultCache.Close()

	app := client.NewApp(serverAdapter, vaultCache, cfg, log)
	if err = app.Run(); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
