package main

import (
	"os"

	"ev-ad-insights/cmd"
	"ev-ad-insights/config"
	"ev-ad-insights/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithMode(cfg.LogMode)
	defer logger.Sync()

	logger.Debug("Config: data=%s | schema=%s | concurrency: %d | store: %s",
		cfg.DataPath, cfg.DataSchema, cfg.MaxConcurrency, cfg.StoreBackend)

	if err := cmd.RootCommand(cfg, logger).Execute(); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}
