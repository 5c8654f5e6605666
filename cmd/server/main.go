package main

import (
	"fmt"
	"os"

	"github.com/OFFIS-RIT/nafstore/internal/config"
	"github.com/OFFIS-RIT/nafstore/internal/server"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/logger/console"

	"github.com/spf13/viper"
)

func main() {
	cfg, err := config.Load(viper.New(), os.Getenv("NAFSTORE_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
	})
	logger.Init(consoleLogger)

	server.Init(cfg)
}
