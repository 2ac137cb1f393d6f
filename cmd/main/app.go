package main

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/zhukovvlad/peni-go/cmd/internal/config"
	"github.com/zhukovvlad/peni-go/cmd/internal/history"
	"github.com/zhukovvlad/peni-go/cmd/internal/server"
	"github.com/zhukovvlad/peni-go/cmd/pkg/calcclient"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

func main() {
	logger := logging.GetLogger()
	logger.Info("Starting Peni gateway...")

	if err := godotenv.Load(); err != nil {
		logger.Infof("no .env file loaded: %v", err)
	}

	cfg := config.GetConfig()

	historyStore, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Fatalf("error opening history store: %v", err)
	}
	defer historyStore.Close()

	logger.Infof("History store ready at %s", cfg.History.Path)

	client := calcclient.NewClient(cfg.CalcService.URL, cfg.CalcService.Timeout, logger)
	client.SetRateLimit(cfg.CalcService.RateLimitRPS, cfg.CalcService.RateLimitBurst)

	srv := server.NewServer(logger, client, historyStore, cfg)

	serverAddress := fmt.Sprintf("%s:%s", cfg.Listen.BindIP, cfg.Listen.Port)
	logger.Infof("Starting server on %s", serverAddress)

	if err := srv.Start(serverAddress); err != nil {
		logger.Fatalf("error starting server: %v", err)
	}
}
