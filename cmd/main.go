package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"aegis/config"
	"aegis/data"
	"aegis/data/cache"
	"aegis/data/repository"
	"aegis/data/session"
	"aegis/internal/converter/telebotConverter"
	"aegis/internal/externalApi/cloudStorageApi/googleDriveApi"
	"aegis/internal/externalApi/marketApi"
	"aegis/internal/reportGenerator/xslsxGenerator"
	"aegis/internal/scheduler"
	"aegis/internal/service/ledgerService"
	"aegis/internal/tgbot"
	"aegis/internal/transport/telegram"
	"aegis/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	marketApiClient := marketApi.New(cfg)

	reportGenerator := xslsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	ledgerSrv := ledgerService.New(cfg, pgRepo, redisCache, marketApiClient, reportGenerator, googleCloudStorage)

	tgController := telegram.NewController(ledgerSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController)

	sched := scheduler.New()
	sched.NewIntervalJob("advisor", func(ctx context.Context) error {
		ctx = utils.NewCtxWithRqID(ctx)

		advice, err := ledgerSrv.BuildAdvice(ctx)
		if err != nil {
			return err
		}

		// silent mode: nothing worth pinging about
		if !advice.Noteworthy() {
			return nil
		}

		text, markup := telebotConverter.AdviceResponse(advice)
		return tgBot.Notify(text, markup)
	}, cfg.Jobs.AdvisorInterval, false)

	sched.NewIntervalJob("drive cleanup", func(ctx context.Context) error {
		return googleCloudStorage.DeleteOldFiles(utils.NewCtxWithRqID(ctx))
	}, cfg.Jobs.DriveCleanupInterval, true)

	sched.Start()
	defer sched.Stop()

	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
