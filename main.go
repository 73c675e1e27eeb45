package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"warnbot/config"
	"warnbot/internal/handler"
	"warnbot/internal/nina"
	"warnbot/internal/notifier"
	"warnbot/internal/repository"
	"warnbot/traits/database"
	"warnbot/traits/logger"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// optional, real deployments set the environment directly
	_ = godotenv.Load()

	zapLogger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		zapLogger.Error("error initializing config", zap.Error(err))
		return
	}

	db, err := database.InitDatabase(cfg.DBPath)
	if err != nil {
		zapLogger.Error("error initializing database", zap.Error(err))
		return
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	sessions := repository.NewSessionRepository(redisClient)
	if err := sessions.Ping(ctx); err != nil {
		zapLogger.Error("error connecting to redis", zap.Error(err))
		return
	}

	users := repository.NewUserRepository(db)
	client := nina.NewClient(cfg.NinaBaseURL, cfg.HTTPTimeout, zapLogger)

	handl := handler.NewHandler(zapLogger, cfg, users, sessions, client, nil)

	b, err := bot.New(cfg.Token, bot.WithDefaultHandler(handl.DefaultHandler))
	if err != nil {
		zapLogger.Error("error in start bot", zap.Error(err))
		return
	}
	sender := handler.NewBotSender(b)
	handl.SetSender(sender)

	svc := notifier.NewService(zapLogger, cfg, sender, users, sessions, client)
	go svc.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		zapLogger.Info("Bot stopped successfully")
		cancel()
	}()

	zapLogger.Info("Bot started successfully",
		zap.Duration("poll_interval", cfg.PollInterval),
	)
	b.Start(ctx)
}
