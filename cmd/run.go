package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"dskdao/api"
	"dskdao/cache"
	"dskdao/config"
	"dskdao/database"
	"dskdao/events"
	"dskdao/notifier"
	"dskdao/repository"
	"dskdao/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting economy service...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Leaderboard cache is optional; rankings fall back to SQL without it
	var leaderboard service.LeaderboardCache
	if cfg.RedisAddr != "" {
		lb, err := cache.NewLeaderboard(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer lb.Close()
		leaderboard = lb
		log.Info("Redis leaderboard cache enabled")
	}

	log.Info("Initializing services...")
	userService := service.NewUserService(uowFactory)
	balanceService := service.NewBalanceService(uowFactory)
	resolver := service.NewLootboxResolver(rand.NewSource(time.Now().UnixNano()))
	shopService := service.NewShopService(uowFactory, resolver)
	engine := service.NewWagerEngine(rand.NewSource(time.Now().UnixNano()), cfg.PlinkoMinBet, cfg.PlinkoMaxBet)
	gameService := service.NewGameService(uowFactory, engine, leaderboard)
	raffleService := service.NewRaffleService(uowFactory, rand.NewSource(time.Now().UnixNano()))

	discordNotifier, err := notifier.New(cfg.DiscordToken, cfg.DiscordChannelID, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord notifier: %w", err)
	}
	if discordNotifier != nil {
		defer discordNotifier.Close()
	}

	server := api.NewServer(cfg.HTTPPort, api.Services{
		Users:    userService,
		Balances: balanceService,
		Shop:     shopService,
		Games:    gameService,
		Raffles:  raffleService,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Infof("HTTP server listening in %s mode", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	log.Info("Shutdown completed")
	return nil
}
