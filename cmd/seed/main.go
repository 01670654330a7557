package main

import (
	"context"
	"errors"
	"os"

	"falplatform/config"
	"falplatform/internal/application/usecase"
	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/repository"
	"falplatform/internal/infrastructure/security"
	"falplatform/internal/logger"

	"go.uber.org/zap"
)

type seedAccount struct {
	username string
	email    string
	password string
	role     domain.Role
}

var catalog = []domain.Ritual{
	{ID: "love-candle", Name: "Свеча любви", Description: "Ритуал на привлечение любви", CoinPrice: 50, PriceMinor: 4900, Active: true},
	{ID: "evil-eye", Name: "Защита от сглаза", Description: "Очищение от дурного глаза", CoinPrice: 40, PriceMinor: 3900, Active: true},
	{ID: "abundance", Name: "Ритуал изобилия", Description: "Привлечение денег и удачи", CoinPrice: 70, PriceMinor: 6900, Active: true},
	{ID: "full-moon", Name: "Полнолуние", Description: "Ритуал в ночь полнолуния", CoinPrice: 90, PriceMinor: 8900, Active: false},
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer log.Sync()

	ctx := context.Background()

	db, err := repository.OpenPostgres(cfg.DSN(), false)
	if err != nil {
		log.Fatal("Failed to connect to DB", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate DB", zap.Error(err))
	}

	log.Info("Starting seed process...")

	users := repository.NewUserRepository(db)
	// Кэш токенов при создании аккаунтов не нужен, Redis не поднимаем
	auth := usecase.NewAuthUseCase(users, nil, security.NewPasswordHasher(),
		security.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret), cfg.RoleTable(), cfg.Location(), log)

	accounts := []seedAccount{
		{"admin", "admin@fal.local", env("SEED_ADMIN_PASSWORD", "admin12345"), domain.RoleAdmin},
		{"moderator", "moderator@fal.local", env("SEED_MODERATOR_PASSWORD", "moder12345"), domain.RoleModerator},
		{"test", "test@fal.local", env("SEED_USER_PASSWORD", "test12345"), domain.RoleUser},
	}
	for _, a := range accounts {
		_, err := auth.CreateAccount(ctx, a.username, a.email, a.password, a.role)
		switch {
		case err == nil:
			log.Info("Created account", zap.String("email", a.email), zap.String("role", string(a.role)))
		case errors.Is(err, domain.ErrUserAlreadyExists):
			log.Info("Account exists", zap.String("email", a.email))
		default:
			log.Fatal("Failed to create account", zap.String("email", a.email), zap.Error(err))
		}
	}

	rituals := repository.NewRitualRepository(db)
	for i := range catalog {
		if err := rituals.Upsert(ctx, &catalog[i]); err != nil {
			log.Fatal("Failed to upsert ritual", zap.String("id", catalog[i].ID), zap.Error(err))
		}
	}
	log.Info("Seed completed", zap.Int("rituals", len(catalog)), zap.Int("accounts", len(accounts)))
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
