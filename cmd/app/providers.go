package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/tmoana/uvwatch/internal/domain/auth"
	"github.com/tmoana/uvwatch/internal/domain/exposure"
	"github.com/tmoana/uvwatch/internal/infra/config"
	"github.com/tmoana/uvwatch/internal/infra/llm/ollama"
	"github.com/tmoana/uvwatch/internal/infra/sessionstore"
	"github.com/tmoana/uvwatch/internal/infra/userrepo"
	"github.com/tmoana/uvwatch/internal/infra/uv/niwa"
	"github.com/tmoana/uvwatch/internal/infra/weather/openweather"
	httpiface "github.com/tmoana/uvwatch/internal/interface/http"
)

func provideExposureConfig(cfg *config.Config) exposure.Config {
	return exposure.Config{
		CacheTTL:          cfg.Exposure.CacheTTL,
		ProviderTimeout:   cfg.Exposure.ProviderTimeout,
		AdviceTimeout:     cfg.Advice.Timeout,
		AdvicePrompt:      cfg.Advice.Prompt,
		AdviceTokenBudget: cfg.Advice.TokenBudget,
	}
}

func provideUVClient(cfg *config.Config) *niwa.Client {
	return niwa.NewClient(cfg.UV.BaseURL, cfg.UV.APIKey, cfg.UV.Timeout)
}

func provideWeatherClient(cfg *config.Config) *openweather.Client {
	return openweather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout)
}

func provideAdviceClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(cfg.Advice.BaseURL, cfg.Advice.Model, cfg.Advice.Temperature, cfg.Advice.Timeout)
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}
}

func provideAuthRepository(cfg *config.Config, logger *slog.Logger) auth.Repository {
	fallback := userrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Auth.Postgres.DSN)
	if dsn == "" {
		logger.Info("auth postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Auth.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Auth.Postgres.MaxConns
	}
	if cfg.Auth.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Auth.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("auth postgres repository enabled")
	return userrepo.NewPostgresRepository(pool)
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) sessionstore.Store {
	if cfg.Session.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("session valkey store enabled", "addr", cfg.Session.Redis.Addr)
			return sessionstore.NewValkeyStore(client, "session")
		}
	}
	return sessionstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Session.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Session.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Session.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideHandler(cfg *config.Config, svc exposure.Service, sessions sessionstore.Store, logger *slog.Logger) *httpiface.Handler {
	defaultLoc := exposure.Coordinate{Lat: cfg.Exposure.DefaultLat, Lon: cfg.Exposure.DefaultLon}
	return httpiface.NewHandler(svc, sessions, defaultLoc, cfg.Session.TTL, logger)
}
