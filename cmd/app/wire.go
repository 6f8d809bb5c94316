//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/tmoana/uvwatch/internal/bootstrap"
	"github.com/tmoana/uvwatch/internal/domain/auth"
	"github.com/tmoana/uvwatch/internal/domain/exposure"
	"github.com/tmoana/uvwatch/internal/infra/config"
	"github.com/tmoana/uvwatch/internal/infra/llm/ollama"
	"github.com/tmoana/uvwatch/internal/infra/uv/niwa"
	"github.com/tmoana/uvwatch/internal/infra/weather/openweather"
	httpiface "github.com/tmoana/uvwatch/internal/interface/http"
	"github.com/tmoana/uvwatch/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideExposureConfig,
		provideUVClient,
		provideWeatherClient,
		provideAdviceClient,
		provideAuthConfig,
		provideAuthRepository,
		provideSessionStore,
		provideHandler,
		exposure.NewService,
		auth.NewService,
		wire.Bind(new(exposure.UVClient), new(*niwa.Client)),
		wire.Bind(new(exposure.WeatherClient), new(*openweather.Client)),
		wire.Bind(new(exposure.AdviceClient), new(*ollama.Client)),
		httpiface.NewAuthHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
