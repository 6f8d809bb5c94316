package exposure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tmoana/uvwatch/pkg/metrics"
)

// Service exposes the exposure report pipeline.
type Service interface {
	Report(ctx context.Context, state SessionState) (DisplayContext, SessionState, error)
}

// UVClient fetches the two candidate UV maxima for a coordinate.
type UVClient interface {
	Fetch(ctx context.Context, c Coordinate) (UVReading, error)
}

// WeatherClient fetches current conditions for a coordinate.
type WeatherClient interface {
	Fetch(ctx context.Context, c Coordinate) (*WeatherSnapshot, error)
}

// AdviceClient generates free-text advice from a local language model.
type AdviceClient interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type service struct {
	cfg     Config
	uv      UVClient
	weather WeatherClient
	advice  AdviceClient
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires up the exposure domain.
func NewService(cfg Config, uv UVClient, weather WeatherClient, advice AdviceClient, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		uv:      uv,
		weather: weather,
		advice:  advice,
		logger:  logger.With("component", "exposure.service"),
		now:     time.Now,
	}
}

// Report runs the aggregation pipeline for one session. It is a pure
// function of (state, now) apart from the provider calls: the caller
// receives the updated SessionState and is responsible for persisting it.
func (s *service) Report(ctx context.Context, state SessionState) (DisplayContext, SessionState, error) {
	now := s.now()

	fetch, reason := shouldFetch(state.Coordinate, state.Cache, now, s.cfg.CacheTTL)
	if !fetch {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		metrics.PipelineRunsTotal.WithLabelValues("cache").Inc()
		out := state.Cache.Context
		out.FromCache = true
		return out, state, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss_" + reason).Inc()
	s.logger.Info("fetching exposure data", "reason", reason, "key", LocationKey(state.Coordinate))

	uv, weather, err := s.fetchConcurrent(ctx, state.Coordinate)
	path := "concurrent"
	if err != nil {
		// Infrastructure-level failure of the fan-out itself, not an
		// individual provider error. Re-run both fetches sequentially.
		s.logger.Warn("concurrent fetch failed, falling back to sequential", "error", err)
		path = "sequential"
		uv, weather = s.fetchSequential(ctx, state.Coordinate)
	}
	metrics.PipelineRunsTotal.WithLabelValues(path).Inc()

	if ctx.Err() != nil {
		// Request abandoned mid-flight; never store a partial entry.
		return DisplayContext{}, state, ctx.Err()
	}

	out := s.resolve(ctx, state.Coordinate, uv, weather, now)

	state.Cache = &CacheEntry{
		LocationKey: LocationKey(state.Coordinate),
		ComputedAt:  now,
		Context:     out,
	}
	return out, state, nil
}

// fetchConcurrent issues both provider calls simultaneously and waits for
// both to finish. Individual provider errors are converted to absent
// results and never cancel the sibling call; only a panic inside the
// fan-out surfaces as an error and triggers the sequential fallback.
func (s *service) fetchConcurrent(ctx context.Context, c Coordinate) (UVReading, *WeatherSnapshot, error) {
	var (
		uv      UVReading
		weather *WeatherSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("uv fetch panicked: %v", r)
			}
		}()
		uv = s.fetchUV(gctx, c)
		return nil
	})
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("weather fetch panicked: %v", r)
			}
		}()
		weather = s.fetchWeather(gctx, c)
		return nil
	})

	if err := g.Wait(); err != nil {
		return UVReading{}, nil, err
	}
	return uv, weather, nil
}

// fetchSequential re-runs both fetches one after another. It produces the
// same result shape as the concurrent path and feeds the same resolve.
func (s *service) fetchSequential(ctx context.Context, c Coordinate) (UVReading, *WeatherSnapshot) {
	return s.fetchUV(ctx, c), s.fetchWeather(ctx, c)
}

func (s *service) fetchUV(ctx context.Context, c Coordinate) UVReading {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	reading, err := s.uv.Fetch(ctx, c)
	if err != nil {
		s.logger.Warn("uv provider fetch failed", "error", err)
		return UVReading{}
	}
	return reading
}

func (s *service) fetchWeather(ctx context.Context, c Coordinate) *WeatherSnapshot {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	snapshot, err := s.weather.Fetch(ctx, c)
	if err != nil {
		s.logger.Warn("weather provider fetch failed", "error", err)
		return nil
	}
	return snapshot
}

// resolve assembles the DisplayContext from whatever the fetch phase
// produced. Both the concurrent and the sequential paths go through here
// so their behavior cannot drift.
func (s *service) resolve(ctx context.Context, c Coordinate, uv UVReading, weather *WeatherSnapshot, now time.Time) DisplayContext {
	var out DisplayContext

	if weather != nil {
		cloudIndex := weather.CloudIndex
		out.CloudIndex = &cloudIndex
		out.LocationName = weather.LocationName
		out.ConditionMain = weather.ConditionMain
		out.ConditionDescription = weather.ConditionDescription
		out.ConditionIcon = weather.ConditionIcon

		if isNighttime(weather.Sunrise, weather.Sunset, now) {
			out.Nighttime = true
			out.Advice = AdviceNighttime
			out.GeneratedAdvice = generatedAdviceNighttime
			return out
		}
	}

	if uv.Empty() {
		out.Advice = AdviceUVUnavailable
		return out
	}
	if weather == nil {
		out.Advice = AdviceWeatherUnavailable
		return out
	}

	cloudy := weather.CloudIndex >= 50
	index := effectiveUV(uv, weather.CloudIndex)
	out.UVIndex = index
	out.Advice = clothingAdvice(index, cloudy)
	if index != nil {
		out.GeneratedAdvice = s.generateAdvice(ctx, c, *index, weather)
	}
	return out
}

// generateAdvice invokes the language model at most once per request. Any
// failure becomes a descriptive string; the rest of the context is
// unaffected.
func (s *service) generateAdvice(ctx context.Context, c Coordinate, uvIndex float64, weather *WeatherSnapshot) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AdviceTimeout)
	defer cancel()

	prompt := s.buildAdvicePrompt(c, uvIndex, weather)
	text, err := s.advice.Generate(ctx, s.systemPrompt(), prompt)
	if err != nil {
		metrics.AdviceGenerationTotal.WithLabelValues("error").Inc()
		s.logger.Warn("advice generation failed", "error", err)
		return fmt.Sprintf("Error calling language model: %v", err)
	}
	metrics.AdviceGenerationTotal.WithLabelValues("ok").Inc()
	return text
}
