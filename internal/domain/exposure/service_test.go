package exposure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		CacheTTL:        300 * time.Second,
		ProviderTimeout: 10 * time.Second,
		AdviceTimeout:   25 * time.Second,
	}
}

func newTestService(uv *stubUVClient, weather *stubWeatherClient, advice *stubAdviceClient) *service {
	return &service{
		cfg:     testConfig(),
		uv:      uv,
		weather: weather,
		advice:  advice,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     func() time.Time { return testNow },
	}
}

func daytimeSnapshot(cloudIndex int) *WeatherSnapshot {
	return &WeatherSnapshot{
		CloudIndex:           cloudIndex,
		LocationName:         "Auckland",
		ConditionMain:        "Clouds",
		ConditionDescription: "scattered clouds",
		ConditionIcon:        "03d",
		Sunrise:              testNow.Add(-6 * time.Hour).Unix(),
		Sunset:               testNow.Add(6 * time.Hour).Unix(),
	}
}

func TestReportDaytimeSunny(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{text: "UV Summary: High UV risk."}
	svc := newTestService(uv, weather, advice)

	out, state, err := svc.Report(context.Background(), SessionState{Coordinate: Coordinate{Lat: -36.8485, Lon: 174.7633}})
	require.NoError(t, err)

	require.NotNil(t, out.UVIndex)
	require.Equal(t, 6.0, *out.UVIndex)
	require.Equal(t, "High UV (sunny): Sunglasses, hat, and long sleeves recommended.", out.Advice)
	require.Equal(t, "UV Summary: High UV risk.", out.GeneratedAdvice)
	require.Equal(t, "Auckland", out.LocationName)
	require.False(t, out.Nighttime)
	require.False(t, out.FromCache)
	require.Equal(t, 1, advice.calls)

	require.NotNil(t, state.Cache)
	require.Equal(t, LocationKey(state.Coordinate), state.Cache.LocationKey)
	require.Equal(t, testNow, state.Cache.ComputedAt)
	require.Equal(t, out, state.Cache.Context)
}

func TestReportUVUnavailable(t *testing.T) {
	uv := &stubUVClient{err: errors.New("niwa down")}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{}
	svc := newTestService(uv, weather, advice)

	out, state, err := svc.Report(context.Background(), SessionState{})
	require.NoError(t, err)

	require.Nil(t, out.UVIndex)
	require.Equal(t, AdviceUVUnavailable, out.Advice)
	require.Zero(t, advice.calls)
	// Weather descriptive fields survive the missing UV data.
	require.Equal(t, "Auckland", out.LocationName)
	require.NotNil(t, state.Cache)
}

func TestReportWeatherUnavailable(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0), CloudySkyMax: floatPtr(4.0)}}
	weather := &stubWeatherClient{err: errors.New("owm down")}
	advice := &stubAdviceClient{}
	svc := newTestService(uv, weather, advice)

	out, _, err := svc.Report(context.Background(), SessionState{})
	require.NoError(t, err)

	require.Nil(t, out.UVIndex)
	require.Equal(t, AdviceWeatherUnavailable, out.Advice)
	require.Zero(t, advice.calls)
	require.Empty(t, out.LocationName)
}

func TestReportNighttime(t *testing.T) {
	snapshot := daytimeSnapshot(10)
	snapshot.Sunrise = testNow.Add(2 * time.Hour).Unix()
	snapshot.Sunset = testNow.Add(14 * time.Hour).Unix()

	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: snapshot}
	advice := &stubAdviceClient{}
	svc := newTestService(uv, weather, advice)

	out, _, err := svc.Report(context.Background(), SessionState{})
	require.NoError(t, err)

	require.True(t, out.Nighttime)
	require.Equal(t, AdviceNighttime, out.Advice)
	require.Equal(t, generatedAdviceNighttime, out.GeneratedAdvice)
	require.Nil(t, out.UVIndex)
	require.Zero(t, advice.calls)
	// Weather fields still populated for the night view.
	require.Equal(t, "Auckland", out.LocationName)
	require.Equal(t, "scattered clouds", out.ConditionDescription)
}

func TestReportCloudySelectsCloudyMax(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(3.0), CloudySkyMax: floatPtr(7.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(50)}
	advice := &stubAdviceClient{text: "ok"}
	svc := newTestService(uv, weather, advice)

	out, _, err := svc.Report(context.Background(), SessionState{})
	require.NoError(t, err)
	require.Equal(t, 7.0, *out.UVIndex)
	require.Contains(t, out.Advice, "(cloudy)")
}

func TestReportCacheRoundTrip(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{text: "stay safe"}
	svc := newTestService(uv, weather, advice)

	coord := Coordinate{Lat: -36.8485, Lon: 174.7633}
	first, state, err := svc.Report(context.Background(), SessionState{Coordinate: coord})
	require.NoError(t, err)
	require.Equal(t, 1, uv.calls)
	require.Equal(t, 1, weather.calls)

	// Second request within TTL at the same rounded coordinate: no
	// provider calls, identical context apart from the cache flag.
	state.Coordinate = Coordinate{Lat: -36.84851, Lon: 174.76329}
	second, state2, err := svc.Report(context.Background(), state)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	second.FromCache = first.FromCache
	require.Equal(t, first, second)
	require.Equal(t, 1, uv.calls)
	require.Equal(t, 1, weather.calls)
	require.Equal(t, state.Cache, state2.Cache)
}

func TestReportCacheExpires(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{text: "stay safe"}
	svc := newTestService(uv, weather, advice)

	coord := Coordinate{Lat: -36.8485, Lon: 174.7633}
	_, state, err := svc.Report(context.Background(), SessionState{Coordinate: coord})
	require.NoError(t, err)

	svc.now = func() time.Time { return testNow.Add(300 * time.Second) }
	out, _, err := svc.Report(context.Background(), state)
	require.NoError(t, err)
	require.False(t, out.FromCache)
	require.Equal(t, 2, uv.calls)
}

func TestReportLocationChangeInvalidatesCache(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{text: "stay safe"}
	svc := newTestService(uv, weather, advice)

	_, state, err := svc.Report(context.Background(), SessionState{Coordinate: Coordinate{Lat: -36.8485, Lon: 174.7633}})
	require.NoError(t, err)

	state.Coordinate = Coordinate{Lat: -41.2865, Lon: 174.7762}
	out, state2, err := svc.Report(context.Background(), state)
	require.NoError(t, err)
	require.False(t, out.FromCache)
	require.Equal(t, 2, uv.calls)
	require.Equal(t, LocationKey(state.Coordinate), state2.Cache.LocationKey)
}

func TestReportSequentialFallback(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}, panicsLeft: 1}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{text: "stay safe"}
	svc := newTestService(uv, weather, advice)

	out, state, err := svc.Report(context.Background(), SessionState{})
	require.NoError(t, err)

	// The panicking concurrent attempt plus the sequential re-run.
	require.Equal(t, 2, uv.calls)
	require.Equal(t, 6.0, *out.UVIndex)
	require.Equal(t, "High UV (sunny): Sunglasses, hat, and long sleeves recommended.", out.Advice)
	require.NotNil(t, state.Cache)
}

func TestReportAdviceGenerationFailure(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{err: errors.New("model not loaded")}
	svc := newTestService(uv, weather, advice)

	out, state, err := svc.Report(context.Background(), SessionState{})
	require.NoError(t, err)

	require.Contains(t, out.GeneratedAdvice, "Error calling language model")
	require.Contains(t, out.GeneratedAdvice, "model not loaded")
	// Deterministic fields are unaffected by the generation failure.
	require.Equal(t, 6.0, *out.UVIndex)
	require.Equal(t, "High UV (sunny): Sunglasses, hat, and long sleeves recommended.", out.Advice)
	require.NotNil(t, state.Cache)
}

func TestReportAbandonedRequestStoresNothing(t *testing.T) {
	uv := &stubUVClient{reading: UVReading{ClearSkyMax: floatPtr(6.0)}}
	weather := &stubWeatherClient{snapshot: daytimeSnapshot(20)}
	advice := &stubAdviceClient{}
	svc := newTestService(uv, weather, advice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, state, err := svc.Report(ctx, SessionState{})
	require.Error(t, err)
	require.Nil(t, state.Cache)
}

type stubUVClient struct {
	mu         sync.Mutex
	reading    UVReading
	err        error
	calls      int
	panicsLeft int
}

func (s *stubUVClient) Fetch(_ context.Context, _ Coordinate) (UVReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panicsLeft > 0 {
		s.panicsLeft--
		panic("executor unavailable")
	}
	if s.err != nil {
		return UVReading{}, s.err
	}
	return s.reading, nil
}

type stubWeatherClient struct {
	mu       sync.Mutex
	snapshot *WeatherSnapshot
	err      error
	calls    int
}

func (s *stubWeatherClient) Fetch(_ context.Context, _ Coordinate) (*WeatherSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	snapshot := *s.snapshot
	return &snapshot, nil
}

type stubAdviceClient struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubAdviceClient) Generate(_ context.Context, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}
