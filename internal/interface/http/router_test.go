package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmoana/uvwatch/internal/domain/auth"
	"github.com/tmoana/uvwatch/internal/domain/exposure"
	"github.com/tmoana/uvwatch/internal/infra/config"
	"github.com/tmoana/uvwatch/internal/infra/sessionstore"
	"github.com/tmoana/uvwatch/internal/infra/userrepo"
)

func TestRouter_ReportSuccess(t *testing.T) {
	uv := 6.0
	out := exposure.DisplayContext{
		UVIndex:      &uv,
		Advice:       "High UV (sunny): Sunglasses, hat, and long sleeves recommended.",
		LocationName: "Auckland",
	}
	svc := &stubExposure{
		reportFn: func(ctx context.Context, state exposure.SessionState) (exposure.DisplayContext, exposure.SessionState, error) {
			require.Equal(t, -36.8485, state.Coordinate.Lat)
			require.Equal(t, 174.7633, state.Coordinate.Lon)
			return out, state, nil
		},
	}

	rec := performRequest(http.MethodGet, "/api/v1/report", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, rec.Code)

	var got exposure.DisplayContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, out, got)

	// First visit mints a session cookie.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, sessionCookie, cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestRouter_ReportPipelineFailure(t *testing.T) {
	svc := &stubExposure{
		reportFn: func(ctx context.Context, state exposure.SessionState) (exposure.DisplayContext, exposure.SessionState, error) {
			return exposure.DisplayContext{}, state, context.Canceled
		},
	}

	rec := performRequest(http.MethodGet, "/api/v1/report", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "report_failed", errBody["error"]["code"])
}

func TestRouter_SetLocationUpdatesSession(t *testing.T) {
	var seen exposure.Coordinate
	svc := &stubExposure{
		reportFn: func(ctx context.Context, state exposure.SessionState) (exposure.DisplayContext, exposure.SessionState, error) {
			seen = state.Coordinate
			return exposure.DisplayContext{}, state, nil
		},
	}
	server := newRouterUnderTest(t, svc)

	rec := performRequest(http.MethodPost, "/api/v1/location", `{"lat":-41.2865,"lon":174.7762}`, server)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Equal(t, exposure.Coordinate{Lat: -41.2865, Lon: 174.7762}, seen)
}

func TestRouter_SetLocationValidation(t *testing.T) {
	server := newRouterUnderTest(t, &stubExposure{})

	for _, body := range []string{
		`{"lat":-91,"lon":0}`,
		`{"lat":0,"lon":181}`,
		`{"lon":174.7}`,
		`{"lat":"x","lon":1}`,
	} {
		rec := performRequest(http.MethodPost, "/api/v1/location", body, server)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body=%s", body)
		errBody := decodeErrorBody(t, rec.Body.Bytes())
		require.Equal(t, "invalid_request", errBody["error"]["code"])
	}
}

func TestRouter_UserLocationRedirects(t *testing.T) {
	server := newRouterUnderTest(t, &stubExposure{})

	req := httptest.NewRequest(http.MethodPost, "/user_location", bytes.NewBufferString("lat=-36.8485&lon=174.7633"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRouter_UserLocationDelimitedValue(t *testing.T) {
	var seen exposure.Coordinate
	svc := &stubExposure{
		reportFn: func(ctx context.Context, state exposure.SessionState) (exposure.DisplayContext, exposure.SessionState, error) {
			seen = state.Coordinate
			return exposure.DisplayContext{}, state, nil
		},
	}
	server := newRouterUnderTest(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/user_location", bytes.NewBufferString("latlon=-41.2865%2C174.7762"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	reportReq := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	reportReq.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec2, reportReq)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Equal(t, exposure.Coordinate{Lat: -41.2865, Lon: 174.7762}, seen)
}

func TestRouter_UserLocationMalformedValue(t *testing.T) {
	server := newRouterUnderTest(t, &stubExposure{})

	req := httptest.NewRequest(http.MethodPost, "/user_location", bytes.NewBufferString("latlon=not-a-coordinate"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_ClearCache(t *testing.T) {
	server := newRouterUnderTest(t, &stubExposure{})

	rec := performRequest(http.MethodPost, "/api/v1/cache/clear", "", server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestRouter_LocationChangeInvalidatesCache(t *testing.T) {
	uv := &countingUVClient{}
	svc := exposure.NewService(exposure.Config{
		CacheTTL:        5 * time.Minute,
		ProviderTimeout: time.Second,
		AdviceTimeout:   time.Second,
	}, uv, fixedWeatherClient{}, fixedAdviceClient{}, newTestLogger())
	server := newRouterUnderTest(t, svc)

	rec := performRequest(http.MethodGet, "/api/v1/report", "", server)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	cookie := cookies[0]
	require.Equal(t, 1, uv.calls)

	// Move away and straight back within the TTL.
	for _, body := range []string{
		`{"lat":-41.2865,"lon":174.7762}`,
		`{"lat":-36.8485,"lon":174.7633}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/location", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		locRec := httptest.NewRecorder()
		server.Handler.ServeHTTP(locRec, req)
		require.Equal(t, http.StatusOK, locRec.Code)
	}

	// The round trip must not resurrect the old entry.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Equal(t, 2, uv.calls)

	var got exposure.DisplayContext
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &got))
	require.False(t, got.FromCache)
}

func TestRouter_Healthz(t *testing.T) {
	rec := performRequest(http.MethodGet, "/healthz", "", newRouterUnderTest(t, &stubExposure{}))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AuthFlow(t *testing.T) {
	server := newRouterUnderTest(t, &stubExposure{})

	rec := performRequest(http.MethodPost, "/api/v1/auth/register", `{"email":"user@example.com","password":"pass1234","nickname":"Sunny"}`, server)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = performRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"user@example.com","password":"pass1234"}`, server)
	require.Equal(t, http.StatusOK, rec.Code)

	var login auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec2 := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Contains(t, rec2.Body.String(), "user@example.com")

	logoutReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	logoutReq.Header.Set("Authorization", "Bearer "+login.Token)
	rec3 := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec3, logoutReq)
	require.Equal(t, http.StatusOK, rec3.Code)
	require.Contains(t, rec3.Body.String(), "logged out")
}

func TestRouter_LogoutRequiresToken(t *testing.T) {
	rec := performRequest(http.MethodPost, "/api/v1/auth/logout", "", newRouterUnderTest(t, &stubExposure{}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ProfileRequiresToken(t *testing.T) {
	rec := performRequest(http.MethodGet, "/api/v1/auth/profile", "", newRouterUnderTest(t, &stubExposure{}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc exposure.Service) *http.Server {
	t.Helper()
	logger := newTestLogger()

	handler := NewHandler(svc, sessionstore.NewMemoryStore(), exposure.Coordinate{Lat: -36.8485, Lon: 174.7633}, time.Hour, logger)
	authSvc := auth.NewService(auth.Config{
		Secret:          "test-secret",
		TokenTTL:        time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}, userrepo.NewMemoryRepository(), logger)
	authHandler := NewAuthHandler(authSvc, logger)

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler, authHandler, authSvc, logger)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type countingUVClient struct {
	calls int
}

func (c *countingUVClient) Fetch(_ context.Context, _ exposure.Coordinate) (exposure.UVReading, error) {
	c.calls++
	clearMax, cloudyMax := 6.0, 4.0
	return exposure.UVReading{ClearSkyMax: &clearMax, CloudySkyMax: &cloudyMax}, nil
}

type fixedWeatherClient struct{}

func (fixedWeatherClient) Fetch(_ context.Context, _ exposure.Coordinate) (*exposure.WeatherSnapshot, error) {
	return &exposure.WeatherSnapshot{
		CloudIndex:           10,
		LocationName:         "Auckland",
		ConditionMain:        "Clear",
		ConditionDescription: "clear sky",
	}, nil
}

type fixedAdviceClient struct{}

func (fixedAdviceClient) Generate(_ context.Context, _, _ string) (string, error) {
	return "Wear a hat.", nil
}

type stubExposure struct {
	reportFn func(ctx context.Context, state exposure.SessionState) (exposure.DisplayContext, exposure.SessionState, error)
}

func (s *stubExposure) Report(ctx context.Context, state exposure.SessionState) (exposure.DisplayContext, exposure.SessionState, error) {
	if s.reportFn != nil {
		return s.reportFn(ctx, state)
	}
	return exposure.DisplayContext{}, state, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
