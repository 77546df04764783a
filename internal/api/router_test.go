package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/services"
	"github.com/stitts-dev/gridiron-sim/internal/store"
)

const secret = "router-secret"

type stubForecaster struct {
	simulated int
}

func (s *stubForecaster) Simulate(_ context.Context, req services.Request) (*services.Forecast, error) {
	s.simulated++
	return &services.Forecast{ID: uuid.New(), Season: req.Season}, nil
}

func (s *stubForecaster) Get(context.Context, uuid.UUID) (*services.Forecast, error) {
	return nil, store.ErrNotFound
}

func (s *stubForecaster) Latest(_ context.Context, season int) (*services.Forecast, error) {
	return &services.Forecast{Season: season}, nil
}

func (s *stubForecaster) History(_ context.Context, season, _ int) ([]*services.Forecast, error) {
	return []*services.Forecast{{Season: season}}, nil
}

func (s *stubForecaster) Ratings(_ context.Context, season int) (*services.RatingsReport, error) {
	return &services.RatingsReport{Season: season}, nil
}

func testRouter(f *stubForecaster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Forecasts: handlers.NewForecastHandler(f, nil, time.Minute),
		Health:    handlers.NewHealthHandler(nil),
		WebSocket: func(c *gin.Context) { c.String(http.StatusTeapot, c.Param("id")) },
		JWTSecret: secret,
	})
}

func serve(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	r := testRouter(&stubForecaster{})

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/api/v1/seasons/2024/forecast", http.StatusOK},
		{"/api/v1/seasons/2024/forecasts", http.StatusOK},
		{"/api/v1/seasons/2024/ratings", http.StatusOK},
		{"/api/v1/forecasts/" + uuid.NewString(), http.StatusNotFound},
		{"/ws/forecasts/abc", http.StatusTeapot},
		{"/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(r, http.MethodGet, tt.path, "", "").Code)
		})
	}
}

func TestRouter_CreateRequiresAuth(t *testing.T) {
	f := &stubForecaster{}
	r := testRouter(f)

	w := serve(r, http.MethodPost, "/api/v1/forecasts", `{"season":2024}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.simulated)

	token, err := middleware.GenerateToken(secret, "tester", time.Hour)
	require.NoError(t, err)
	w = serve(r, http.MethodPost, "/api/v1/forecasts", `{"season":2024}`, token)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, f.simulated)
}
