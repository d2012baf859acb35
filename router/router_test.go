package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
)

type pingHandler struct{}

func (*pingHandler) RegisterPing(api huma.API) {
	huma.Get(api, "/ping", func(context.Context, *struct{}) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "pong"}, nil
	})
}

func TestNew(t *testing.T) {
	var calls []string
	h := New("Test API", "1.0.0",
		func(http.ResponseWriter, *http.Request) { calls = append(calls, "liveness") },
		func(http.ResponseWriter, *http.Request) { calls = append(calls, "readiness") },
		func(http.ResponseWriter, *http.Request) { calls = append(calls, "metrics") },
		OptUseMiddleware(func(ctx huma.Context, next func(huma.Context)) {
			calls = append(calls, "middleware")
			next(ctx)
		}),
		OptGroup("/v1", OptAutoRegister(&pingHandler{})),
	)

	for _, path := range []string{"/", "/liveness", "/readiness", "/metrics", "/v1/ping"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, []string{"liveness", "liveness", "readiness", "metrics", "middleware"}, calls)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.JSONEq(t, `"pong"`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/v1/ping"`)
}
