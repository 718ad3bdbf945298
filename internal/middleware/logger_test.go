package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(&buf)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()
	server.Use(RequestLogger(logger))
	server.GET("/ping", func(gctx *gin.Context) {
		zerolog.Ctx(gctx.Request.Context()).Info().Msg("inside handler")
		gctx.Status(http.StatusOK)
	})

	t.Run("GeneratesRequestID", func(t *testing.T) {
		buf.Reset()

		recorder := httptest.NewRecorder()
		server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		require.NotEmpty(t, recorder.Header().Get(RequestIDHeader))
		require.Contains(t, buf.String(), "inside handler")
		require.Contains(t, buf.String(), recorder.Header().Get(RequestIDHeader))
	})

	t.Run("KeepsIncomingRequestID", func(t *testing.T) {
		buf.Reset()

		request := httptest.NewRequest(http.MethodGet, "/ping", nil)
		request.Header.Set(RequestIDHeader, "req-42")

		recorder := httptest.NewRecorder()
		server.ServeHTTP(recorder, request)

		require.Equal(t, "req-42", recorder.Header().Get(RequestIDHeader))
		require.Contains(t, buf.String(), `"request_id":"req-42"`)
		require.Contains(t, buf.String(), `"status_code":200`)
	})
}
