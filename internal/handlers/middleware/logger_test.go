package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type logRecord struct {
	level string
	msg   string
	args  map[string]any
}

// Records every call grouped by level
type recordingLogger struct {
	records []logRecord
}

func (l *recordingLogger) record(level string, msg string, v ...any) {
	args := make(map[string]any, len(v)/2)
	for i := 0; i+1 < len(v); i += 2 {
		args[v[i].(string)] = v[i+1]
	}
	l.records = append(l.records, logRecord{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Info(msg string, v ...any)  { l.record("info", msg, v...) }
func (l *recordingLogger) Warn(msg string, v ...any)  { l.record("warn", msg, v...) }
func (l *recordingLogger) Error(msg string, v ...any) { l.record("error", msg, v...) }

func TestLoggerMiddleware(t *testing.T) {
	serve := func(t *testing.T, status int, requestID string) (*http.Response, string, *recordingLogger) {
		t.Helper()

		l := &recordingLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		srv := httptest.NewServer(LoggerMiddleware(l)(h))
		defer srv.Close()

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		if requestID != "" {
			req.Header.Set(RequestIDHeader, requestID)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		defer resp.Body.Close() // nolint:errcheck
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")

		return resp, string(body), l
	}

	t.Run("logs request", func(t *testing.T) {
		resp, body, l := serve(t, http.StatusOK, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "hi", body)

		require.Len(t, l.records, 1, "logger should be called once")
		rec := l.records[0]
		require.Equal(t, "info", rec.level)
		require.Equal(t, "got HTTP request", rec.msg)
		require.Equal(t, "GET", rec.args["method"])
		require.Equal(t, "/test", rec.args["uri"])
		require.Equal(t, "127.0.0.1", rec.args["remote"])
		require.NotEmpty(t, rec.args["duration"], "duration should not be empty")
		require.Equal(t, http.StatusOK, rec.args["status"])
		require.Equal(t, 2, rec.args["size"], "size should be 2 (length of 'hi')")

		requestID := resp.Header.Get(RequestIDHeader)
		require.NoError(t, uuid.Validate(requestID), "generated request id should be uuid")
		require.Equal(t, requestID, rec.args["request_id"])
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		resp, _, l := serve(t, http.StatusOK, "req-42")

		require.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
		require.Equal(t, "req-42", l.records[0].args["request_id"])
	})

	t.Run("level depends on status", func(t *testing.T) {
		tests := []struct {
			status int
			level  string
		}{
			{http.StatusCreated, "info"},
			{http.StatusTeapot, "warn"},
			{http.StatusUnauthorized, "warn"},
			{http.StatusBadGateway, "error"},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				resp, _, l := serve(t, tt.status, "")

				require.Equal(t, tt.status, resp.StatusCode)
				require.Len(t, l.records, 1)
				require.Equal(t, tt.level, l.records[0].level)
				require.Equal(t, tt.status, l.records[0].args["status"])
			})
		}
	})
}
