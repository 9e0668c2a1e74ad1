package httpx_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/wrappers"
	"github.com/byte4ever/wrappers/httpx"
)

type payload struct {
	Msg string `json:"msg"`
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body.Error
}

// ---------------------------------------------------------------------------
// StatusOf
// ---------------------------------------------------------------------------

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "status error", err: httpx.Error(http.StatusTeapot, nil), want: http.StatusTeapot},
		{name: "wrapped status error", err: fmt.Errorf("x: %w", httpx.Error(http.StatusNotFound, errors.New("gone"))), want: http.StatusNotFound},
		{name: "rate limited", err: wrappers.ErrRateLimited, want: http.StatusTooManyRequests},
		{name: "bulkhead", err: wrappers.ErrBulkheadFull, want: http.StatusServiceUnavailable},
		{name: "timeout", err: wrappers.ErrTimeout, want: http.StatusGatewayTimeout},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, httpx.StatusOf(tt.err))
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("missing id")
	err := httpx.Error(http.StatusBadRequest, cause)

	require.Equal(t, "http status 400: missing id", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "http status 204", httpx.Error(http.StatusNoContent, nil).Error())
}

// ---------------------------------------------------------------------------
// Serve
// ---------------------------------------------------------------------------

func TestServeEncodesResult(t *testing.T) {
	t.Parallel()

	h := httpx.Serve(func(r *http.Request, _ http.ResponseWriter) (payload, error) {
		return payload{Msg: "hi " + r.URL.Query().Get("name")}, nil
	})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/?name=ada", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"msg":"hi ada"}`, rec.Body.String())
}

func TestServeMapsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "rejection", err: wrappers.ErrRateLimited, wantCode: http.StatusTooManyRequests, wantMsg: "rate limited"},
		{name: "status error", err: httpx.Error(http.StatusConflict, errors.New("exists")), wantCode: http.StatusConflict, wantMsg: "http status 409: exists"},
		{name: "internal", err: errors.New("db password wrong"), wantCode: http.StatusInternalServerError, wantMsg: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := httpx.Serve(func(*http.Request, http.ResponseWriter) (payload, error) {
				return payload{}, tt.err
			})

			rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			require.Equal(t, tt.wantMsg, errorBody(t, rec))
		})
	}
}

func TestServeLeavesWrittenResponse(t *testing.T) {
	t.Parallel()

	h := httpx.Serve(func(_ *http.Request, w http.ResponseWriter) (payload, error) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("custom"))

		return payload{Msg: "ignored"}, errors.New("also ignored")
	})

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "custom", rec.Body.String())
}

// ---------------------------------------------------------------------------
// WithTrace contributes a trace ID
// ---------------------------------------------------------------------------

func tracedHandler() http.Handler {
	p := wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]())

	return httpx.Serve(p.Handle(func(r *httpx.Traced, _ http.ResponseWriter) (payload, error) {
		if httpx.TraceIDFrom(r.Context()) != r.TraceID() {
			return payload{}, errors.New("context trace ID mismatch")
		}

		return payload{Msg: r.TraceID()}, nil
	}))
}

func TestWithTraceReusesHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpx.TraceHeader, "abc-123")

	rec := do(t, tracedHandler(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc-123", rec.Header().Get(httpx.TraceHeader))
	require.JSONEq(t, `{"msg":"abc-123"}`, rec.Body.String())
}

func TestWithTraceGeneratesID(t *testing.T) {
	t.Parallel()

	rec := do(t, tracedHandler(), httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get(httpx.TraceHeader)
	require.Len(t, id, 32)
	require.JSONEq(t, fmt.Sprintf(`{"msg":%q}`, id), rec.Body.String())
	require.NotEqual(t, httpx.GenerateTraceID(), httpx.GenerateTraceID())
	require.Empty(t, httpx.TraceIDFrom(context.Background()))
}

// ---------------------------------------------------------------------------
// WithBasicAuth depends on Traced and contributes a principal
// ---------------------------------------------------------------------------

func authHandler() http.Handler {
	p := wrappers.Then(
		wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]()),
		httpx.WithBasicAuth[payload]("demo", httpx.StaticCredentials("ada", "s3cret")),
	)

	return httpx.Serve(p.Handle(func(r *httpx.Authenticated, _ http.ResponseWriter) (payload, error) {
		return payload{Msg: r.Principal() + "@" + r.TraceID()}, nil
	}))
}

func TestWithBasicAuthAccepts(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpx.TraceHeader, "t1")
	req.SetBasicAuth("ada", "s3cret")

	rec := do(t, authHandler(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"msg":"ada@t1"}`, rec.Body.String())
}

func TestWithBasicAuthRejects(t *testing.T) {
	t.Parallel()

	for name, setup := range map[string]func(*http.Request){
		"missing":        func(*http.Request) {},
		"wrong password": func(r *http.Request) { r.SetBasicAuth("ada", "nope") },
		"wrong user":     func(r *http.Request) { r.SetBasicAuth("bob", "s3cret") },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)

			rec := do(t, authHandler(), req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, `Basic realm="demo"`, rec.Header().Get("WWW-Authenticate"))
			require.NotEmpty(t, rec.Header().Get(httpx.TraceHeader))
			require.Contains(t, errorBody(t, rec), "unauthorized")
		})
	}
}

// ---------------------------------------------------------------------------
// Stock middleware works on contributed shapes
// ---------------------------------------------------------------------------

func TestTimeoutOnTracedRequest(t *testing.T) {
	t.Parallel()

	p := wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]()).
		Use(wrappers.Timeout[*httpx.Traced, http.ResponseWriter, payload](20*time.Millisecond, nil))

	h := httpx.Serve(p.Handle(func(r *httpx.Traced, _ http.ResponseWriter) (payload, error) {
		if r.TraceID() == "" {
			return payload{}, errors.New("trace lost")
		}

		<-r.Context().Done()

		return payload{}, r.Context().Err()
	}))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, "timeout", errorBody(t, rec))
}

func TestTracedWithContextKeepsShape(t *testing.T) {
	t.Parallel()

	var seen *httpx.Authenticated

	p := wrappers.Then(
		wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]()),
		httpx.WithBasicAuth[payload]("r", func(string, string) bool { return true }),
	).Use(wrappers.Timeout[*httpx.Authenticated, http.ResponseWriter, payload](time.Minute, nil))

	h := p.Handle(func(r *httpx.Authenticated, _ http.ResponseWriter) (payload, error) {
		seen = r
		return payload{}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpx.TraceHeader, "keep")
	req.SetBasicAuth("kim", "x")

	_, err := h(req, httptest.NewRecorder())
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, "kim", seen.Principal())
	require.Equal(t, "keep", seen.TraceID())

	_, hasDeadline := seen.Context().Deadline()
	require.True(t, hasDeadline)
}

func TestCacheKeys(t *testing.T) {
	t.Parallel()

	var traced *httpx.Traced

	var authed *httpx.Authenticated

	p := wrappers.Then(
		wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]()),
		httpx.WithBasicAuth[payload]("r", func(string, string) bool { return true }),
	)

	h := p.Handle(func(r *httpx.Authenticated, _ http.ResponseWriter) (payload, error) {
		traced, authed = r.Traced, r
		return payload{}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/items?page=2", nil)
	req.SetBasicAuth("kim", "x")

	_, err := h(req, httptest.NewRecorder())
	require.NoError(t, err)

	key, ok := traced.CacheKey()
	require.True(t, ok)
	require.Equal(t, "GET /items?page=2", key)

	key, ok = authed.CacheKey()
	require.True(t, ok)
	require.Equal(t, "kim|GET /items?page=2", key)

	post := httptest.NewRequest(http.MethodPost, "/items", nil)
	post.SetBasicAuth("kim", "x")

	_, err = h(post, httptest.NewRecorder())
	require.NoError(t, err)

	_, ok = authed.CacheKey()
	require.False(t, ok)
}

// ---------------------------------------------------------------------------
// FromStd bridges net/http middleware
// ---------------------------------------------------------------------------

func TestFromStdCarriesResult(t *testing.T) {
	t.Parallel()

	applied := 0

	std := func(next http.Handler) http.Handler {
		applied++

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Std", "yes")
			next.ServeHTTP(w, r)
		})
	}

	sentinel := errors.New("after std")

	h := httpx.FromStd[payload](std)(func(r *http.Request, _ http.ResponseWriter) (payload, error) {
		if r.URL.Path == "/fail" {
			return payload{}, sentinel
		}

		return payload{Msg: "through"}, nil
	})

	rec := httptest.NewRecorder()

	val, err := h(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, err)
	require.Equal(t, "through", val.Msg)
	require.Equal(t, "yes", rec.Header().Get("X-Std"))

	_, err = h(httptest.NewRequest(http.MethodGet, "/fail", nil), httptest.NewRecorder())
	require.ErrorIs(t, err, sentinel)

	require.Equal(t, 1, applied)
}

func TestFromStdShortCircuit(t *testing.T) {
	t.Parallel()

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "denied", http.StatusForbidden)
		})
	}

	called := false

	h := httpx.Serve(httpx.FromStd[payload](deny)(func(*http.Request, http.ResponseWriter) (payload, error) {
		called = true
		return payload{}, nil
	}))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))

	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "denied")
}

// ---------------------------------------------------------------------------
// AccessLog
// ---------------------------------------------------------------------------

func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p := wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]()).
		Use(httpx.AccessLog[*httpx.Traced, payload](logger))

	h := httpx.Serve(p.Handle(func(*httpx.Traced, http.ResponseWriter) (payload, error) {
		return payload{}, wrappers.ErrBulkheadFull
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpx.TraceHeader, "log-1")

	rec := do(t, h, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "request completed", line["msg"])
	require.Equal(t, "log-1", line["trace_id"])
	require.EqualValues(t, http.StatusServiceUnavailable, line["status"])
}

func TestAccessLogRecordsWrittenStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p := wrappers.Then(wrappers.Begin[*http.Request, http.ResponseWriter, payload](), httpx.WithTrace[payload]()).
		Use(httpx.AccessLog[*httpx.Traced, payload](logger))

	h := httpx.Serve(p.Handle(func(_ *httpx.Traced, w http.ResponseWriter) (payload, error) {
		w.WriteHeader(http.StatusCreated)
		return payload{}, nil
	}))

	rec := do(t, h, httptest.NewRequest(http.MethodPut, "/", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.EqualValues(t, http.StatusCreated, line["status"])
}

// ---------------------------------------------------------------------------
// ResponseCapture
// ---------------------------------------------------------------------------

func TestResponseCapture(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rc := httpx.NewResponseCapture(rec)

	require.False(t, rc.Written())
	require.Equal(t, http.StatusOK, rc.Status())

	rc.WriteHeader(http.StatusNotFound)
	rc.WriteHeader(http.StatusOK)

	require.True(t, rc.Written())
	require.Equal(t, http.StatusNotFound, rc.Status())
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Same(t, http.ResponseWriter(rec), rc.Unwrap())
}
