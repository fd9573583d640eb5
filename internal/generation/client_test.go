package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/platform/ctxutil"
)

func newTestClient(t *testing.T, url string, timeout, delay time.Duration) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: url, Timeout: timeout, RetryDelay: delay})
	require.NoError(t, err)
	return c
}

func TestGenerateReturnsTextVerbatim(t *testing.T) {
	var got content.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  ` + "```json\\n[]\\n```" + `  "}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second, 10*time.Millisecond)
	text, err := c.Generate(context.Background(), content.ActionQuiz, content.Payload{Topic: "Go", Count: 5})

	require.NoError(t, err)
	assert.Equal(t, "  ```json\n[]\n```  ", text)
	assert.Equal(t, content.ActionQuiz, got.Action)
	assert.Equal(t, "Go", got.Payload.Topic)
	assert.Equal(t, 5, got.Payload.Count)
}

func TestGenerateForwardsRequestID(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get(RequestIDHeader))
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second, 10*time.Millisecond)
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1", RequestID: "req-42"})
	_, err := c.Generate(ctx, content.ActionExplanation, content.Payload{Topic: "Go"})
	require.NoError(t, err)
	assert.Equal(t, "req-42", got.Load())

	_, err = c.Generate(context.Background(), content.ActionExplanation, content.Payload{Topic: "Go"})
	require.NoError(t, err)
	assert.Equal(t, "", got.Load())
}

func TestGenerateRetriesTimeoutExactlyOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	timeout := 60 * time.Millisecond
	delay := 40 * time.Millisecond
	c := newTestClient(t, srv.URL, timeout, delay)

	start := time.Now()
	_, err := c.Generate(context.Background(), content.ActionExplanation, content.Payload{Topic: "slow"})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 2, hits.Load())
	assert.GreaterOrEqual(t, elapsed, 2*timeout+delay)
	assert.Less(t, elapsed, 2*timeout+delay+time.Second)
}

func TestGenerateSucceedsOnRetryAfterTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"text":"second"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 50*time.Millisecond, 10*time.Millisecond)
	text, err := c.Generate(context.Background(), content.ActionExplanation, content.Payload{Topic: "x"})

	require.NoError(t, err)
	assert.Equal(t, "second", text)
	assert.EqualValues(t, 2, hits.Load())
}

func TestGenerateServerErrorCarriesDetails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to generate content","details":"quota exceeded"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second, 10*time.Millisecond)
	_, err := c.Generate(context.Background(), content.ActionExplanation, content.Payload{Topic: "x"})

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "quota exceeded", se.Details)
	assert.EqualValues(t, 1, hits.Load())
}

func TestGenerateServerErrorFallbacks(t *testing.T) {
	assert.Equal(t, "Missing Gemini API Key", parseServerError(500, []byte(`{"error":"Missing Gemini API Key"}`)).Details)
	assert.Equal(t, "Bad Gateway", parseServerError(502, []byte(`<html>oops</html>`)).Details)
	assert.Equal(t, "nested", parseServerError(400, []byte(`{"error":{"message":"nested","code":"x"}}`)).Details)
}

func TestGenerateNetworkErrorIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, time.Second, 500*time.Millisecond)
	start := time.Now()
	_, err := c.Generate(context.Background(), content.ActionExplanation, content.Payload{Topic: "x"})

	require.ErrorIs(t, err, ErrNetwork)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGenerateParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second, 10*time.Millisecond)
	_, err := c.Generate(context.Background(), content.ActionExplanation, content.Payload{Topic: "x"})

	require.ErrorIs(t, err, ErrParse)
}

func TestGenerateCallerCancellationIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, content.ActionExplanation, content.Payload{Topic: "x"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 1, hits.Load())
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	c, err := New(Options{BaseURL: "http://proxy.local/", Path: "api/gemini"})
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local/api/gemini", c.Endpoint())
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultRetryDelay, c.retryDelay)
}

func TestOutcomeLabels(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(ErrTimeout))
	assert.Equal(t, "network", outcome(ErrNetwork))
	assert.Equal(t, "parse", outcome(ErrParse))
	assert.Equal(t, "server", outcome(&ServerError{StatusCode: 500}))
	assert.Equal(t, "canceled", outcome(context.Canceled))
}
