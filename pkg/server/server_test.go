package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"relaygo/pkg/config"
	"relaygo/pkg/webhook"
)

type fakeUpdates struct {
	mu     sync.Mutex
	bodies []string
	err    error
	panic  bool
}

func (f *fakeUpdates) HandleUpdate(ctx context.Context, body []byte) error {
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, string(body))
	return f.err
}

type fakeResetter struct {
	calls  int
	result webhook.Result
}

func (f *fakeResetter) Reset(ctx context.Context) webhook.Result {
	f.calls++
	return f.result
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *fakeUpdates, *fakeResetter) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Webhook.Secret = "s3cret"
	if mutate != nil {
		mutate(cfg)
	}
	updates := &fakeUpdates{}
	resetter := &fakeResetter{result: webhook.Result{OK: true, URL: "https://relay.example.com/webhook"}}
	srv := httptest.NewServer(NewServer(cfg, updates, resetter).Handler())
	t.Cleanup(srv.Close)
	return srv, updates, resetter
}

func do(t *testing.T, method, url, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func TestRootAlwaysOK(t *testing.T) {
	srv, _, _ := newTestServer(t, func(c *config.Config) {
		c.Webhook.Secret = ""
		c.Webhook.ExternalURL = ""
	})

	resp, body := do(t, http.MethodGet, srv.URL+"/", "", nil)
	if resp.StatusCode != http.StatusOK || body != "Bot is running" {
		t.Fatalf("GET / = %d %q", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK || body != "OK" {
		t.Fatalf("GET /health = %d %q", resp.StatusCode, body)
	}
	resp, _ = do(t, http.MethodGet, srv.URL+"/missing", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /missing = %d", resp.StatusCode)
	}
}

func TestWebhookAcknowledges(t *testing.T) {
	srv, updates, _ := newTestServer(t, nil)

	for _, body := range []string{`{"message":{"message_id":1,"chat":{"id":2},"text":"hi"}}`, `not json`, ``} {
		resp, got := do(t, http.MethodPost, srv.URL+"/webhook", body, nil)
		if resp.StatusCode != http.StatusOK || strings.TrimSpace(got) != `{"ok":true}` {
			t.Fatalf("POST /webhook %q = %d %q", body, resp.StatusCode, got)
		}
	}
	if len(updates.bodies) != 3 || updates.bodies[1] != "not json" {
		t.Fatalf("bodies forwarded = %q", updates.bodies)
	}
}

func TestWebhookInternalFailure(t *testing.T) {
	srv, updates, _ := newTestServer(t, nil)
	updates.err = errors.New("worker pool closed")

	resp, got := do(t, http.MethodPost, srv.URL+"/webhook", `{}`, nil)
	if resp.StatusCode != http.StatusInternalServerError || strings.TrimSpace(got) != `{"ok":false}` {
		t.Fatalf("POST /webhook = %d %q", resp.StatusCode, got)
	}
}

func TestWebhookRecoversPanic(t *testing.T) {
	srv, updates, _ := newTestServer(t, nil)
	updates.panic = true

	resp, got := do(t, http.MethodPost, srv.URL+"/webhook", `{}`, nil)
	if resp.StatusCode != http.StatusInternalServerError || strings.TrimSpace(got) != `{"ok":false}` {
		t.Fatalf("POST /webhook = %d %q", resp.StatusCode, got)
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	srv, updates, _ := newTestServer(t, nil)

	resp, _ := do(t, http.MethodGet, srv.URL+"/webhook", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /webhook = %d", resp.StatusCode)
	}
	if len(updates.bodies) != 0 {
		t.Fatalf("handler should not run")
	}
}

func TestResetWebhookAuth(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     map[string]string
		wantStatus int
		wantCalls  int
	}{
		{"missing header", "s3cret", nil, http.StatusForbidden, 0},
		{"wrong token", "s3cret", map[string]string{authHeader: "guess"}, http.StatusForbidden, 0},
		{"no secret configured", "", map[string]string{authHeader: ""}, http.StatusForbidden, 0},
		{"correct token", "s3cret", map[string]string{authHeader: "s3cret"}, http.StatusOK, 1},
	}

	for _, tt := range tests {
		srv, _, resetter := newTestServer(t, func(c *config.Config) { c.Webhook.Secret = tt.secret })
		resp, body := do(t, http.MethodPost, srv.URL+"/reset-webhook", "", tt.header)
		if resp.StatusCode != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d (%q)", tt.name, resp.StatusCode, tt.wantStatus, body)
		}
		if resetter.calls != tt.wantCalls {
			t.Fatalf("%s: reset calls = %d, want %d", tt.name, resetter.calls, tt.wantCalls)
		}
		if tt.wantStatus == http.StatusOK {
			var res webhook.Result
			if err := json.Unmarshal([]byte(body), &res); err != nil {
				t.Fatalf("%s: decode %q: %v", tt.name, body, err)
			}
			if !res.OK || res.URL != "https://relay.example.com/webhook" {
				t.Fatalf("%s: result = %+v", tt.name, res)
			}
		}
	}
}

func TestResetWebhookRateLimited(t *testing.T) {
	srv, _, resetter := newTestServer(t, func(c *config.Config) {
		c.Webhook.ResetRatePerMinute = 1
		c.Webhook.ResetBurst = 2
	})
	header := map[string]string{authHeader: "s3cret"}

	for i := 0; i < 2; i++ {
		if resp, _ := do(t, http.MethodPost, srv.URL+"/reset-webhook", "", header); resp.StatusCode != http.StatusOK {
			t.Fatalf("call %d status = %d", i, resp.StatusCode)
		}
	}
	resp, _ := do(t, http.MethodPost, srv.URL+"/reset-webhook", "", header)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third call status = %d, want 429", resp.StatusCode)
	}
	if resetter.calls != 2 {
		t.Fatalf("reset calls = %d, want 2", resetter.calls)
	}
}

func TestFailedResetAttemptsDoNotLockOutOperator(t *testing.T) {
	srv, _, resetter := newTestServer(t, func(c *config.Config) {
		c.Webhook.ResetRatePerMinute = 1
		c.Webhook.ResetBurst = 2
	})
	bad := map[string]string{authHeader: "guess"}

	wantStatus := []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i, want := range wantStatus {
		if resp, _ := do(t, http.MethodPost, srv.URL+"/reset-webhook", "", bad); resp.StatusCode != want {
			t.Fatalf("bad attempt %d status = %d, want %d", i, resp.StatusCode, want)
		}
	}

	resp, body := do(t, http.MethodPost, srv.URL+"/reset-webhook", "", map[string]string{authHeader: "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("operator status = %d (%q), want 200", resp.StatusCode, body)
	}
	if resetter.calls != 1 {
		t.Fatalf("reset calls = %d, want 1", resetter.calls)
	}
}
