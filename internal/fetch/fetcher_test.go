package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/newsprobe/internal/model"
)

func testConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent/1.0",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   2,
	}
}

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { fetchSleepFunc = orig })
	return &slept
}

const articlePage = `<html><head><title>Site | Senate passes bill</title>
<meta property="og:title" content="Senate passes tax bill">
<script>var x = "ignored";</script></head>
<body><nav><p>Home News Sports and a long navigation line that should vanish</p></nav>
<article><p>The Senate passed the bill on Tuesday.</p><p>Officials confirmed the vote.</p></article>
<footer>Copyright</footer></body></html>`

func TestFetch_SetsHeadersAndReadsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		if r.Header.Get("Accept") == "" {
			t.Error("missing Accept header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	page, err := NewFetcher(testConfig()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK || page.Truncated {
		t.Errorf("status=%d truncated=%v", page.StatusCode, page.Truncated)
	}
	if !strings.Contains(page.HTML, "Senate passed") {
		t.Error("body not read")
	}
}

func TestFetch_TruncatesAtCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 10
	page, err := NewFetcher(cfg).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.HTML) != 10 || !page.Truncated {
		t.Errorf("len=%d truncated=%v", len(page.HTML), page.Truncated)
	}
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewFetcher(testConfig()).Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if se.Retryable() {
		t.Error("404 must not be retryable")
	}
}

func TestFetch_RedirectCap(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(testConfig()).Fetch(context.Background(), srv.URL+"/")
	if err == nil || !strings.Contains(err.Error(), "redirects") {
		t.Fatalf("expected redirect error, got %v", err)
	}
}

func TestFetchWithRetry_RetriesServerErrors(t *testing.T) {
	slept := noSleep(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	page, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchWithRetry: %v", err)
	}
	if page.HTML != "ok" || calls.Load() != 3 {
		t.Errorf("html=%q calls=%d", page.HTML, calls.Load())
	}
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Errorf("backoff = %v", *slept)
	}
}

func TestFetchWithRetry_NoRetryOnClientError(t *testing.T) {
	noSleep(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchArticle_RespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	f := NewFetcher(cfg)

	_, err := f.FetchArticle(context.Background(), srv.URL+"/private/story")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v", err)
	}

	article, err := f.FetchArticle(context.Background(), srv.URL+"/news/senate-passes-tax-bill")
	if err != nil {
		t.Fatalf("FetchArticle: %v", err)
	}
	if article.Title != "Senate passes tax bill" {
		t.Errorf("title = %q", article.Title)
	}
}

func TestFetchArticle_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 binary"))
	}))
	defer srv.Close()

	_, err := NewFetcher(testConfig()).FetchArticle(context.Background(), srv.URL)
	if !errors.Is(err, ErrNotHTML) {
		t.Fatalf("expected ErrNotHTML, got %v", err)
	}
}

func TestRobots_MissingFileAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	allowed, _, err := NewRobotsChecker("newsprobe", srv.Client()).CanFetch(context.Background(), srv.URL+"/any")
	if err != nil || !allowed {
		t.Errorf("allowed=%v err=%v", allowed, err)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"newsprobe/0.1 (+https://example.com)": "newsprobe",
		"plain":                                "plain",
		"":                                     "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc_NoProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.example.com")

	req, _ := http.NewRequest(http.MethodGet, "http://news.example.org/story", nil)
	u, err := proxy(req)
	if err != nil || u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("proxied url = %v, err = %v", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://internal.example.com/story", nil)
	u, err = proxy(req)
	if err != nil || u != nil {
		t.Errorf("expected direct connection, got %v (%v)", u, err)
	}
}
