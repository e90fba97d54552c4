package media

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestProxy(t *testing.T, upstream *httptest.Server, maxHops int) *Proxy {
	t.Helper()
	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	return NewProxy(ProxyConfig{
		AllowedHosts: []string{u.Hostname()},
		MaxRedirects: maxHops,
		Timeout:      5 * time.Second,
	})
}

func TestStreamRangePassthrough(t *testing.T) {
	payload := "0123456789"
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=2-5" {
			t.Errorf("upstream saw Range %q", got)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Range", "bytes 2-5/10")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(payload[2:6]))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, 3)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	req.Header.Set("Range", "bytes=2-5")
	rr := httptest.NewRecorder()

	if err := p.Stream(rr, req, upstream.URL+"/clip.mp4"); err != nil {
		t.Fatalf("stream: %v", err)
	}

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rr.Code)
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Fatalf("Content-Range = %q", got)
	}
	if got := rr.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges = %q, want bytes", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
	if rr.Body.String() != "2345" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestStreamHostNotAllowed(t *testing.T) {
	fetched := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = true
	}))
	defer upstream.Close()

	p := NewProxy(ProxyConfig{AllowedHosts: []string{"cdn.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	err := p.Stream(rr, req, upstream.URL+"/file.mp4")
	if !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("err = %v, want ErrHostNotAllowed", err)
	}
	if fetched {
		t.Fatal("upstream must not be fetched for a disallowed host")
	}
}

// A transfer that takes longer than the configured timeout must still be
// relayed in full. The timeout bounds the wait for response headers, not
// the body copy.
func TestStreamSlowBodyNotTruncated(t *testing.T) {
	const chunk = "chunk-data"
	const chunks = 4
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		fl := w.(http.Flusher)
		for i := 0; i < chunks; i++ {
			w.Write([]byte(chunk))
			fl.Flush()
			time.Sleep(150 * time.Millisecond)
		}
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	p := NewProxy(ProxyConfig{
		AllowedHosts: []string{u.Hostname()},
		Timeout:      200 * time.Millisecond,
	})

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	if err := p.Stream(rr, req, upstream.URL+"/long.mp4"); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got := rr.Body.Len(); got != chunks*len(chunk) {
		t.Fatalf("relayed %d bytes, want %d; transfer was cut short", got, chunks*len(chunk))
	}
}

func TestStreamHeaderWaitTimesOut(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	p := NewProxy(ProxyConfig{
		AllowedHosts: []string{u.Hostname()},
		Timeout:      100 * time.Millisecond,
	})

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	err = p.Stream(rr, req, upstream.URL+"/stalled.mp4")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("client received %d bytes", rr.Body.Len())
	}
}

func TestStreamFollowsRelativeRedirect(t *testing.T) {
	var upstream *httptest.Server
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/final.mp4", http.StatusFound)
		case "/final.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("media-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, 3)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	if err := p.Stream(rr, req, upstream.URL+"/start"); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if rr.Body.String() != "media-bytes" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestStreamRedirectBound(t *testing.T) {
	hops := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("/hop-%d", hops), http.StatusFound)
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, 3)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	if err := p.Stream(rr, req, upstream.URL+"/loop"); err != nil {
		t.Fatalf("stream: %v", err)
	}

	// initial request plus maxHops follows, then the last response is
	// relayed as-is.
	if hops != 4 {
		t.Fatalf("upstream saw %d requests, want 4", hops)
	}
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
}

func TestStreamRedirectToDisallowedHost(t *testing.T) {
	requests := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Redirect(w, r, "https://evil.example.org/elsewhere.mp4", http.StatusFound)
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, 3)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	// The listed origin bounces to a host outside the allow-list. The hop
	// must be rejected without being fetched.
	err := p.Stream(rr, req, upstream.URL+"/start")
	if !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("err = %v, want ErrHostNotAllowed", err)
	}
	if requests != 1 {
		t.Fatalf("upstream saw %d requests, want 1", requests)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("client received %d bytes", rr.Body.Len())
	}
}

func TestStreamInfersContentTypeFromSuffix(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // suppress sniffing
		w.Write([]byte("x"))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, 3)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	if err := p.Stream(rr, req, upstream.URL+"/movie.mp4"); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got := rr.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("Content-Type = %q, want video/mp4", got)
	}
}

func TestStreamUpstreamMarkupError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><body>Access denied by origin</body></html>"))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, 3)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()

	err := p.Stream(rr, req, upstream.URL+"/gone.mp4")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if upErr.Status != http.StatusForbidden {
		t.Fatalf("status = %d", upErr.Status)
	}
	if !strings.Contains(upErr.Excerpt, "Access denied") {
		t.Fatalf("excerpt = %q", upErr.Excerpt)
	}
	if len(upErr.Excerpt) > maxExcerptBytes {
		t.Fatalf("excerpt too long: %d bytes", len(upErr.Excerpt))
	}
	// Nothing of the markup body may reach the client.
	if rr.Body.Len() != 0 {
		t.Fatalf("client received %d bytes", rr.Body.Len())
	}
}

func TestGuessContentType(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example.com/a/b.webm":        "video/webm",
		"https://cdn.example.com/a/clip.MOV":      "video/quicktime",
		"https://cdn.example.com/stream.m3u8?x=1": "application/vnd.apple.mpegurl",
		"https://cdn.example.com/poster.jpeg":     "image/jpeg",
		"https://cdn.example.com/noext":           "application/octet-stream",
	}
	for rawURL, want := range tests {
		if got := guessContentType(rawURL); got != want {
			t.Errorf("guessContentType(%q) = %q, want %q", rawURL, got, want)
		}
	}
}
