package media

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultMaxRedirects bounds the manual redirect loop.
	DefaultMaxRedirects = 3
	// upstream error bodies are excerpted to at most this many bytes.
	maxExcerptBytes = 200
)

// response headers copied from the origin verbatim.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Content-Disposition",
	"Cache-Control",
}

var suffixMIME = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".m3u8": "application/vnd.apple.mpegurl",
	".mp3":  "audio/mpeg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ProxyConfig carries the immutable settings a Proxy is built with.
type ProxyConfig struct {
	AllowedHosts []string
	MaxRedirects int
	Timeout      time.Duration
}

// Proxy relays media bytes from allow-listed origins to the client,
// preserving range semantics so players can seek.
type Proxy struct {
	allowed map[string]bool
	maxHops int
	client  *http.Client
}

func NewProxy(cfg ProxyConfig) *Proxy {
	allowed := make(map[string]bool, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed[h] = true
		}
	}

	maxHops := cfg.MaxRedirects
	if maxHops <= 0 {
		maxHops = DefaultMaxRedirects
	}

	// The timeout bounds connection setup and the wait for response
	// headers, never the body copy. Video streams routinely outlive any
	// fixed window, so a whole-exchange http.Client.Timeout would cut
	// them off mid-body. Once headers arrive the transfer runs until the
	// origin closes or the client disconnects.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.Timeout}).DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	return &Proxy{
		allowed: allowed,
		maxHops: maxHops,
		client: &http.Client{
			Transport: transport,
			// Redirects are followed manually so the hop count stays
			// bounded and relative Location headers resolve correctly.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// HostAllowed reports whether the URL's hostname is on the allow-list.
func (p *Proxy) HostAllowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return p.allowed[strings.ToLower(u.Hostname())]
}

// Stream fetches origin and relays the terminal response to w. The inbound
// Range header is forwarded verbatim. Returns an error only if nothing was
// written to w yet, so the caller can still emit a JSON error response.
func (p *Proxy) Stream(w http.ResponseWriter, r *http.Request, origin string) error {
	if !p.HostAllowed(origin) {
		return ErrHostNotAllowed
	}

	resp, finalURL, err := p.fetch(r, origin)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if excerpt, ok := markupExcerpt(resp); ok {
			return &UpstreamError{URL: finalURL, Status: resp.StatusCode, Excerpt: excerpt}
		}
		return &UpstreamError{URL: finalURL, Status: resp.StatusCode}
	}

	h := w.Header()
	for _, name := range passthroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", guessContentType(finalURL))
	}
	if h.Get("Accept-Ranges") == "" {
		h.Set("Accept-Ranges", "bytes")
	}
	// Media elements on other origins must be able to consume the stream.
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cross-Origin-Resource-Policy", "cross-origin")

	w.WriteHeader(resp.StatusCode)
	// Client disconnects cancel r.Context(), which aborts the upstream
	// request and unblocks this copy.
	io.Copy(w, resp.Body)
	return nil
}

// fetch performs the request against origin and follows up to maxHops
// redirects by hand. When the bound is exceeded the last response is
// returned as-is.
func (p *Proxy) fetch(r *http.Request, origin string) (*http.Response, string, error) {
	current, err := url.Parse(origin)
	if err != nil {
		return nil, origin, &UpstreamError{URL: origin, Status: 0, Excerpt: "invalid origin url"}
	}

	var resp *http.Response
	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, current.String(), err
		}
		if rng := r.Header.Get("Range"); rng != "" {
			req.Header.Set("Range", rng)
		}

		resp, err = p.client.Do(req)
		if err != nil {
			return nil, current.String(), &UpstreamError{URL: current.String(), Status: http.StatusBadGateway, Excerpt: err.Error()}
		}

		location := resp.Header.Get("Location")
		if resp.StatusCode < 300 || resp.StatusCode >= 400 || location == "" {
			return resp, current.String(), nil
		}
		if hop >= p.maxHops {
			return resp, current.String(), nil
		}

		next, err := current.Parse(location)
		if err != nil {
			return resp, current.String(), nil
		}
		// Redirect targets must pass the same allow-list as the origin,
		// otherwise a listed host could bounce the proxy anywhere.
		if !p.allowed[strings.ToLower(next.Hostname())] {
			resp.Body.Close()
			return nil, next.String(), ErrHostNotAllowed
		}
		resp.Body.Close()
		current = next
	}
}

// markupExcerpt reads a short excerpt of an error body when it is textual
// markup rather than media bytes.
func markupExcerpt(resp *http.Response) (string, bool) {
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "text/") && !strings.Contains(ct, "xml") && !strings.Contains(ct, "json") {
		return "", false
	}

	buf := make([]byte, maxExcerptBytes)
	n, _ := io.ReadFull(resp.Body, buf)
	excerpt := strings.TrimSpace(string(buf[:n]))
	if excerpt == "" {
		return "", false
	}
	return excerpt, true
}

func guessContentType(rawURL string) string {
	u, err := url.Parse(rawURL)
	path := rawURL
	if err == nil {
		path = u.Path
	}
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if mime, ok := suffixMIME[strings.ToLower(path[idx:])]; ok {
			return mime
		}
	}
	return "application/octet-stream"
}
