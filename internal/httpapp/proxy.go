package httpapp

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"time"
)

// maxProxyBodyBytes caps the forwarded request body (spec.md §6: "up
// to 10 MiB").
const maxProxyBodyBytes = 10 * 1024 * 1024

// proxyTransport is shared across all proxied requests and accepts
// self-signed upstream certificates — a dev-mode convenience named
// explicitly in SPEC_FULL.md §7 and grounded on
// original_source/src/server.rs's reqwest::Client::builder()
// .danger_accept_invalid_certs(true).
var proxyTransport = &http.Transport{
	TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
}

var proxyClient = &http.Client{
	Transport: proxyTransport,
	Timeout:   30 * time.Second,
}

// Proxy forwards requests to a single upstream target, preserving
// method, headers (minus Host), query string, and body (spec.md §6).
//
// Grounded on original_source/src/server.rs's proxy_handler; adapted
// to net/http's RoundTripper model instead of reqwest's builder API.
type Proxy struct {
	target string
}

// NewProxy returns a Proxy forwarding to target (e.g.
// "http://localhost:3000").
func NewProxy(target string) *Proxy {
	return &Proxy{target: target}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	targetURL := p.target + r.URL.Path
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		buf, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBodyBytes+1))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadGateway)
			return
		}
		if len(buf) > maxProxyBodyBytes {
			http.Error(w, "Request body too large", http.StatusBadRequest)
			return
		}
		body = bytes.NewReader(buf)
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, body)
	if err != nil {
		http.Error(w, "Failed to build proxy request", http.StatusBadGateway)
		return
	}
	for key, values := range r.Header {
		if key == "Host" {
			continue
		}
		for _, v := range values {
			outReq.Header.Add(key, v)
		}
	}

	resp, err := proxyClient.Do(outReq)
	if err != nil {
		http.Error(w, "Proxy error: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}
