package livereload

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/hotplate-dev/hotplate/internal/clientagent"
)

// Injector is HTTP middleware that rewrites every text/html response to
// embed the client agent script (spec.md §4.3, C3). It buffers the
// full response body — acceptable for a development server, never a
// production one (spec.md §1, Non-goals).
//
// Grounded on the teacher's wrapper/WrapResponseWriter buffering
// approach (handler.go, wrap_writer.go), simplified to the single
// buffering writer this middleware actually needs and extended to the
// three-tier </body>/</html>/end-of-document fallback spec.md §4.3
// requires (the teacher only tried </body>, then <body ...>).
type Injector struct {
	Script string
}

// NewInjector returns an Injector embedding the client agent for the
// given WebSocket endpoint path.
func NewInjector(wsEndpoint string) *Injector {
	return &Injector{Script: clientagent.InjectedScript(wsEndpoint)}
}

// Wrap returns next wrapped with the injection middleware.
func (inj *Injector) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		buf := &bufferingWriter{ResponseWriter: w, body: &bytes.Buffer{}}
		next.ServeHTTP(buf, r)

		contentType := w.Header().Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(buf.body.Bytes())
		}

		if !strings.Contains(contentType, "text/html") {
			buf.flush()
			return
		}

		body, err := inj.inject(buf.body.Bytes())
		if err != nil {
			// On buffer/rewrite failure, emit an empty body with the
			// original headers (minus Content-Length) rather than
			// propagate an error (spec.md §4.3, §7(c)).
			w.Header().Del("Content-Length")
			w.WriteHeader(buf.statusOr(http.StatusOK))
			return
		}

		w.Header().Del("Content-Length")
		w.WriteHeader(buf.statusOr(http.StatusOK))
		_, _ = w.Write(body)
	})
}

// inject implements spec.md §4.3 step 2: locate the last occurrence of
// </body>; failing that, last </html>; failing that, end of document.
func (inj *Injector) inject(src []byte) ([]byte, error) {
	script := []byte(inj.Script)

	if idx := bytes.LastIndex(src, []byte("</body>")); idx != -1 {
		return spliceAt(src, script, idx), nil
	}
	if idx := bytes.LastIndex(src, []byte("</html>")); idx != -1 {
		return spliceAt(src, script, idx), nil
	}
	out := make([]byte, 0, len(src)+len(script))
	out = append(out, src...)
	out = append(out, script...)
	return out, nil
}

func spliceAt(src, script []byte, idx int) []byte {
	out := make([]byte, 0, len(src)+len(script))
	out = append(out, src[:idx]...)
	out = append(out, script...)
	out = append(out, src[idx:]...)
	return out
}

// bufferingWriter buffers a response body so the injector can rewrite
// it before anything reaches the network. It intentionally implements
// only http.ResponseWriter: the injector always needs to see the full
// body, so pass-through Flusher/Hijacker support (which the teacher's
// wrap_writer.go provides for non-HTML responses) is not needed here —
// non-HTML responses are flushed verbatim via flush() below instead.
type bufferingWriter struct {
	http.ResponseWriter
	body        *bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferingWriter) WriteHeader(code int) {
	if !b.wroteHeader {
		b.status = code
		b.wroteHeader = true
	}
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferingWriter) statusOr(def int) int {
	if b.status == 0 {
		return def
	}
	return b.status
}

// flush writes the buffered, unmodified body straight through — used
// for non-HTML responses that the injector does not rewrite.
func (b *bufferingWriter) flush() {
	b.ResponseWriter.WriteHeader(b.statusOr(http.StatusOK))
	_, _ = b.ResponseWriter.Write(b.body.Bytes())
}
