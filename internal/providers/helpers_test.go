package providers

import (
	"net/http"
	"testing"
	"time"
)

// rewriteTransport rewrites all request URLs to point at the test server.
type rewriteTransport struct {
	base    http.RoundTripper
	baseURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = t.baseURL[len("http://"):]
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// fastRetries shrinks the back-off for the duration of a test.
func fastRetries(t *testing.T) {
	t.Helper()
	orig := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = orig })
}

func testRequest() Request {
	return Request{
		Context: []Segment{
			{Name: "protocol", Text: "protocol text", Cacheable: true},
			{Name: "patterns", Text: "pattern text", Cacheable: true},
			{Name: "framework", Text: "framework text", Cacheable: true},
		},
		Task:      "review this",
		MaxTokens: 10,
		JSON:      true,
	}
}
