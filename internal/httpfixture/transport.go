package httpfixture

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Transport is an http.RoundTripper that answers requests from a
// FixtureProvider. Requests with no matching fixture go to Fallback, or
// fail when Fallback is nil so hermetic runs never reach the network.
type Transport struct {
	Provider FixtureProvider
	Fallback http.RoundTripper
}

// NewTransport creates a hermetic fixture transport
func NewTransport(provider FixtureProvider) *Transport {
	return &Transport{Provider: provider}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var fixture *Fixture
	if t.Provider != nil {
		fixture = t.Provider.GetFixture(req)
	}

	if fixture == nil {
		if t.Fallback != nil {
			return t.Fallback.RoundTrip(req)
		}
		return nil, fmt.Errorf("no fixture for %s %s", req.Method, req.URL)
	}

	if fixture.Delay != nil {
		timer := time.NewTimer(*fixture.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	status := fixture.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	header := make(http.Header, len(fixture.Headers))
	for k, v := range fixture.Headers {
		header.Set(k, v)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(fixture.Body)),
		ContentLength: int64(len(fixture.Body)),
		Request:       req,
	}, nil
}
