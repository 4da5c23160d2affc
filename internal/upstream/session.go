// Package upstream provides the shared connection scope every network
// sub-operation of one aggregation call runs under.
package upstream

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

// Session is a per-request connection scope. All concurrent fetches of one
// aggregation share it, and the aggregator closes it on every exit path.
type Session struct {
	client *fasthttp.Client
}

// NewSession opens a fresh connection scope.
func NewSession() *Session {
	return &Session{client: &fasthttp.Client{}}
}

// Do executes the request, honoring the context deadline when one is set and
// falling back to the supplied timeout otherwise.
func (s *Session) Do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		return s.client.DoDeadline(req, resp, deadline)
	}
	return s.client.DoTimeout(req, resp, timeout)
}

// Close releases the idle connections held by the scope.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}
