// Package client contains the upstream API fetchers. Every method performs a
// single HTTP call inside a caller-supplied session scope and reports its
// outcome as a tagged retry.Result: transport faults and unexpected shapes
// both degrade to "no result" and stay retryable, while anything escaping a
// method is a programming fault.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/upstream"
	"github.com/PeRDy/barrenero-api/pkg/metrics"
)

// doGet issues one GET request and returns the response body on a 2xx
// status. On any transport fault it returns a nil body together with the
// failed result to hand back to the caller.
func doGet[T any](
	ctx context.Context,
	logger *zap.Logger,
	session *upstream.Session,
	limiter *rate.Limiter,
	timeout time.Duration,
	source string,
	url string,
) ([]byte, retry.Result[T]) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, transient[T](logger, source, url, fmt.Errorf("rate limiter wait: %w", err))
		}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentType("application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := session.Do(ctx, req, resp, timeout); err != nil {
		return nil, transient[T](logger, source, url, fmt.Errorf("execute request: %w", err))
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return nil, transient[T](logger, source, url, fmt.Errorf("request failed with status %d", status))
	}

	// The response buffer is recycled on release.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, retry.Result[T]{}
}

func transient[T any](logger *zap.Logger, source, url string, err error) retry.Result[T] {
	metrics.ObserveUpstream(source, retry.OutcomeTransient.String())
	logger.Warn("Upstream request failed",
		zap.String("source", source),
		zap.String("url", url),
		zap.Error(err))
	return retry.Transient[T](err)
}

func structural[T any](logger *zap.Logger, source, url string, err error) retry.Result[T] {
	metrics.ObserveUpstream(source, retry.OutcomeStructural.String())
	logger.Warn("Unexpected upstream response shape",
		zap.String("source", source),
		zap.String("url", url),
		zap.Error(err))
	return retry.Structural[T](err)
}
