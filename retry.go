// Copyright (c) 2017-2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"bytes"
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// maxErrorBodyBytes caps the response body kept on a TransportError.
const maxErrorBodyBytes = 8 * 1024

var (
	random *rand.Rand
	// randomMu guards random, which is shared by every Client.
	randomMu sync.Mutex
)

func init() {
	random = rand.New(rand.NewSource(time.Now().UnixNano()))
}

func randomInt63n(n int64) int64 {
	randomMu.Lock()
	defer randomMu.Unlock()
	return random.Int63n(n)
}

// maxBackoffShift bounds the exponent of exponentialBackoff.
const maxBackoffShift = 30

// waitAlgo computes the delay before the next attempt after a 503.
type waitAlgo struct {
	base   time.Duration // delay of the first retry
	jitter bool
}

func newWaitAlgo(base time.Duration) *waitAlgo {
	return &waitAlgo{base: base, jitter: true}
}

// exponentialBackoff returns 2^attempt * base, saturating at the largest
// representable duration.
func exponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	factor := time.Duration(int64(1) << uint(attempt))
	if base > time.Duration(math.MaxInt64)/factor {
		return time.Duration(math.MaxInt64)
	}
	return base * factor
}

// backoff is the delay before retrying after the given 0-based attempt.
func backoff(attempt int, base, jitter time.Duration) time.Duration {
	d := exponentialBackoff(attempt, base)
	if d > time.Duration(math.MaxInt64)-jitter {
		return time.Duration(math.MaxInt64)
	}
	return d + jitter
}

// duration returns the backoff of the given 0-based attempt plus a jitter in [0, base).
func (w *waitAlgo) duration(attempt int) time.Duration {
	if !w.jitter || w.base <= 0 {
		return backoff(attempt, w.base, 0)
	}
	return backoff(attempt, w.base, time.Duration(randomInt63n(int64(w.base))))
}

type requestFunc func(ctx context.Context, method, urlStr string, body io.Reader) (*http.Request, error)

type clientInterface interface {
	Do(req *http.Request) (*http.Response, error)
}

type retryHTTP struct {
	ctx         context.Context
	client      clientInterface
	req         requestFunc
	method      string
	fullURL     string
	headers     http.Header
	body        []byte
	maxAttempts int
	wait        *waitAlgo
}

func newRetryHTTP(ctx context.Context,
	client clientInterface,
	req requestFunc,
	fullURL string,
	headers http.Header,
	maxAttempts int,
	wait *waitAlgo) *retryHTTP {
	instance := retryHTTP{}
	instance.ctx = ctx
	instance.client = client
	instance.req = req
	instance.method = http.MethodGet
	instance.fullURL = fullURL
	instance.headers = headers
	instance.body = nil
	instance.maxAttempts = maxAttempts
	instance.wait = wait
	return &instance
}

func (r *retryHTTP) doPost() *retryHTTP {
	r.method = http.MethodPost
	return r
}

func (r *retryHTTP) setBody(body []byte) *retryHTTP {
	r.body = body
	return r
}

// execute sends the request until it is answered with 200. Only 503 is
// retried; every other status and every network error is returned at once.
func (r *retryHTTP) execute() (*http.Response, error) {
	maxAttempts := r.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRetryAttempts
	}
	for attempt := 0; ; attempt++ {
		if err := r.ctx.Err(); err != nil {
			return nil, err
		}
		req, err := r.req(r.ctx, r.method, r.fullURL, bytes.NewReader(r.body))
		if err != nil {
			return nil, err
		}
		for k, vs := range r.headers {
			req.Header[k] = append([]string(nil), vs...)
		}
		res, err := r.client.Do(req)
		if err != nil {
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			observeRequest(r.method, 0)
			return nil, &TransportError{Method: r.method, URL: r.fullURL, Attempts: attempt + 1, Cause: err}
		}
		observeRequest(r.method, res.StatusCode)

		switch res.StatusCode {
		case http.StatusOK:
			return res, nil
		case http.StatusServiceUnavailable:
			drainAndClose(res.Body)
		default:
			return nil, newTransportErrorFromResponse(r.method, r.fullURL, attempt+1, res)
		}

		if attempt+1 >= maxAttempts {
			return nil, &TransportError{
				Method:     r.method,
				URL:        r.fullURL,
				StatusCode: http.StatusServiceUnavailable,
				Attempts:   attempt + 1,
			}
		}
		sleepTime := r.wait.duration(attempt)
		observeRetry()
		logger.WithContext(r.ctx).Infof("%v %v: service unavailable, attempt %d of %d. sleeping %v",
			r.method, r.fullURL, attempt+1, maxAttempts, sleepTime)

		await := time.NewTimer(sleepTime)
		select {
		case <-await.C:
			// retry the request
		case <-r.ctx.Done():
			await.Stop()
			return nil, r.ctx.Err()
		}
	}
}

func newTransportErrorFromResponse(method, fullURL string, attempts int, res *http.Response) *TransportError {
	defer res.Body.Close()
	te := &TransportError{Method: method, URL: fullURL, StatusCode: res.StatusCode, Attempts: attempts}
	b, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
	if err != nil {
		te.Cause = err
		return te
	}
	te.Body = string(b)
	if res.ContentLength > maxErrorBodyBytes {
		te.Body += "..."
	}
	return te
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyBytes))
	_ = body.Close()
}
