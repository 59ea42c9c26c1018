// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"context"
	"net/http"
	"sync"
)

// Client submits statements to one coordinator. It is safe for concurrent use.
// Session mutations reported by the coordinator are applied to the client's
// configuration and carried by the statements that follow.
type Client struct {
	mu         sync.Mutex
	cfg        *Config
	httpClient clientInterface
	wait       *waitAlgo
	newRequest requestFunc
}

// NewClient validates a copy of cfg and returns a client bound to it.
// cfg itself is never modified.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrEmptyHost
	}
	c := cfg.Copy()
	c.fillMissingConfigParameters()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        c,
		httpClient: newHTTPClient(c),
		wait:       newWaitAlgo(c.RetryBaseDelay),
		newRequest: http.NewRequestWithContext,
	}, nil
}

// Session returns a snapshot of the live session configuration.
func (c *Client) Session() *Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Copy()
}

// Cancel asks the coordinator to stop the query behind uri, typically a
// partialCancelUri or nextUri of a page. It reports whether the coordinator
// answered 204.
func (c *Client) Cancel(ctx context.Context, uri string) (bool, error) {
	cfg := c.Session()
	headers := encodeHeaders(cfg, (*QueryOptions)(nil).withDefaults())
	return c.delete(ctx, uri, headers)
}

func (c *Client) delete(ctx context.Context, uri string, headers http.Header) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, uri, nil)
	if err != nil {
		return false, err
	}
	for k, vs := range headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(http.MethodDelete, 0)
		return false, &TransportError{Method: http.MethodDelete, URL: uri, Attempts: 1, Cause: err}
	}
	observeRequest(http.MethodDelete, res.StatusCode)
	drainAndClose(res.Body)
	return res.StatusCode == http.StatusNoContent, nil
}
