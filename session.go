package gopresto

import (
	"context"
)

// applyDelta merges the session mutation of one response into the live
// configuration. The next request built from a snapshot carries it.
func (c *Client) applyDelta(ctx context.Context, d *ResponseHeaderDelta) {
	if d == nil || d.IsEmpty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d.apply(c.cfg)
	logger.WithContext(ctx).Debugf("session updated: catalog=%v schema=%v transaction=%v",
		c.cfg.Catalog, c.cfg.Schema, c.cfg.TransactionID)
}
