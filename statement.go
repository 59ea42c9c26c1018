// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// Query submits sql and follows the continuation URLs of the coordinator
// until the statement finishes, fails, or Config.Timeout elapses. The
// statement is closed with a DELETE to the submission URL once the
// submission was answered.
//
// Configuration errors are returned with a nil Result. Every other error is
// returned together with the pages received so far, with Result.Err set.
// Reaching the timeout is not an error; see Result.Truncated.
func (c *Client) Query(ctx context.Context, sql string, opts *QueryOptions) (*Result, error) {
	if opts != nil {
		if err := opts.validate(); err != nil {
			return nil, err
		}
	}
	cfg := c.Session()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	headers := encodeHeaders(cfg, opts)
	ctx = context.WithValue(ctx, TraceTokenKey, opts.TraceToken)

	st := &statement{
		client:  c,
		cfg:     cfg,
		headers: headers,
		start:   time.Now(),
		result:  &Result{SubmitURI: cfg.statementURL()},
	}
	err := st.run(ctx, sql)
	observeStatement(st.outcome(err), time.Since(st.start))
	if err != nil {
		st.result.Err = err
		return st.result, err
	}
	return st.result, nil
}

// statement is the state of one walk over the pages of a query.
type statement struct {
	client  *Client
	cfg     *Config
	headers http.Header
	start   time.Time
	result  *Result
}

func (st *statement) run(ctx context.Context, sql string) error {
	logger.WithContext(ctx).Debugf("submitting statement to %v", st.result.SubmitURI)
	res, err := newRetryHTTP(ctx,
		st.client.httpClient,
		st.client.newRequest,
		st.result.SubmitURI,
		st.headers,
		st.cfg.MaxRetryAttempts,
		st.client.wait).doPost().setBody([]byte(sql)).execute()
	if err != nil {
		return err
	}
	defer st.close(ctx)

	page, err := st.readPage(ctx, res)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, QueryIDKey, page.ID)
	st.result.QueryID = page.ID

	for {
		if err = st.addPage(ctx, page); err != nil {
			return err
		}
		if !page.HasNext() {
			return nil
		}
		if st.cfg.Timeout > 0 && time.Since(st.start) > st.cfg.Timeout {
			logger.WithContext(ctx).Warnf("client timeout of %v reached, stop polling %v", st.cfg.Timeout, page.NextURI)
			return nil
		}
		res, err = newRetryHTTP(ctx,
			st.client.httpClient,
			st.client.newRequest,
			page.NextURI,
			st.headers,
			st.cfg.MaxRetryAttempts,
			st.client.wait).execute()
		if err != nil {
			return err
		}
		if page, err = st.readPage(ctx, res); err != nil {
			return err
		}
	}
}

// readPage decodes one 200 response and applies its session mutation.
func (st *statement) readPage(ctx context.Context, res *http.Response) (*QueryResults, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	var page QueryResults
	if err = json.Unmarshal(body, &page); err != nil {
		logger.WithContext(ctx).Errorf("failed to decode page: %v", err)
		return nil, &ParseError{Body: string(body), Cause: err}
	}
	if err = page.validate(); err != nil {
		return nil, &ParseError{Body: string(body), Cause: err}
	}
	page.body = body
	st.client.applyDelta(ctx, decodeHeaders(st.cfg.Flavor, res.Header))
	return &page, nil
}

// addPage appends page to the result and promotes its error object.
func (st *statement) addPage(ctx context.Context, page *QueryResults) error {
	r := st.result
	r.Pages = append(r.Pages, page)
	if r.Columns == nil && len(page.Columns) > 0 {
		r.Columns = page.Columns
	}
	if len(page.Data) > 0 {
		r.Rows = append(r.Rows, page.Data...)
	}
	observePage(len(page.Data))
	if st.cfg.Debug {
		s := page.Stats
		logger.WithContext(ctx).Infof("page %d: state=%v progress=%.1f%% splits=%d/%d rows=%d bytes=%d elapsed=%dms",
			len(r.Pages), s.State, s.ProgressPercentage, s.CompletedSplits, s.TotalSplits,
			s.ProcessedRows, s.ProcessedBytes, s.ElapsedTimeMillis)
	}
	for _, w := range page.Warnings {
		logger.WithContext(ctx).Warnf("%v: %v", w.WarningCode.Name, w.Message)
	}
	if page.HasError() {
		qe := newQueryError(page, page.body)
		logger.WithContext(ctx).Infof("query failed: %v", qe)
		return qe
	}
	return nil
}

// close releases the statement on the coordinator. Failures are logged only.
func (st *statement) close(ctx context.Context) {
	if ctx.Err() != nil {
		logger.WithContext(ctx).Debugf("context done, not closing %v", st.result.SubmitURI)
		return
	}
	closed, err := st.client.delete(ctx, st.result.SubmitURI, st.headers)
	if err != nil {
		logger.WithContext(ctx).Warnf("failed to close statement: %v", err)
		return
	}
	if !closed {
		logger.WithContext(ctx).Debugf("statement at %v was not acknowledged as closed", st.result.SubmitURI)
	}
	st.result.Closed = closed
}

func (st *statement) outcome(err error) string {
	var (
		qe *QueryError
		pe *ParseError
	)
	switch {
	case err == nil && st.result.Truncated():
		return outcomeTruncated
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	case errors.As(err, &qe):
		return outcomeQueryError
	case errors.As(err, &pe):
		return outcomeParseError
	default:
		return outcomeTransportError
	}
}
