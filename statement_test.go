package gopresto

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestQueryFollowsContinuations(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q1", Columns: testColumns(), Data: testRows(1, 2)}},
		fakeResponse{results: &QueryResults{ID: "q1", Stats: StatementStats{State: "RUNNING"}}},
		fakeResponse{results: &QueryResults{ID: "q1", Columns: testColumns(), Data: testRows(3, 3), Stats: StatementStats{State: "FINISHED"}}},
	)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELECT id, name FROM t", nil)
	assertNilF(t, err)
	assertEqualE(t, res.QueryID, "q1")
	assertEqualE(t, len(res.Pages), 3)
	assertEqualE(t, len(res.Rows), 5)
	assertEqualE(t, len(res.Columns), 2)
	assertEqualE(t, res.Rows[4][1].String(), "row5")
	assertEqualE(t, res.Stats().State, "FINISHED")
	assertFalseE(t, res.Truncated())
	assertTrueE(t, res.Closed, "DELETE answered with 204")
	assertNilE(t, res.Err)

	reqs := fc.recorded()
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost, http.MethodGet, http.MethodGet, http.MethodDelete})
	assertEqualE(t, reqs[0].path, "/v1/statement")
	assertEqualE(t, reqs[0].body, "SELECT id, name FROM t")
	assertEqualE(t, reqs[1].path, "/v1/statement/executing/q1/1")
	assertEqualE(t, reqs[3].path, "/v1/statement", "close goes to the submission URL")
	assertEqualE(t, res.SubmitURI, fc.server.URL+"/v1/statement")

	h := reqs[0].header
	assertEqualE(t, h.Get("X-Presto-User"), "alice")
	assertEqualE(t, h.Get("X-Presto-Source"), defaultSource)
	assertEqualE(t, h.Get("X-Presto-Time-Zone"), "UTC")
	assertEqualE(t, h.Get("X-Presto-Transaction-Id"), noTransactionID)
	assertEqualE(t, h.Get("Accept"), "application/json")
	assertHasPrefixE(t, h.Get("User-Agent"), "gopresto/")
	assertNotEqualE(t, h.Get("X-Presto-Trace-Token"), "")
	assertEqualE(t, reqs[1].header.Get("X-Presto-Trace-Token"), h.Get("X-Presto-Trace-Token"), "one trace token per statement")
}

func TestQueryFailurePage(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q2"}},
		fakeResponse{results: &QueryResults{ID: "q2", Error: &ErrorObject{
			Message:       "line 1:8: Column 'x' cannot be resolved",
			SQLState:      "42S22",
			ErrorCode:     47,
			ErrorName:     "COLUMN_NOT_FOUND",
			ErrorType:     "USER_ERROR",
			ErrorLocation: &ErrorLocation{LineNumber: 1, ColumnNumber: 8},
			FailureInfo: &FailureInfo{
				Type:    "io.prestosql.spi.PrestoException",
				Message: "Column 'x' cannot be resolved",
				Stack:   []string{"Analyzer.analyze(Analyzer.java:72)"},
				Cause:   &FailureInfo{Type: "java.lang.IllegalStateException", Message: "root"},
			},
		}}},
		fakeResponse{results: &QueryResults{ID: "q2"}},
	)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELECT x", nil)
	var qe *QueryError
	assertErrorsAsF(t, err, &qe)
	assertEqualE(t, qe.QueryID, "q2")
	assertEqualE(t, qe.ErrorName, "COLUMN_NOT_FOUND")
	assertEqualE(t, qe.ErrorCode, 47)
	assertEqualE(t, qe.SQLState, "42S22")
	assertEqualE(t, qe.ErrorLocation.ColumnNumber, 8)
	assertTrueE(t, qe.IsUserError())
	assertStringContainsE(t, qe.Body, "COLUMN_NOT_FOUND")

	var fe *FailureError
	assertErrorsAsF(t, err, &fe, "failure chain is reachable through Unwrap")
	assertStringContainsE(t, fe.StackTrace(), "Caused by: java.lang.IllegalStateException: root")

	assertNotNilF(t, res, "partial result is returned")
	assertEqualE(t, res.Err, err)
	assertEqualE(t, len(res.Pages), 2, "polling stops at the failure")
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost, http.MethodGet, http.MethodDelete})
	assertTrueE(t, res.Closed)
}

func TestQueryUnparseablePage(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q3"}},
		fakeResponse{body: "<html>proxy error</html>"},
	)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELECT 1", nil)
	var pe *ParseError
	assertErrorsAsF(t, err, &pe)
	assertEqualE(t, pe.Body, "<html>proxy error</html>")
	assertEqualE(t, len(res.Pages), 1)
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost, http.MethodGet, http.MethodDelete}, "close is attempted after a parse failure")
}

func TestQueryDataWithoutColumns(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{body: `{"id":"q4","data":[[1]]}`},
	)
	client := fc.client(fc.config())

	_, err := client.Query(context.Background(), "SELECT 1", nil)
	var pe *ParseError
	assertErrorsAsF(t, err, &pe)
	assertErrIsE(t, err, errDataWithoutColumns)
}

func TestQueryRejectedSubmission(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{status: http.StatusBadRequest, body: "SQL statement is empty"},
	)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "", nil)
	var te *TransportError
	assertErrorsAsF(t, err, &te)
	assertEqualE(t, te.StatusCode, http.StatusBadRequest)
	assertEqualE(t, te.Body, "SQL statement is empty")
	assertEqualE(t, te.Attempts, 1, "only 503 is retried")
	assertEqualE(t, len(res.Pages), 0)
	assertFalseE(t, res.Closed)
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost}, "nothing to close")
}

func TestQueryRetriesServiceUnavailable(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{status: http.StatusServiceUnavailable},
		fakeResponse{status: http.StatusServiceUnavailable},
		fakeResponse{status: http.StatusServiceUnavailable},
		fakeResponse{results: &QueryResults{ID: "q5", Columns: testColumns(), Data: testRows(1, 1)}},
	)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELECT 1", nil)
	assertNilF(t, err)
	assertEqualE(t, len(res.Rows), 1)
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost, http.MethodPost, http.MethodPost, http.MethodPost, http.MethodDelete})
}

func TestQueryGivesUpOnServiceUnavailable(t *testing.T) {
	var responses []fakeResponse
	for i := 0; i < defaultMaxRetryAttempts; i++ {
		responses = append(responses, fakeResponse{status: http.StatusServiceUnavailable})
	}
	fc := newFakeCoordinator(t, responses...)
	client := fc.client(fc.config())

	_, err := client.Query(context.Background(), "SELECT 1", nil)
	var te *TransportError
	assertErrorsAsF(t, err, &te)
	assertEqualE(t, te.StatusCode, http.StatusServiceUnavailable)
	assertEqualE(t, te.Attempts, defaultMaxRetryAttempts)
	assertEqualE(t, len(fc.recorded()), defaultMaxRetryAttempts)
}

func TestQueryTimeoutIsSoft(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q6", Columns: testColumns(), Data: testRows(1, 2)}},
		fakeResponse{results: &QueryResults{ID: "q6", Columns: testColumns(), Data: testRows(3, 2)}},
	)
	cfg := fc.config()
	cfg.Timeout = time.Nanosecond
	client := fc.client(cfg)

	res, err := client.Query(context.Background(), "SELECT 1", nil)
	assertNilF(t, err, "timeout is not an error")
	assertTrueE(t, res.Truncated())
	assertEqualE(t, len(res.Rows), 2)
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost, http.MethodDelete})
	assertTrueE(t, res.Closed)
}

func TestQueryCloseNotAcknowledged(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q7"}},
	)
	fc.deleteStatus = http.StatusNotFound
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELECT 1", nil)
	assertNilF(t, err, "close failures are not raised")
	assertFalseE(t, res.Closed)
}

func TestQueryAppliesSessionMutations(t *testing.T) {
	setHeaders := http.Header{}
	setHeaders.Set("X-Presto-Set-Catalog", "hive")
	setHeaders.Set("X-Presto-Set-Schema", "web")
	setHeaders.Add("X-Presto-Set-Session", "query_max_run_time=2h")
	setHeaders.Add("X-Presto-Added-Prepare", "q1=SELECT+%3F")
	setHeaders.Set("X-Presto-Started-Transaction-Id", "txn-1")
	clearHeaders := http.Header{}
	clearHeaders.Add("X-Presto-Clear-Session", "query_max_run_time")
	clearHeaders.Add("X-Presto-Deallocated-Prepare", "q1")
	clearHeaders.Set("X-Presto-Clear-Transaction-Id", "true")

	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "a"}, header: setHeaders},
		fakeResponse{results: &QueryResults{ID: "b"}, header: clearHeaders},
		fakeResponse{results: &QueryResults{ID: "c"}},
	)
	for i := range fc.responses {
		fc.responses[i].final = true
	}
	client := fc.client(fc.config())
	ctx := context.Background()

	_, err := client.Query(ctx, "USE hive.web", nil)
	assertNilF(t, err)
	session := client.Session()
	assertEqualE(t, session.Catalog, "hive")
	assertEqualE(t, session.Schema, "web")
	assertEqualE(t, session.SessionProperties["query_max_run_time"], "2h")
	assertEqualE(t, session.PreparedStatements["q1"], "SELECT ?")
	assertEqualE(t, session.TransactionID, "txn-1")

	_, err = client.Query(ctx, "SELECT 1", nil)
	assertNilF(t, err)
	_, err = client.Query(ctx, "SELECT 2", nil)
	assertNilF(t, err)

	var posts []recordedRequest
	for _, r := range fc.recorded() {
		if r.method == http.MethodPost {
			posts = append(posts, r)
		}
	}
	assertEqualF(t, len(posts), 3)
	second := posts[1].header
	assertEqualE(t, second.Get("X-Presto-Catalog"), "hive")
	assertEqualE(t, second.Get("X-Presto-Schema"), "web")
	assertEqualE(t, second.Get("X-Presto-Session"), "query_max_run_time=2h")
	assertEqualE(t, second.Get("X-Presto-Prepared-Statement"), "q1=SELECT+%3F", "sent in the form the coordinator advertised")
	assertEqualE(t, second.Get("X-Presto-Transaction-Id"), "txn-1")

	third := posts[2].header
	assertEqualE(t, third.Get("X-Presto-Catalog"), "hive")
	assertEqualE(t, third.Get("X-Presto-Session"), "")
	assertEqualE(t, third.Get("X-Presto-Prepared-Statement"), "")
	assertEqualE(t, third.Get("X-Presto-Transaction-Id"), noTransactionID)
}

func TestQueryOptionsDoNotModifySession(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "a"}},
	)
	cfg := fc.config()
	cfg.ClientTags = []string{"etl"}
	cfg.PreparedStatements = map[string]string{"p": "SELECT 1"}
	client := fc.client(cfg)
	txn := "txn-9"

	_, err := client.Query(context.Background(), "EXECUTE p", &QueryOptions{
		ClientTags:         []string{"adhoc", "etl"},
		PreparedStatements: map[string]string{"p": "SELECT 2", "r": "SELECT 3"},
		SessionProperties:  map[string]string{"join_distribution_type": "BROADCAST"},
		TransactionID:      &txn,
		TraceToken:         "trace-1",
	})
	assertNilF(t, err)

	h := fc.recorded()[0].header
	assertEqualE(t, h.Get("X-Presto-Client-Tags"), "etl,adhoc")
	assertDeepEqualE(t, h.Values("X-Presto-Prepared-Statement"), []string{"p=SELECT+1", "r=SELECT+3"})
	assertEqualE(t, h.Get("X-Presto-Session"), "join_distribution_type=BROADCAST")
	assertEqualE(t, h.Get("X-Presto-Transaction-Id"), "txn-9")
	assertEqualE(t, h.Get("X-Presto-Trace-Token"), "trace-1")

	session := client.Session()
	assertDeepEqualE(t, session.ClientTags, []string{"etl"})
	assertEqualE(t, len(session.PreparedStatements), 1)
	assertEqualE(t, len(session.SessionProperties), 0)
}

func TestQueryTrinoFlavor(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "a"}, header: http.Header{"X-Trino-Set-Catalog": {"tpch"}}},
	)
	cfg := fc.config()
	cfg.Flavor = FlavorTrino
	client := fc.client(cfg)

	_, err := client.Query(context.Background(), "USE tpch.tiny", nil)
	assertNilF(t, err)
	h := fc.recorded()[0].header
	assertEqualE(t, h.Get("X-Trino-User"), "alice")
	assertEqualE(t, h.Get("X-Presto-User"), "")
	assertEqualE(t, client.Session().Catalog, "tpch")
}

func TestQueryConfigurationErrors(t *testing.T) {
	fc := newFakeCoordinator(t)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELECT 1", &QueryOptions{ClientTags: []string{"a,b"}})
	assertErrIsE(t, err, ErrInvalidClientTag)
	assertNilE(t, res)
	assertEqualE(t, len(fc.recorded()), 0, "no request is sent")

	cfg := fc.config()
	cfg.Schema = "web"
	_, err = NewClient(cfg)
	assertErrIsE(t, err, ErrSchemaWithoutCatalog)

	cfg = fc.config()
	cfg.User = ""
	_, err = NewClient(cfg)
	assertErrIsE(t, err, ErrEmptyUser)
}

func TestQueryCanceledBeforeSubmission(t *testing.T) {
	fc := newFakeCoordinator(t)
	client := fc.client(fc.config())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := client.Query(ctx, "SELECT 1", nil)
	assertErrIsE(t, err, context.Canceled)
	assertNotNilF(t, res)
	assertEqualE(t, len(fc.recorded()), 0)
}

func TestQueryCanceledDuringBackoff(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{status: http.StatusServiceUnavailable},
		fakeResponse{status: http.StatusServiceUnavailable},
	)
	cfg := fc.config()
	cfg.RetryBaseDelay = time.Hour
	client := fc.client(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := client.Query(ctx, "SELECT 1", nil)
	assertTrueE(t, errors.Is(err, context.Canceled), "got", errString(err))
	assertTrueE(t, time.Since(start) < 10*time.Second, "backoff wait observes the context")
	assertEqualE(t, len(fc.recorded()), 1)
}

func TestQueryNotClosedAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q8"}},
		fakeResponse{results: &QueryResults{ID: "q8"}},
	)
	client := fc.client(fc.config())
	client.httpClient = &cancelAfterFirst{client: client.httpClient, cancel: cancel}

	_, err := client.Query(ctx, "SELECT 1", nil)
	assertErrIsE(t, err, context.Canceled)
	for _, m := range fc.methods() {
		assertNotEqualE(t, m, http.MethodDelete, "close is skipped once the context is done")
	}
}

// cancelAfterFirst cancels the statement context once the first response arrived.
type cancelAfterFirst struct {
	client clientInterface
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) Do(req *http.Request) (*http.Response, error) {
	res, err := c.client.Do(req)
	c.cancel()
	return res, err
}

func TestCancel(t *testing.T) {
	fc := newFakeCoordinator(t)
	client := fc.client(fc.config())

	ok, err := client.Cancel(context.Background(), fc.server.URL+"/v1/statement/executing/partialCancel/q9/0")
	assertNilF(t, err)
	assertTrueE(t, ok)
	reqs := fc.recorded()
	assertEqualF(t, len(reqs), 1)
	assertEqualE(t, reqs[0].method, http.MethodDelete)
	assertTrueE(t, strings.HasSuffix(reqs[0].path, "/q9/0"))
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

func TestQueryFailureOnSubmissionPage(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q10", Error: &ErrorObject{
			Message:   "line 1:1: mismatched input 'SELEC'",
			SQLState:  "42000",
			ErrorCode: 1,
			ErrorName: "SYNTAX_ERROR",
			ErrorType: "USER_ERROR",
		}}},
		fakeResponse{results: &QueryResults{ID: "q10"}},
	)
	client := fc.client(fc.config())

	res, err := client.Query(context.Background(), "SELEC 1", nil)
	var qe *QueryError
	assertErrorsAsF(t, err, &qe)
	assertEqualE(t, qe.QueryID, "q10")
	assertEqualE(t, qe.SQLState, "42000")
	assertEqualE(t, qe.ErrorCode, 1)
	assertEqualE(t, qe.ErrorName, "SYNTAX_ERROR")
	assertEqualE(t, len(res.Pages), 1, "the continuation of the failed page is not followed")
	assertDeepEqualE(t, fc.methods(), []string{http.MethodPost, http.MethodDelete})
	assertTrueE(t, res.Closed)
}

func TestQueryFailureWithInvalidErrorLocation(t *testing.T) {
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "q11", Error: &ErrorObject{
			Message:       "Query exceeded maximum time limit",
			SQLState:      "57014",
			ErrorCode:     131075,
			ErrorName:     "EXCEEDED_TIME_LIMIT",
			ErrorType:     "INSUFFICIENT_RESOURCES",
			ErrorLocation: &ErrorLocation{LineNumber: 0, ColumnNumber: 0},
		}}},
	)
	client := fc.client(fc.config())

	_, err := client.Query(context.Background(), "SELECT 1", nil)
	var qe *QueryError
	assertErrorsAsF(t, err, &qe, "the server error is kept, got", errString(err))
	assertEqualE(t, qe.ErrorName, "EXCEEDED_TIME_LIMIT")
	assertEqualE(t, qe.SQLState, "57014")
	assertNilE(t, qe.ErrorLocation, "a location that is not 1-based is dropped")
	var pe *ParseError
	assertFalseE(t, errors.As(err, &pe))
}

func TestQueryPreparedStatementWithNewlines(t *testing.T) {
	added := http.Header{}
	added.Add("X-Presto-Added-Prepare", "q1=SELECT%0A1")
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "a"}, header: added, final: true},
		fakeResponse{results: &QueryResults{ID: "b"}, final: true},
	)
	client := fc.client(fc.config())
	ctx := context.Background()

	_, err := client.Query(ctx, "PREPARE q1 FROM SELECT\n1", nil)
	assertNilF(t, err)
	assertEqualE(t, client.Session().PreparedStatements["q1"], "SELECT\n1")

	_, err = client.Query(ctx, "EXECUTE q1", nil)
	assertNilF(t, err, "the session stays usable after a multiline prepare")
	posts := fc.recorded()
	last := posts[len(posts)-2]
	assertEqualE(t, last.method, http.MethodPost)
	assertEqualE(t, last.header.Get("X-Presto-Prepared-Statement"), "q1=SELECT%0A1")
}

func TestQueryIgnoresInvalidSessionMutation(t *testing.T) {
	set := http.Header{}
	set.Add("X-Presto-Set-Session", "prop=café")
	set.Add("X-Presto-Set-Session", "query_max_memory=1GB")
	fc := newFakeCoordinator(t,
		fakeResponse{results: &QueryResults{ID: "a"}, header: set, final: true},
		fakeResponse{results: &QueryResults{ID: "b"}, final: true},
	)
	client := fc.client(fc.config())
	ctx := context.Background()

	_, err := client.Query(ctx, "SET SESSION prop = 'café'", nil)
	assertNilF(t, err)
	_, err = client.Query(ctx, "SELECT 1", nil)
	assertNilF(t, err, "the session is not poisoned by the coordinator")

	session := client.Session()
	assertDeepEqualE(t, session.SessionProperties, map[string]string{"query_max_memory": "1GB"})
	assertEqualE(t, len(fc.recorded()), 4)
}

func TestQueryConcurrentClients(t *testing.T) {
	const clients = 4
	var wg sync.WaitGroup
	errs := make(chan error, clients*2)
	for i := 0; i < clients; i++ {
		fc := newFakeCoordinator(t,
			fakeResponse{status: http.StatusServiceUnavailable},
			fakeResponse{status: http.StatusServiceUnavailable},
			fakeResponse{results: &QueryResults{ID: "c", Columns: testColumns(), Data: testRows(1, 2)}},
			fakeResponse{results: &QueryResults{ID: "c", Columns: testColumns(), Data: testRows(3, 1)}},
		)
		client := fc.client(fc.config())
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := client.Query(context.Background(), "SELECT 1", nil)
			if err != nil {
				errs <- err
				return
			}
			if len(res.Rows) != 3 {
				errs <- fmt.Errorf("got %d rows", len(res.Rows))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestQueryConcurrentOnOneClient(t *testing.T) {
	const statements = 6
	var responses []fakeResponse
	set := http.Header{}
	set.Add("X-Presto-Set-Session", "query_priority=2")
	for i := 0; i < statements; i++ {
		responses = append(responses, fakeResponse{
			results: &QueryResults{ID: fmt.Sprintf("s%d", i), Columns: testColumns(), Data: testRows(i, 1)},
			header:  set,
			final:   true,
		})
	}
	fc := newFakeCoordinator(t, responses...)
	client := fc.client(fc.config())

	var wg sync.WaitGroup
	errs := make(chan error, statements)
	for i := 0; i < statements; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Query(context.Background(), "SELECT 1", nil); err != nil {
				errs <- err
			}
			_ = client.Session()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assertEqualE(t, len(fc.recorded()), 2*statements, "one POST and one DELETE per statement")
	assertEqualE(t, client.Session().SessionProperties["query_priority"], "2")
}
