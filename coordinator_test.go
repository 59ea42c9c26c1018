package gopresto

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeResponse is one scripted answer of fakeCoordinator.
type fakeResponse struct {
	status  int           // 0 means 200
	body    string        // sent verbatim when set
	results *QueryResults // marshalled when body is empty
	header  http.Header
	final   bool // no nextUri even if more responses follow
}

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   string
}

// fakeCoordinator answers POST and GET requests with the scripted responses
// in order. A 200 response gets a nextUri unless it is the last one or final.
type fakeCoordinator struct {
	t            *testing.T
	server       *httptest.Server
	mu           sync.Mutex
	responses    []fakeResponse
	next         int
	requests     []recordedRequest
	deleteStatus int
}

func newFakeCoordinator(t *testing.T, responses ...fakeResponse) *fakeCoordinator {
	fc := &fakeCoordinator{t: t, responses: responses, deleteStatus: http.StatusNoContent}
	fc.server = httptest.NewServer(http.HandlerFunc(fc.handle))
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCoordinator) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.requests = append(fc.requests, recordedRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: string(body)})

	if r.Method == http.MethodDelete {
		w.WriteHeader(fc.deleteStatus)
		return
	}
	if fc.next >= len(fc.responses) {
		fc.t.Errorf("unexpected %v %v", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusGone)
		return
	}
	idx := fc.next
	resp := fc.responses[idx]
	fc.next++

	for k, vs := range resp.header {
		w.Header()[k] = vs
	}
	status := resp.status
	if status == 0 {
		status = http.StatusOK
	}
	out := []byte(resp.body)
	if resp.body == "" && resp.results != nil {
		page := *resp.results
		if status == http.StatusOK && !resp.final && idx < len(fc.responses)-1 {
			page.NextURI = fmt.Sprintf("%v/v1/statement/executing/%v/%d", fc.server.URL, page.ID, idx+1)
		}
		var err error
		if out, err = json.Marshal(&page); err != nil {
			fc.t.Errorf("failed to marshal page: %v", err)
		}
	}
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (fc *fakeCoordinator) recorded() []recordedRequest {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]recordedRequest(nil), fc.requests...)
}

func (fc *fakeCoordinator) methods() []string {
	var methods []string
	for _, r := range fc.recorded() {
		methods = append(methods, r.method)
	}
	return methods
}

// config returns a valid configuration pointing at the fake coordinator.
func (fc *fakeCoordinator) config() *Config {
	u := fc.server.Listener.Addr().String()
	host, port := splitHostPort(fc.t, u)
	return &Config{
		Host:           host,
		Port:           port,
		User:           "alice",
		RetryBaseDelay: time.Millisecond,
	}
}

func (fc *fakeCoordinator) client(cfg *Config) *Client {
	client, err := NewClient(cfg)
	assertNilF(fc.t, err, "NewClient")
	return client
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	host, p, err := net.SplitHostPort(addr)
	assertNilF(t, err, "address", addr)
	port, err := strconv.Atoi(p)
	assertNilF(t, err, "port of", addr)
	return host, port
}

func testColumns() []Column {
	return []Column{
		{Name: "id", Type: "bigint", TypeSignature: &TypeSignature{RawType: "bigint"}},
		{Name: "name", Type: "varchar(10)", TypeSignature: &TypeSignature{RawType: "varchar"}},
	}
}

func testRows(from, n int) [][]Value {
	rows := make([][]Value, n)
	for i := range rows {
		rows[i] = []Value{Int(int64(from + i)), String(fmt.Sprintf("row%d", from+i))}
	}
	return rows
}
