package gopresto

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerUserAgent   = "User-Agent"

	headerContentTypeText           = "text/plain; charset=utf-8"
	headerAcceptTypeApplicationJSON = "application/json"

	noTransactionID = "NONE"
)

// headerNames is the vendor header family of one flavor.
type headerNames struct {
	User              string
	Source            string
	Catalog           string
	Schema            string
	TimeZone          string
	Language          string
	Session           string
	PreparedStatement string
	ClientTags        string
	ClientInfo        string
	TransactionID     string
	TraceToken        string

	SetCatalog           string
	SetSchema            string
	SetSession           string
	ClearSession         string
	AddedPrepare         string
	DeallocatedPrepare   string
	StartedTransactionID string
	ClearTransactionID   string
}

func newHeaderNames(prefix string) headerNames {
	return headerNames{
		User:              prefix + "User",
		Source:            prefix + "Source",
		Catalog:           prefix + "Catalog",
		Schema:            prefix + "Schema",
		TimeZone:          prefix + "Time-Zone",
		Language:          prefix + "Language",
		Session:           prefix + "Session",
		PreparedStatement: prefix + "Prepared-Statement",
		ClientTags:        prefix + "Client-Tags",
		ClientInfo:        prefix + "Client-Info",
		TransactionID:     prefix + "Transaction-Id",
		TraceToken:        prefix + "Trace-Token",

		SetCatalog:           prefix + "Set-Catalog",
		SetSchema:            prefix + "Set-Schema",
		SetSession:           prefix + "Set-Session",
		ClearSession:         prefix + "Clear-Session",
		AddedPrepare:         prefix + "Added-Prepare",
		DeallocatedPrepare:   prefix + "Deallocated-Prepare",
		StartedTransactionID: prefix + "Started-Transaction-Id",
		ClearTransactionID:   prefix + "Clear-Transaction-Id",
	}
}

var (
	prestoHeaders = newHeaderNames("X-Presto-")
	trinoHeaders  = newHeaderNames("X-Trino-")
)

func headersFor(f Flavor) headerNames {
	if f == FlavorTrino {
		return trinoHeaders
	}
	return prestoHeaders
}

// encodeHeaders builds the request headers of one statement from a config
// snapshot and the per-call options.
func encodeHeaders(cfg *Config, opts *QueryOptions) http.Header {
	names := headersFor(cfg.Flavor)
	h := make(http.Header)

	h.Set(headerContentType, headerContentTypeText)
	h.Set(names.TimeZone, cfg.TimeZone)
	if cfg.Catalog != "" {
		h.Set(names.Catalog, cfg.Catalog)
	}
	if cfg.Schema != "" {
		h.Set(names.Schema, cfg.Schema)
	}
	if cfg.ClientInfo != "" {
		h.Set(names.ClientInfo, cfg.ClientInfo)
	}
	if cfg.Locale != "" {
		h.Set(names.Language, canonicalLocale(cfg.Locale))
	}

	for _, k := range sortedKeys(cfg.SessionProperties) {
		h.Add(names.Session, k+"="+cfg.SessionProperties[k])
	}
	for _, k := range sortedKeys(opts.SessionProperties) {
		h.Add(names.Session, k+"="+opts.SessionProperties[k])
	}

	// percent-encoded, the form the coordinator decodes and advertises back
	prepared := mergePreparedStatements(cfg.PreparedStatements, opts.PreparedStatements)
	for _, name := range sortedKeys(prepared) {
		h.Add(names.PreparedStatement, url.QueryEscape(name)+"="+url.QueryEscape(prepared[name]))
	}

	if tags := mergeClientTags(cfg.ClientTags, opts.ClientTags); len(tags) > 0 {
		h.Set(names.ClientTags, strings.Join(tags, ","))
	}

	h.Set(names.TransactionID, transactionIDFor(cfg, opts))
	h.Set(headerUserAgent, userAgent)
	h.Set(headerAccept, headerAcceptTypeApplicationJSON)
	h.Set(names.Source, cfg.Source)
	h.Set(names.User, strings.ReplaceAll(cfg.User, ":", ""))
	if opts.TraceToken != "" {
		h.Set(names.TraceToken, opts.TraceToken)
	}
	setAuthHeaders(h, cfg)
	return h
}

func transactionIDFor(cfg *Config, opts *QueryOptions) string {
	if opts.TransactionID != nil && *opts.TransactionID != "" {
		return *opts.TransactionID
	}
	if cfg.TransactionID != "" {
		return cfg.TransactionID
	}
	return noTransactionID
}

// mergePreparedStatements returns the session statements plus the option
// statements whose names the session does not define.
func mergePreparedStatements(session, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(session)+len(extra))
	for k, v := range session {
		merged[k] = v
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return merged
}

// mergeClientTags returns the union of both tag sets in first-seen order.
func mergeClientTags(session, extra []string) []string {
	seen := make(map[string]struct{}, len(session)+len(extra))
	var tags []string
	for _, list := range [][]string{session, extra} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResponseHeaderDelta is the session mutation advertised by one response.
type ResponseHeaderDelta struct {
	SetCatalog                    *string
	SetSchema                     *string
	SetSessionProperties          map[string]string
	ClearedSessionProperties      []string
	AddedPreparedStatements       map[string]string
	DeallocatedPreparedStatements []string
	StartedTransactionID          string
	ClearTransactionID            bool
}

// IsEmpty reports whether the response carried no session mutation.
func (d *ResponseHeaderDelta) IsEmpty() bool {
	return d.SetCatalog == nil && d.SetSchema == nil &&
		len(d.SetSessionProperties) == 0 && len(d.ClearedSessionProperties) == 0 &&
		len(d.AddedPreparedStatements) == 0 && len(d.DeallocatedPreparedStatements) == 0 &&
		d.StartedTransactionID == "" && !d.ClearTransactionID
}

// decodeHeaders extracts the session mutations from response headers.
func decodeHeaders(f Flavor, h http.Header) *ResponseHeaderDelta {
	names := headersFor(f)
	d := &ResponseHeaderDelta{}

	if vs, ok := h[http.CanonicalHeaderKey(names.SetCatalog)]; ok && len(vs) > 0 {
		v := vs[0]
		d.SetCatalog = &v
	}
	if vs, ok := h[http.CanonicalHeaderKey(names.SetSchema)]; ok && len(vs) > 0 {
		v := vs[0]
		d.SetSchema = &v
	}
	for _, v := range h.Values(names.SetSession) {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			logger.Warnf("ignoring malformed %v header: %q", names.SetSession, v)
			continue
		}
		if d.SetSessionProperties == nil {
			d.SetSessionProperties = make(map[string]string)
		}
		d.SetSessionProperties[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	for _, v := range h.Values(names.ClearSession) {
		d.ClearedSessionProperties = append(d.ClearedSessionProperties, strings.TrimSpace(v))
	}
	for _, v := range h.Values(names.AddedPrepare) {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			logger.Warnf("ignoring malformed %v header: %q", names.AddedPrepare, v)
			continue
		}
		if d.AddedPreparedStatements == nil {
			d.AddedPreparedStatements = make(map[string]string)
		}
		d.AddedPreparedStatements[urlDecode(strings.TrimSpace(key))] = urlDecode(strings.TrimSpace(value))
	}
	for _, v := range h.Values(names.DeallocatedPrepare) {
		d.DeallocatedPreparedStatements = append(d.DeallocatedPreparedStatements, urlDecode(strings.TrimSpace(v)))
	}
	d.StartedTransactionID = h.Get(names.StartedTransactionID)
	_, d.ClearTransactionID = h[http.CanonicalHeaderKey(names.ClearTransactionID)]
	return d
}

func urlDecode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// apply mutates cfg with the delta. The caller holds the lock guarding cfg.
// Entries that would make cfg fail Validate are logged and skipped.
func (d *ResponseHeaderDelta) apply(cfg *Config) {
	catalog, schema := cfg.Catalog, cfg.Schema
	if d.SetCatalog != nil {
		catalog = *d.SetCatalog
	}
	if d.SetSchema != nil {
		schema = *d.SetSchema
	}
	if schema != "" && catalog == "" {
		logger.Warnf("dropping schema %q, the coordinator left no catalog", schema)
		schema = ""
	}
	cfg.Catalog, cfg.Schema = catalog, schema

	for _, k := range sortedKeys(d.SetSessionProperties) {
		v := d.SetSessionProperties[k]
		if err := validateSessionProperties(map[string]string{k: v}); err != nil {
			logger.Warnf("ignoring session property set by the coordinator: %v", err)
			continue
		}
		if cfg.SessionProperties == nil {
			cfg.SessionProperties = make(map[string]string, len(d.SetSessionProperties))
		}
		cfg.SessionProperties[k] = v
	}
	for _, k := range d.ClearedSessionProperties {
		delete(cfg.SessionProperties, k)
	}
	for _, name := range sortedKeys(d.AddedPreparedStatements) {
		stmt := d.AddedPreparedStatements[name]
		if err := validatePreparedStatements(map[string]string{name: stmt}); err != nil {
			logger.Warnf("ignoring prepared statement added by the coordinator: %v", err)
			continue
		}
		if cfg.PreparedStatements == nil {
			cfg.PreparedStatements = make(map[string]string, len(d.AddedPreparedStatements))
		}
		cfg.PreparedStatements[name] = stmt
	}
	for _, k := range d.DeallocatedPreparedStatements {
		delete(cfg.PreparedStatements, k)
	}
	if d.StartedTransactionID != "" {
		cfg.TransactionID = d.StartedTransactionID
	}
	if d.ClearTransactionID {
		cfg.TransactionID = ""
	}
}
