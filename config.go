package gopresto

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Flavor selects the vendor header family spoken by the coordinator.
type Flavor string

const (
	// FlavorPresto sends X-Presto-* headers
	FlavorPresto Flavor = "presto"
	// FlavorTrino sends X-Trino-* headers
	FlavorTrino Flavor = "trino"
)

const (
	defaultSource           = "gopresto"
	defaultTimeZone         = "UTC"
	defaultMaxRetryAttempts = 5
	maxRetryAttemptsLimit   = 20
	defaultRetryBaseDelay   = time.Second
	statementPath           = "/v1/statement"
)

// Config is the session configuration of a Client.
type Config struct {
	Host string // coordinator host name
	Port int    // coordinator port. 0 means the scheme default
	SSL  bool   // use https

	User        string // user name, required
	Password    string // basic authentication password (optional)
	AccessToken string // bearer token (optional, exclusive with Password)

	Catalog    string
	Schema     string // requires Catalog
	Locale     string // BCP-47 language tag sent as X-*-Language
	TimeZone   string // IANA zone name, defaults to UTC
	Source     string // defaults to "gopresto"
	ClientInfo string
	ClientTags []string // tags must not contain commas

	SessionProperties  map[string]string
	PreparedStatements map[string]string // name -> SQL text

	// TransactionID is the transaction started by the coordinator, if any.
	// It is maintained from response headers.
	TransactionID string

	Debug   bool          // log the statistics of every page
	Timeout time.Duration // client-side timeout of one statement, <= 0 is unbounded

	Flavor             Flavor // defaults to FlavorPresto
	MaxRetryAttempts   int    // attempts per request on 503, defaults to 5
	RetryBaseDelay     time.Duration
	InsecureSkipVerify bool
	Transporter        http.RoundTripper // replaces the default transport when set
}

// Copy returns a deep copy of the configuration.
func (c *Config) Copy() *Config {
	cp := *c
	cp.ClientTags = append([]string(nil), c.ClientTags...)
	cp.SessionProperties = copyStringMap(c.SessionProperties)
	cp.PreparedStatements = copyStringMap(c.PreparedStatements)
	return &cp
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func (c *Config) fillMissingConfigParameters() {
	if c.Source == "" {
		c.Source = defaultSource
	}
	if c.TimeZone == "" {
		c.TimeZone = defaultTimeZone
	}
	if c.Flavor == "" {
		c.Flavor = FlavorPresto
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = defaultMaxRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
}

// Validate checks the configuration without sending anything.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrEmptyHost
	}
	if c.Port < 0 || c.Port > 65535 {
		return ErrFailedToParsePort.withArgs(c.Port)
	}
	if c.User == "" {
		return ErrEmptyUser
	}
	if c.Schema != "" && c.Catalog == "" {
		return ErrSchemaWithoutCatalog.withArgs(c.Schema)
	}
	if c.MaxRetryAttempts > maxRetryAttemptsLimit {
		return ErrInvalidMaxRetryAttempts.withArgs(c.MaxRetryAttempts, maxRetryAttemptsLimit)
	}
	if err := validateClientTags(c.ClientTags); err != nil {
		return err
	}
	if err := validateSessionProperties(c.SessionProperties); err != nil {
		return err
	}
	if err := validatePreparedStatements(c.PreparedStatements); err != nil {
		return err
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return ErrInvalidLocale.withArgs(c.Locale, err)
		}
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return ErrInvalidTimeZone.withArgs(c.TimeZone, err)
		}
	}
	switch c.Flavor {
	case "", FlavorPresto, FlavorTrino:
	default:
		return ErrInvalidFlavor.withArgs(c.Flavor)
	}
	return validateCredentials(c.Password, c.AccessToken, time.Now())
}

func validateClientTags(tags []string) error {
	for _, tag := range tags {
		if strings.Contains(tag, ",") {
			return ErrInvalidClientTag.withArgs(tag)
		}
	}
	return nil
}

func validateSessionProperties(props map[string]string) error {
	for k, v := range props {
		switch {
		case k == "":
			return ErrInvalidSessionProperty.withArgs(k, "key is empty")
		case strings.Contains(k, "="):
			return ErrInvalidSessionProperty.withArgs(k, "key contains '='")
		case !isASCII(k):
			return ErrInvalidSessionProperty.withArgs(k, "key is not ASCII")
		case !isASCII(v):
			return ErrInvalidSessionProperty.withArgs(k, "value is not ASCII")
		}
	}
	return nil
}

func validatePreparedStatements(stmts map[string]string) error {
	for name := range stmts {
		if name == "" {
			return ErrInvalidPreparedStatement
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (c *Config) scheme() string {
	if c.SSL {
		return "https"
	}
	return "http"
}

// baseURL returns scheme://host[:port], omitting the port when it is the
// scheme default.
func (c *Config) baseURL() *url.URL {
	host := c.Host
	switch {
	case c.Port == 0:
	case c.SSL && c.Port == 443:
	case !c.SSL && c.Port == 80:
	default:
		host = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	return &url.URL{Scheme: c.scheme(), Host: host}
}

// statementURL is the submission endpoint.
func (c *Config) statementURL() string {
	u := c.baseURL()
	u.Path = statementPath
	return u.String()
}

// canonicalLocale returns the locale as a canonical BCP-47 tag, or the input
// if it cannot be parsed.
func canonicalLocale(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	return tag.String()
}

func (c *Config) String() string {
	return fmt.Sprintf("%v://%v@%v catalog=%v schema=%v", c.scheme(), c.User, c.baseURL().Host, c.Catalog, c.Schema)
}
