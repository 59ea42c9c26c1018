package gopresto

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// transportConfig holds the configuration for creating HTTP transports
type transportConfig struct {
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	DialTimeout     time.Duration
	KeepAlive       time.Duration
}

// defaultTransportConfig returns the standard transport configuration
func defaultTransportConfig() *transportConfig {
	return &transportConfig{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Minute,
		DialTimeout:     30 * time.Second,
		KeepAlive:       30 * time.Second,
	}
}

func createBaseTransport(transportConfig *transportConfig, tlsConfig *tls.Config) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   transportConfig.DialTimeout,
		KeepAlive: transportConfig.KeepAlive,
	}

	return &http.Transport{
		TLSClientConfig: tlsConfig,
		MaxIdleConns:    transportConfig.MaxIdleConns,
		IdleConnTimeout: transportConfig.IdleConnTimeout,
		Proxy:           http.ProxyFromEnvironment,
		DialContext:     dialer.DialContext,
	}
}

// newHTTPClient builds the client shared by every statement of a Client.
// Both the transport and the cookie jar are safe for concurrent use.
func newHTTPClient(cfg *Config) *http.Client {
	transport := cfg.Transporter
	if transport == nil {
		var tlsConfig *tls.Config
		if cfg.InsecureSkipVerify {
			logger.Warn("TLS certificate verification is disabled")
			tlsConfig = &tls.Config{InsecureSkipVerify: true}
		}
		transport = createBaseTransport(defaultTransportConfig(), tlsConfig)
	}
	// cookiejar.New only fails on a non-nil PublicSuffixList error
	jar, _ := cookiejar.New(nil)
	return &http.Client{Transport: transport, Jar: jar}
}
