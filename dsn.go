// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dsnSeparator        = ";"
	dsnClientTagSep     = "|"
	sessionParamPrefix  = "session."
	preparedParamPrefix = "prepared."
)

var errUnknownParameter = errors.New("unknown parameter")

// ParseDSN parses a connection string of the form
//
//	host=coordinator;port=8080;user=alice;catalog=hive;schema=default;session.query_max_run_time=1h
//
// Values may be percent-encoded. The returned Config is not validated.
func ParseDSN(dsn string) (*Config, error) {
	cfg := &Config{}
	for _, part := range strings.Split(dsn, dsnSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, ErrInvalidDSNParameter.withArgs(part, "missing '='")
		}
		key = strings.TrimSpace(key)
		if err := setConfigParam(cfg, key, urlDecode(strings.TrimSpace(value))); err != nil {
			return nil, ErrInvalidDSNParameter.withArgs(key, err)
		}
	}
	return cfg, nil
}

// DSN formats cfg as a connection string accepted by ParseDSN. Keys are
// emitted in a fixed order; unset fields are omitted.
func DSN(cfg *Config) string {
	var params []string
	add := func(k, v string) {
		if v != "" {
			params = append(params, k+"="+url.QueryEscape(v))
		}
	}
	add("host", cfg.Host)
	if cfg.Port != 0 {
		add("port", strconv.Itoa(cfg.Port))
	}
	if cfg.SSL {
		add("ssl", "true")
	}
	add("user", cfg.User)
	add("password", cfg.Password)
	add("accesstoken", cfg.AccessToken)
	add("catalog", cfg.Catalog)
	add("schema", cfg.Schema)
	add("locale", cfg.Locale)
	add("timezone", cfg.TimeZone)
	add("source", cfg.Source)
	add("clientinfo", cfg.ClientInfo)
	add("clienttags", strings.Join(cfg.ClientTags, dsnClientTagSep))
	if cfg.Timeout > 0 {
		add("timeout", strconv.FormatInt(int64(cfg.Timeout/time.Second), 10))
	}
	add("flavor", string(cfg.Flavor))
	if cfg.Debug {
		add("debug", "true")
	}
	if cfg.MaxRetryAttempts > 0 {
		add("maxretryattempts", strconv.Itoa(cfg.MaxRetryAttempts))
	}
	if cfg.InsecureSkipVerify {
		add("insecureskipverify", "true")
	}
	for _, k := range sortedKeys(cfg.SessionProperties) {
		add(sessionParamPrefix+k, cfg.SessionProperties[k])
	}
	for _, k := range sortedKeys(cfg.PreparedStatements) {
		add(preparedParamPrefix+k, cfg.PreparedStatements[k])
	}
	return strings.Join(params, dsnSeparator)
}

// setConfigParam sets one named parameter. value is a string for connection
// strings and a decoded TOML value for connections.toml.
func setConfigParam(cfg *Config, key string, value interface{}) error {
	var err error
	lower := strings.ToLower(key)
	switch {
	case strings.HasPrefix(lower, sessionParamPrefix):
		var v string
		if v, err = parseString(value); err != nil {
			return err
		}
		if cfg.SessionProperties == nil {
			cfg.SessionProperties = make(map[string]string)
		}
		cfg.SessionProperties[key[len(sessionParamPrefix):]] = v
		return nil
	case strings.HasPrefix(lower, preparedParamPrefix):
		var v string
		if v, err = parseString(value); err != nil {
			return err
		}
		if cfg.PreparedStatements == nil {
			cfg.PreparedStatements = make(map[string]string)
		}
		cfg.PreparedStatements[key[len(preparedParamPrefix):]] = v
		return nil
	}

	switch lower {
	case "host":
		cfg.Host, err = parseString(value)
	case "port":
		cfg.Port, err = parseInt(value)
	case "ssl":
		cfg.SSL, err = parseBool(value)
	case "user", "username":
		cfg.User, err = parseString(value)
	case "password":
		cfg.Password, err = parseString(value)
	case "accesstoken", "access_token", "token":
		cfg.AccessToken, err = parseString(value)
	case "catalog":
		cfg.Catalog, err = parseString(value)
	case "schema":
		cfg.Schema, err = parseString(value)
	case "locale", "language":
		cfg.Locale, err = parseString(value)
	case "timezone", "time_zone":
		cfg.TimeZone, err = parseString(value)
	case "source":
		cfg.Source, err = parseString(value)
	case "clientinfo", "client_info":
		cfg.ClientInfo, err = parseString(value)
	case "clienttags", "client_tags":
		cfg.ClientTags, err = parseStringList(value)
	case "timeout":
		cfg.Timeout, err = parseDuration(value)
	case "flavor":
		var v string
		v, err = parseString(value)
		cfg.Flavor = Flavor(strings.ToLower(v))
	case "debug":
		cfg.Debug, err = parseBool(value)
	case "maxretryattempts", "max_retry_attempts":
		cfg.MaxRetryAttempts, err = parseInt(value)
	case "insecureskipverify", "insecure_skip_verify":
		cfg.InsecureSkipVerify, err = parseBool(value)
	default:
		return errUnknownParameter
	}
	return err
}

func parseString(i interface{}) (string, error) {
	v, ok := i.(string)
	if !ok {
		return "", fmt.Errorf("failed to convert %v (%T) to string", i, i)
	}
	return v, nil
}

func parseInt(i interface{}) (int, error) {
	switch v := i.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, fmt.Errorf("failed to convert %v (%T) to integer", i, i)
}

func parseBool(i interface{}) (bool, error) {
	switch v := i.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("failed to convert %v (%T) to boolean", i, i)
}

// parseDuration reads a number of seconds, or a Go duration such as "90s".
func parseDuration(i interface{}) (time.Duration, error) {
	if s, ok := i.(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	n, err := parseInt(i)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// parseStringList reads a '|' separated string or a TOML array of strings.
func parseStringList(i interface{}) ([]string, error) {
	switch v := i.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		return strings.Split(v, dsnClientTagSep), nil
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, e := range v {
			s, err := parseString(e)
			if err != nil {
				return nil, err
			}
			list = append(list, s)
		}
		return list, nil
	case []string:
		return v, nil
	}
	return nil, fmt.Errorf("failed to convert %v (%T) to a list of strings", i, i)
}

// sortedParamKeys returns the keys of a decoded TOML table in a stable order.
func sortedParamKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
