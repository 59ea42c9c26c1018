package logger

import (
	"regexp"
)

const (
	basicAuthPattern     = `(?i)(basic)\s+([a-z0-9+/]{4,}={0,2})`
	bearerTokenPattern   = `(?i)(bearer)\s+([a-z0-9._~+/\-]{8,}=*)`
	jwtTokenPattern      = `([a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,})` // pragma: allowlist secret
	passwordPattern      = `(?i)(password|pwd|accesstoken|access_token)([\'\"\s:=]+)([^\s;&\'\"]{1,})`
	urlCredentialPattern = `(https?://)([^/:@\s]+):([^@/\s]+)@`
)

var (
	basicAuthRegexp     = regexp.MustCompile(basicAuthPattern)
	bearerTokenRegexp   = regexp.MustCompile(bearerTokenPattern)
	jwtTokenRegexp      = regexp.MustCompile(jwtTokenPattern)
	passwordRegexp      = regexp.MustCompile(passwordPattern)
	urlCredentialRegexp = regexp.MustCompile(urlCredentialPattern)
)

type secretmasker string

func (s secretmasker) maskBasicAuth() secretmasker {
	return secretmasker(basicAuthRegexp.ReplaceAllString(s.String(), "$1 ****"))
}

func (s secretmasker) maskBearerToken() secretmasker {
	return secretmasker(bearerTokenRegexp.ReplaceAllString(s.String(), "$1 ****"))
}

func (s secretmasker) maskJwtToken() secretmasker {
	return secretmasker(jwtTokenRegexp.ReplaceAllString(s.String(), "****"))
}

func (s secretmasker) maskPassword() secretmasker {
	return secretmasker(passwordRegexp.ReplaceAllString(s.String(), "$1${2}****"))
}

func (s secretmasker) maskURLCredential() secretmasker {
	return secretmasker(urlCredentialRegexp.ReplaceAllString(s.String(), "$1$2:****@"))
}

func (s secretmasker) String() string {
	return string(s)
}

// MaskSecrets masks credentials in text. Exported for the root package and its tests.
func MaskSecrets(text string) string {
	return secretmasker(text).
		maskBasicAuth().
		maskBearerToken().
		maskJwtToken().
		maskPassword().
		maskURLCredential().
		String()
}
