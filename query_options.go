package gopresto

import (
	"github.com/google/uuid"
)

// QueryOptions are per-statement additions to the session configuration.
// They never modify the Client's Config.
type QueryOptions struct {
	// ClientTags are added to the session tags.
	ClientTags []string
	// PreparedStatements fill in names the session does not define.
	PreparedStatements map[string]string
	// SessionProperties are sent after the session's own properties.
	SessionProperties map[string]string
	// TransactionID overrides the session transaction. nil sends the
	// session transaction, or NONE when there is none.
	TransactionID *string
	// TraceToken is sent as X-*-Trace-Token. A random one is generated when empty.
	TraceToken string
}

func (o *QueryOptions) validate() error {
	if err := validateClientTags(o.ClientTags); err != nil {
		return err
	}
	if err := validateSessionProperties(o.SessionProperties); err != nil {
		return err
	}
	return validatePreparedStatements(o.PreparedStatements)
}

// withDefaults returns a copy of o, or of the zero options, with a trace token.
func (o *QueryOptions) withDefaults() *QueryOptions {
	var cp QueryOptions
	if o != nil {
		cp = *o
	}
	if cp.TraceToken == "" {
		cp.TraceToken = uuid.New().String()
	}
	return &cp
}
