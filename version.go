package gopresto

import (
	"fmt"
	"runtime"
)

// GoPrestoVersion is the version of the client
const GoPrestoVersion = "0.3.0"

var userAgent = fmt.Sprintf("gopresto/%s (%s; %s)", GoPrestoVersion, runtime.GOOS, runtime.Version())
