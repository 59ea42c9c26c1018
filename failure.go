package gopresto

import (
	"fmt"
	"strings"
)

// FailureError is a FailureInfo converted into a Go error chain. errors.Is
// and errors.As walk the cause first and then the suppressed failures.
type FailureError struct {
	Type       string
	Message    string
	Location   *ErrorLocation
	Stack      []string
	Cause      error
	Suppressed []error
}

// Err converts the failure tree into a *FailureError. It returns nil for a
// nil receiver.
func (fi *FailureInfo) Err() error {
	if fi == nil {
		return nil
	}
	fe := &FailureError{
		Type:     fi.Type,
		Message:  fi.Message,
		Location: fi.ErrorLocation,
		Stack:    fi.Stack,
	}
	if fi.Cause != nil {
		fe.Cause = fi.Cause.Err()
	}
	for i := range fi.Suppressed {
		fe.Suppressed = append(fe.Suppressed, fi.Suppressed[i].Err())
	}
	return fe
}

func (fe *FailureError) Error() string {
	if fe.Message == "" {
		return fe.Type
	}
	return fmt.Sprintf("%v: %v", fe.Type, fe.Message)
}

func (fe *FailureError) Unwrap() []error {
	errs := make([]error, 0, len(fe.Suppressed)+1)
	if fe.Cause != nil {
		errs = append(errs, fe.Cause)
	}
	return append(errs, fe.Suppressed...)
}

// StackTrace renders the failure, its frames and its causes the way the
// server printed them.
func (fe *FailureError) StackTrace() string {
	var b strings.Builder
	fe.writeStack(&b, "")
	return strings.TrimRight(b.String(), "\n")
}

func (fe *FailureError) writeStack(b *strings.Builder, prefix string) {
	b.WriteString(prefix)
	b.WriteString(fe.Error())
	b.WriteString("\n")
	for _, frame := range fe.Stack {
		b.WriteString("\tat ")
		b.WriteString(frame)
		b.WriteString("\n")
	}
	for _, s := range fe.Suppressed {
		if sfe, ok := s.(*FailureError); ok {
			sfe.writeStack(b, "\tSuppressed: ")
		}
	}
	if cfe, ok := fe.Cause.(*FailureError); ok {
		cfe.writeStack(b, "Caused by: ")
	}
}
