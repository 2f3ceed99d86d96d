// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import "fmt"

// ValidationError reports a missing or malformed argument, detected before
// any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid report request: %s: %s", e.Field, e.Message)
}

// DecodeError reports a response that is inconsistent with the request that
// produced it: an unresolved filter reference, a static table whose column
// count does not divide evenly, or a missing expected key.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return "cannot decode report response: " + e.Message
}

func decodeErrorf(format string, args ...any) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf(format, args...)}
}
