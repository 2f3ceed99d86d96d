// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package cja // import "github.com/querypath/cjareport/cja"

import "fmt"

// TransportError reports a failure to reach the CJA API at all: connection
// refused, DNS failure, timeout, or a body that could not be read.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("CJA transport error on %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError reports a non-2xx response carrying an error payload from the
// CJA API.
type ServiceError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Endpoint   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("CJA API error (%d) on %s: %s %s", e.StatusCode, e.Endpoint, e.ErrorCode, e.Message)
}

// NotFoundError reports a metadata lookup for an id the service does not know.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("CJA %s %q not found", e.Kind, e.ID)
}
