// Copyright 2025 The Fluxion Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates the failure classes raised by the engine. Each kind
// maps onto a distinct caller recovery strategy, so callers are expected to
// branch on the kind rather than on message text.
type ErrorKind int

const (
	ErrUnknownResource ErrorKind = iota
	ErrDuplicateDeclaration
	ErrResourceCycle
	ErrModuleCycle
	ErrUninitializedInput
	ErrProducerDidNotCommit
	ErrProducerOutputNotOwned
	ErrValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownResource:
		return "unknown resource"
	case ErrDuplicateDeclaration:
		return "duplicate declaration"
	case ErrResourceCycle:
		return "resource cycle"
	case ErrModuleCycle:
		return "module cycle"
	case ErrUninitializedInput:
		return "uninitialized input"
	case ErrProducerDidNotCommit:
		return "producer did not commit"
	case ErrProducerOutputNotOwned:
		return "producer output not owned"
	case ErrValidationFailed:
		return "validation failed"
	}
	return "unknown error kind"
}

// Error is the single error type raised by the engine. Name carries the
// offending resource (or module key), Path carries the full cycle for the two
// cycle kinds, and Detail describes which check failed.
type Error struct {
	Kind   ErrorKind
	Name   string
	Path   []string
	Detail string
}

func (e *Error) Error() string {
	sb := new(strings.Builder)
	sb.WriteString(e.Kind.String())
	if e.Name != "" {
		fmt.Fprintf(sb, ": '%s'", e.Name)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(sb, ": %s", strings.Join(e.Path, " -> "))
	}
	if e.Detail != "" {
		fmt.Fprintf(sb, ": %s", e.Detail)
	}
	return sb.String()
}

// IsKind reports whether err or any error it wraps is an engine Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind ErrorKind, name string, detail string) *Error {
	return &Error{Kind: kind, Name: name, Detail: detail}
}

func validationError(name string, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidationFailed, Name: name, Detail: fmt.Sprintf(format, args...)}
}
