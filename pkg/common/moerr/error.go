// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package moerr is the internal-error vocabulary shared by every layer of
// this module. It does not try to be a general-purpose error package: the
// code list below is exactly the set of failure kinds coldata and its
// collaborators can raise. Every one of them means a caller contract was
// violated (see column_data_collection's error handling design) — there
// are no recoverable, user-surfaced errors at this layer.
package moerr

import (
	"context"
	"fmt"
)

type ErrorCode uint16

const (
	ErrInternal   ErrorCode = 20101
	ErrNYI        ErrorCode = 20102
	ErrOOM        ErrorCode = 20103
	ErrInvalidArg ErrorCode = 20203
	ErrOutOfRange ErrorCode = 20201
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInternal:
		return "internal error"
	case ErrNYI:
		return "not yet implemented"
	case ErrOOM:
		return "out of memory"
	case ErrInvalidArg:
		return "invalid argument"
	case ErrOutOfRange:
		return "out of range"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type every constructor in this package
// returns. It intentionally carries no stack trace or wire encoding:
// this layer has no persisted/remote error surface (see spec's
// "Persisted state / wire format: None").
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newError(_ context.Context, code ErrorCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// NewInternalError reports a violated invariant: a caller contract was
// broken (mismatched schema, corrupt descriptor chain, etc).
func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInternal, fmt.Sprintf(msg, args...))
}

// NewInternalErrorNoCtx is NewInternalError for call sites with no context
// to thread through (construction-time checks, background goroutines).
func NewInternalErrorNoCtx(msg string, args ...any) *Error {
	return NewInternalError(context.Background(), msg, args...)
}

// NewNYI reports an unsupported physical type or operation encountered at
// copy-function construction time: a programmer error in the caller, not
// a data problem.
func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrNYI, fmt.Sprintf(msg, args...))
}

func NewOOM(ctx context.Context) *Error {
	return newError(ctx, ErrOOM, "allocator exhausted")
}

func NewInvalidArg(ctx context.Context, arg string, val any) *Error {
	return newError(ctx, ErrInvalidArg, fmt.Sprintf("invalid %s: %v", arg, val))
}

func NewOutOfRange(ctx context.Context, what string, msg string, args ...any) *Error {
	return newError(ctx, ErrOutOfRange, fmt.Sprintf("%s: %s", what, fmt.Sprintf(msg, args...)))
}

// Is allows errors.Is(err, &moerr.Error{Code: moerr.ErrInternal}) style
// matching: any *Error target with the same Code matches.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}
