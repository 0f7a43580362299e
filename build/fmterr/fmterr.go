// Copyright 2025 Google LLC
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

// Package fmterr provides the two classes of errors reported by the compiler passes:
// internal errors, raised when a precondition set by a previous pass does not hold,
// and unsupported errors, raised when the input uses a known missing feature.
package fmterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnsupported is the root of all errors reporting a construct
// that the compiler does not implement.
var ErrUnsupported = errors.New("not supported yet")

type internalError struct {
	err error
}

// Internal marks an error as a violated precondition.
// Such an error is a bug in a previous pass and is never recovered from.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return internalError{err: err}
}

// Internalf returns a new internal error with a stack trace.
func Internalf(format string, a ...any) error {
	return Internal(errors.Errorf(format, a...))
}

func (err internalError) Error() string {
	return fmt.Sprintf("meshc internal error. This is a bug in a previous compiler pass. Error:\n%s", err.err.Error())
}

func (err internalError) Unwrap() error {
	return err.err
}

func (err internalError) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

// IsInternal returns true if the error, or an error it wraps, is an internal error.
func IsInternal(err error) bool {
	var internal internalError
	return errors.As(err, &internal)
}

// Unsupported returns an error for a construct the compiler does not implement.
// The error wraps ErrUnsupported.
func Unsupported(format string, a ...any) error {
	return errors.Wrapf(ErrUnsupported, format, a...)
}

// IsUnsupported returns true if the error reports a missing feature.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// PrefixWith returns a function prefixing an error with a formatted string.
// The returned error keeps its class.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}
