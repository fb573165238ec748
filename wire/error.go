// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of wire decoding failure.
type ErrorCode int

// These constants are used to identify a specific MessageError.
const (
	// ErrMalformedEncoding indicates bytes that do not parse: truncated
	// data, out-of-range length prefixes, non-canonical varints or a
	// declared length above a hard ceiling. Always fatal to the message.
	ErrMalformedEncoding ErrorCode = iota

	// ErrUnknownMessageType indicates a well-framed message whose command
	// is not registered. The payload has been consumed, so the stream can
	// continue with the next message.
	ErrUnknownMessageType

	// ErrChecksumMismatch indicates the payload does not hash to the
	// checksum carried in the message header.
	ErrChecksumMismatch

	// ErrStreamDesynchronized indicates no network magic could be found
	// within the allowed number of bytes.
	ErrStreamDesynchronized
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMalformedEncoding:    "ErrMalformedEncoding",
	ErrUnknownMessageType:   "ErrUnknownMessageType",
	ErrChecksumMismatch:     "ErrChecksumMismatch",
	ErrStreamDesynchronized: "ErrStreamDesynchronized",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// MessageError describes an issue with a message.
// An example of some potential issues are messages from the wrong bitcoin
// network, invalid commands, mismatched checksums, and exceeding max payloads.
//
// This provides a mechanism for the caller to type assert the error to
// differentiate between general io errors such as io.EOF and issues that
// resulted from malformed messages.
type MessageError struct {
	Code        ErrorCode // Describes the kind of error
	Func        string    // Function name
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s", e.Func, e.Description)
	}
	return e.Description
}

// messageError creates an error for the given function and description.
func messageError(code ErrorCode, f string, desc string) error {
	return errors.WithStack(&MessageError{Code: code, Func: f, Description: desc})
}

// malformedError wraps a low level read failure as ErrMalformedEncoding,
// leaving errors that are already classified untouched.
func malformedError(f string, err error) error {
	if err == nil {
		return nil
	}
	var msgErr *MessageError
	if errors.As(err, &msgErr) {
		return err
	}
	return messageError(ErrMalformedEncoding, f, err.Error())
}

// IsErrorCode returns whether or not the provided error is a MessageError
// with the provided error code.
func IsErrorCode(err error, c ErrorCode) bool {
	var msgErr *MessageError
	if errors.As(err, &msgErr) {
		return msgErr.Code == c
	}
	return false
}
