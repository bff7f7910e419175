// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/provider"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitStorageError  = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command action with its cause.
type CommandError struct {
	Command string // e.g. "sessions"
	Action  string // e.g. "export"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is invalid command-line input.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// NotFoundError is a missing session or model.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// ErrMissingArgument reports a missing positional argument.
func ErrMissingArgument(name, usage string) error {
	return &UsageError{Reason: "missing required argument: " + name, Example: usage}
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub string) error {
	return &UsageError{
		Reason:  fmt.Sprintf("unknown %s subcommand: %s", command, sub),
		Example: "rigrun-chat help",
	}
}

// reportedError is an error the command already showed to the user. It
// still decides the exit code.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

func markReported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON response in JSON mode. Errors
// the command already reported are not repeated.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	var reported reportedError
	if err == nil || errors.As(err, &reported) {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Print(w)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) || errors.Is(err, session.ErrNotFound) {
		return ExitNotFoundError
	}
	var verrs config.ValidateErrors
	if errors.As(err, &verrs) || errors.Is(err, session.ErrNotConfigured) {
		return ExitConfigError
	}
	if errors.Is(err, storage.ErrUnavailable) {
		return ExitStorageError
	}
	var netErr net.Error
	if provider.IsHTTPError(err) || errors.As(err, &netErr) {
		return ExitNetworkError
	}
	return ExitGeneralError
}
