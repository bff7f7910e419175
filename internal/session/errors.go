// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

// Rejections. None of them change the conversation.
var (
	ErrEmptyInput    = errors.New("message is empty")
	ErrBusy          = errors.New("a message is already being sent")
	ErrNotConfigured = errors.New("no endpoint configured")
	ErrNotFound      = errors.New("session not found")
)

// ErrorPrefix starts the content of an assistant turn that reports a
// failed send.
const ErrorPrefix = "Error: "
