// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the active chat conversation.
//
// The Manager holds the active session's id and messages, sends each user
// turn through the provider adapters, and persists the session after every
// change. It moves between two states, idle and sending. A send issued
// while another is in flight is rejected, never queued.
//
// # Key Types
//
//   - Manager: The conversation controller
//   - Config: Collaborators the manager is built from
//   - Snapshot: A point-in-time copy of the conversation state
//
// # Usage
//
//	mgr := session.NewManager(session.Config{
//	    Store:     store,
//	    Holder:    holder,
//	    Client:    provider.NewClient(),
//	    Reasoning: catalogService.SupportsReasoning,
//	    Logger:    logger,
//	})
//	mgr.Refresh(ctx)
//
//	reply, err := mgr.Send(ctx, "Hello")
//	switch {
//	case errors.Is(err, session.ErrBusy):
//	    // A send is already in flight
//	case err != nil:
//	    // reply holds the "Error: ..." turn that was appended
//	}
//
// # Persistence
//
// Storage failures are logged and never interrupt the conversation. A
// crash between a change and its write loses that turn.
package session
