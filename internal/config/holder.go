// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"reflect"
	"sync"

	"github.com/jeranaias/rigrun-chat/internal/provider"
)

// ChangeFunc is called after the configuration changes. Both values are
// private copies.
type ChangeFunc func(old, new *Config)

// Holder is the live configuration shared by the chat core and its outer
// surfaces. Reads return copies; writes go through Update, which validates,
// persists and notifies subscribers.
//
// Holder is safe for concurrent use.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string

	subMu  sync.Mutex
	subs   map[int]ChangeFunc
	nextID int
}

// NewHolder wraps cfg. When path is non-empty, updates are saved there.
func NewHolder(cfg *Config, path string) *Holder {
	if cfg == nil {
		cfg = Default()
	}
	return &Holder{cfg: cfg.Clone(), path: path, subs: make(map[int]ChangeFunc)}
}

// Path returns the file updates are saved to.
func (h *Holder) Path() string {
	return h.path
}

// Get returns a copy of the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Clone()
}

// Settings returns the current provider settings.
func (h *Holder) Settings() provider.Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Provider
}

// SystemPrompt returns the current system prompt.
func (h *Holder) SystemPrompt() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Chat.SystemPrompt
}

// Update applies fn to a copy of the configuration. The copy is validated,
// saved when the holder has a path, and only then made current.
// Subscribers are notified when anything changed.
func (h *Holder) Update(fn func(*Config) error) error {
	h.mu.Lock()
	old := h.cfg
	next := old.Clone()
	if err := fn(next); err != nil {
		h.mu.Unlock()
		return err
	}
	next.SetDefaults()
	if err := next.Validate(); err != nil {
		h.mu.Unlock()
		return err
	}
	if reflect.DeepEqual(old, next) {
		h.mu.Unlock()
		return nil
	}
	if h.path != "" {
		if err := Save(next, h.path); err != nil {
			h.mu.Unlock()
			return err
		}
	}
	h.cfg = next
	h.mu.Unlock()

	h.notify(old, next)
	return nil
}

// Replace swaps in cfg wholesale, as after a reload from disk. It does not
// save. Subscribers are notified when anything changed.
func (h *Holder) Replace(cfg *Config) {
	h.mu.Lock()
	old := h.cfg
	if reflect.DeepEqual(old, cfg) {
		h.mu.Unlock()
		return
	}
	h.cfg = cfg.Clone()
	next := h.cfg
	h.mu.Unlock()

	h.notify(old, next)
}

// SetModel selects a model.
func (h *Holder) SetModel(id string) error {
	return h.Update(func(c *Config) error {
		c.Provider.Model = id
		return nil
	})
}

// SetSettings replaces the provider settings.
func (h *Holder) SetSettings(s provider.Settings) error {
	return h.Update(func(c *Config) error {
		c.Provider = s
		return nil
	})
}

// SetSystemPrompt replaces the system prompt.
func (h *Holder) SetSystemPrompt(prompt string) error {
	return h.Update(func(c *Config) error {
		c.Chat.SystemPrompt = prompt
		return nil
	})
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs on the goroutine that made the change and must
// not block.
func (h *Holder) Subscribe(fn ChangeFunc) (unsubscribe func()) {
	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.subMu.Unlock()

	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

func (h *Holder) notify(old, next *Config) {
	h.subMu.Lock()
	fns := make([]ChangeFunc, 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()

	for _, fn := range fns {
		fn(old.Clone(), next.Clone())
	}
}
