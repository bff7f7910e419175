// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/provider"
)

var errSuperseded = errors.New("catalog superseded")

// State is the catalog as shown to the user.
type State struct {
	Models     []model.ModelInfo `json:"models"`
	Error      string            `json:"error,omitempty"`
	Loading    bool              `json:"loading"`
	Generation uint64            `json:"generation"`
}

// Service keeps the shown catalog in step with the configuration. Each
// refresh supersedes the previous one: the older fetch is cancelled and
// its result, if it still arrives, is discarded. The shown state therefore
// never regresses to a stale catalog.
type Service struct {
	fetcher *Fetcher
	holder  *config.Holder
	logger  *zap.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	base   context.Context
}

// NewService creates a service that reads settings from holder and writes
// the reconciled model selection back to it.
func NewService(fetcher *Fetcher, holder *config.Holder, logger *zap.Logger) *Service {
	done := make(chan struct{})
	close(done)
	return &Service{
		fetcher: fetcher,
		holder:  holder,
		logger:  logging.OrNop(logger),
		state:   State{Models: []model.ModelInfo{}},
		done:    done,
		base:    context.Background(),
	}
}

// Start subscribes to configuration changes and triggers the first
// refresh. A change of provider, endpoint or API key refreshes the catalog.
// The returned function unsubscribes and cancels any fetch in flight.
func (s *Service) Start(ctx context.Context) (stop func()) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	unsubscribe := s.holder.Subscribe(func(old, new *config.Config) {
		if !old.Provider.ConnectionEqual(new.Provider) {
			s.Refresh()
		}
	})
	s.Refresh()

	return func() {
		unsubscribe()
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
	}
}

// State returns a copy of the shown catalog.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Models = append([]model.ModelInfo(nil), s.state.Models...)
	return st
}

// SupportsReasoning reports whether the shown catalog marks id as
// reasoning-capable, falling back to the identifier check.
func (s *Service) SupportsReasoning(id string) bool {
	s.mu.Lock()
	for _, m := range s.state.Models {
		if m.ID == id {
			s.mu.Unlock()
			return m.SupportsReasoning
		}
	}
	s.mu.Unlock()
	return provider.IsReasoningModel(id)
}

// Refresh starts a fetch for the current settings, superseding any fetch
// in flight. The returned channel closes when this fetch has been applied
// or discarded.
func (s *Service) Refresh() <-chan struct{} {
	settings := s.holder.Settings()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.state.Loading = true
	s.state.Generation = gen
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		models, err := s.fetcher.Fetch(ctx, settings)
		s.apply(gen, models, err)
	}()

	return done
}

// RefreshAndWait refreshes and blocks until the result is applied or ctx
// is done.
func (s *Service) RefreshAndWait(ctx context.Context) State {
	done := s.Refresh()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.State()
}

// Wait blocks until the latest refresh has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) State {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.State()
}

func (s *Service) apply(gen uint64, models []model.ModelInfo, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded catalog", zap.Uint64("generation", gen))
		return
	}

	s.state.Loading = false
	if err != nil {
		s.state.Models = []model.ModelInfo{}
		s.state.Error = err.Error()
		s.mu.Unlock()
		s.logger.Warn("model catalog fetch failed", zap.Error(err))
		return
	}
	s.state.Models = models
	s.state.Error = ""
	s.mu.Unlock()

	s.logger.Debug("model catalog updated", zap.Int("models", len(models)), zap.Uint64("generation", gen))
	s.selectModel(gen, models)
}

// selectModel reconciles the configured model with the catalog of
// generation gen. The generation is checked again inside the holder
// update, so a fetch superseded after apply cannot overwrite the
// selection of a newer one.
func (s *Service) selectModel(gen uint64, models []model.ModelInfo) {
	var previous, selected string
	err := s.holder.Update(func(c *config.Config) error {
		s.mu.Lock()
		current := gen == s.gen
		s.mu.Unlock()
		if !current {
			return errSuperseded
		}
		previous = c.Provider.Model
		if next, changed := Reconcile(models, previous); changed {
			c.Provider.Model = next
			selected = next
		}
		return nil
	})
	switch {
	case errors.Is(err, errSuperseded):
		s.logger.Debug("discarding superseded model selection", zap.Uint64("generation", gen))
	case err != nil:
		s.logger.Warn("could not select model", zap.String("model", selected), zap.Error(err))
	case selected != "":
		s.logger.Info("selected model", zap.String("model", selected), zap.String("previous", previous))
	}
}
