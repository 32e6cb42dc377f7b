// Copyright 2025 Poiesic Systems
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

package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Well-known registry keys.
const (
	EmbedderKey  = "embedder"
	ChatModelKey = "chat"
)

// Factory builds a provider instance on first use.
type Factory func(ctx context.Context) (any, error)

// Registry holds application-scoped, lazily constructed provider instances.
//
// Each key has its own initialization lock, so concurrent first use builds
// exactly one instance. Instances stay cached until Close. Leases are
// reference counted: Close tears down idle instances immediately and
// leased ones when their last lease is released.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
	logger  *slog.Logger
}

type registryEntry struct {
	init    sync.Mutex
	factory Factory
	value   any
	refs    int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		logger:  slog.Default().With("component", "ai-registry"),
	}
}

// Register associates a factory with a key. Registering a key twice is an error.
func (r *Registry) Register(key string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %q", ErrFactoryRequired, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, key)
	}
	r.entries[key] = &registryEntry{factory: factory}
	return nil
}

// Acquire returns the instance for key, building it on first use. The caller
// must call release exactly once when done; extra calls are ignored.
func (r *Registry) Acquire(ctx context.Context, key string) (any, func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrRegistryClosed
	}
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, key)
	}

	e.init.Lock()
	defer e.init.Unlock()

	r.mu.Lock()
	value := e.value
	r.mu.Unlock()

	built := false
	if value == nil {
		r.logger.Debug("constructing provider", "key", key)
		v, err := e.factory(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w %q: %w", ErrProviderInit, key, err)
		}
		value = v
		built = true
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if built {
			closeValue(value)
		}
		return nil, nil, ErrRegistryClosed
	}
	e.value = value
	e.refs++
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(key, e) })
	}
	return value, release, nil
}

func (r *Registry) release(key string, e *registryEntry) {
	r.mu.Lock()
	e.refs--
	var idle any
	if r.closed && e.refs == 0 {
		idle = e.value
		e.value = nil
	}
	r.mu.Unlock()

	if idle != nil {
		r.logger.Debug("closing released provider", "key", key)
		if err := closeValue(idle); err != nil {
			r.logger.Error("error closing provider", "key", key, "err", err)
		}
	}
}

// Refs reports the number of outstanding leases for key.
func (r *Registry) Refs(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.refs
	}
	return 0
}

// Embedder acquires the embedding provider.
func (r *Registry) Embedder(ctx context.Context) (Embedder, func(), error) {
	v, release, err := r.Acquire(ctx, EmbedderKey)
	if err != nil {
		return nil, nil, err
	}
	embedder, ok := v.(Embedder)
	if !ok {
		release()
		return nil, nil, fmt.Errorf("%w: %q is %T", ErrProviderType, EmbedderKey, v)
	}
	return embedder, release, nil
}

// ChatModel acquires the LLM provider.
func (r *Registry) ChatModel(ctx context.Context) (ChatModel, func(), error) {
	v, release, err := r.Acquire(ctx, ChatModelKey)
	if err != nil {
		return nil, nil, err
	}
	model, ok := v.(ChatModel)
	if !ok {
		release()
		return nil, nil, fmt.Errorf("%w: %q is %T", ErrProviderType, ChatModelKey, v)
	}
	return model, release, nil
}

// Close marks the registry closed and tears down idle instances.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	var idle []any
	for _, e := range r.entries {
		if e.refs == 0 && e.value != nil {
			idle = append(idle, e.value)
			e.value = nil
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, v := range idle {
		if err := closeValue(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeValue(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
