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

// Package workpool runs blocking work (model calls, database scans, metric
// computation) on a shared bounded pool so callers never block on it
// directly.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// ErrPanic wraps a panic recovered from submitted work.
var ErrPanic = errors.New("workpool: task panicked")

// Pool is a bounded worker pool shared by the components of one application.
// slots holds one token per submitted task so a waiting caller can give up.
type Pool struct {
	pool  *ants.Pool
	slots chan struct{}
}

// DefaultSize is runtime.NumCPU(), with a minimum of 1.
func DefaultSize() int {
	size := runtime.NumCPU()
	if size < 1 {
		size = 1
	}
	return size
}

// New creates a pool with at most size concurrent workers. Calls beyond that
// wait for a free worker or for their context to end.
func New(size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: pool, slots: make(chan struct{}, size)}, nil
}

// Cap returns the maximum number of concurrent workers.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops the pool. Pending Do calls fail with ants.ErrPoolClosed.
func (p *Pool) Release() {
	p.pool.Release()
}

type outcome[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for its result.
//
// fn receives a context that is never cancelled: once started, the work runs
// to completion. If ctx ends first, Do returns ctx.Err() and the result is
// discarded. A call waiting for a free worker gives up when ctx ends, and fn
// is then never run.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	detached := context.WithoutCancel(ctx)
	done := make(chan outcome[T], 1)
	err := p.pool.Submit(func() {
		defer func() { <-p.slots }()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(detached)
		done <- outcome[T]{value: v, err: err}
	})
	if err != nil {
		<-p.slots
		return zero, err
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Run is Do for work without a result.
func Run(ctx context.Context, p *Pool, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
