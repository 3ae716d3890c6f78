package db

import (
	"context"
	"sync"
)

var (
	_ Transactor    = (*LocalTransactor)(nil)
	_ HealthChecker = (*LocalTransactor)(nil)
)

// LocalTransactor serializes units of work for in-process stores. Repositories
// used with it keep their own state and receive a nil DB handle.
type LocalTransactor struct {
	mu sync.Mutex
}

func NewLocalTransactor() *LocalTransactor {
	return &LocalTransactor{}
}

func (t *LocalTransactor) WithTx(_ context.Context, txFunc func(DB) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return txFunc(nil)
}

func (t *LocalTransactor) IsHealthy(context.Context) (bool, error) {
	return true, nil
}
