// Package testing provides test utilities for the quantile project.
//
// It offers the error channel pattern for goroutines, so that partitions
// consumed in parallel can report failures without calling t.Fatal off the
// test goroutine, and builders for Arrow fixtures.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest provides safe testing utilities for goroutines.
//
// Using t.Fatal or t.FailNow in a goroutine causes the test to hang because
// these functions call runtime.Goexit() which only exits the current goroutine,
// not the test goroutine. GoroutineTest collects returned errors instead.
//
// Example usage:
//
//	func TestPartitions(t *testing.T) {
//	    gt := testutil.NewGoroutineTest(t)
//	    for _, part := range parts {
//	        gt.Go(func() error {
//	            return agg.Consume(part)
//	        })
//	    }
//	    gt.Wait()
//	}
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	return NewGoroutineTestWithTimeout(t, 0)
}

// NewGoroutineTestWithTimeout creates a GoroutineTest whose context expires
// after timeout. A zero timeout never expires.
func NewGoroutineTestWithTimeout(t *testing.T, timeout time.Duration) *GoroutineTest {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100), // buffered to avoid blocking
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in a goroutine and collects its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				gt.report(fmt.Errorf("panic: %v", r))
			}
		}()
		gt.report(fn())
	}()
}

// GoWithContext runs fn with the helper's context.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.Go(func() error { return fn(gt.ctx) })
}

func (gt *GoroutineTest) report(err error) {
	if err == nil {
		return
	}
	select {
	case gt.errors <- err:
	default:
		// Buffer full, error will be lost but test will still fail
	}
}

// Wait waits for all goroutines and reports collected errors on the test.
func (gt *GoroutineTest) Wait() {
	gt.t.Helper()

	gt.wg.Wait()
	gt.cancel()
	close(gt.errors)

	var failed bool
	for err := range gt.errors {
		gt.t.Errorf("goroutine error: %v", err)
		failed = true
	}
	if failed {
		gt.t.FailNow()
	}
}

// Context returns the helper's context.
func (gt *GoroutineTest) Context() context.Context {
	return gt.ctx
}
