// loading.go: GetOrLoad with singleflight deduplication and negative caching
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// inflightCall tracks one in-flight loader invocation. Waiters block on wg
// (or select on done, for context-aware callers) instead of each spawning
// their own loader, so a cache stampede on a single cold key runs the
// loader exactly once.
type inflightCall[V any] struct {
	wg   sync.WaitGroup
	val  atomic.Value // *resultWrapper[V]
	err  atomic.Value // *errorWrapper
	done chan struct{}
}

type resultWrapper[V any] struct{ value V }
type errorWrapper struct{ err error }

// negativeEntry remembers a loader failure so GetOrLoad doesn't retry a
// consistently-failing loader on every call within Config.NegativeCacheTTL.
type negativeEntry struct {
	err      error
	expireAt int64
}

func (c *Cache[K, V]) loadNegative(key K) (error, bool) {
	ttl := c.negativeCacheTTL.Load()
	if ttl <= 0 {
		return nil, false
	}
	v, ok := c.negativeCache.Load(key)
	if !ok {
		return nil, false
	}
	neg := v.(negativeEntry)
	if c.cfg.Clock.Now() > neg.expireAt {
		c.negativeCache.Delete(key)
		return nil, false
	}
	return neg.err, true
}

func (c *Cache[K, V]) storeNegative(key K, err error) {
	ttl := c.negativeCacheTTL.Load()
	if ttl <= 0 {
		return
	}
	c.negativeCache.Store(key, negativeEntry{
		err:      err,
		expireAt: c.cfg.Clock.Now() + ttl,
	})
}

func flightResult[V any](flight *inflightCall[V]) (V, error) {
	var zero V
	vw, _ := flight.val.Load().(*resultWrapper[V])
	ew, _ := flight.err.Load().(*errorWrapper)
	if vw == nil {
		return zero, nil
	}
	if ew != nil {
		return vw.value, ew.err
	}
	return vw.value, nil
}

// GetOrLoad returns key's cached value, or calls loader to produce it and
// caches the result with the configured WeightFn and no TTL. Concurrent
// GetOrLoad calls for the same missing key share a single loader
// invocation. A loader error is not cached unless Config.NegativeCacheTTL is
// set, in which case it's remembered for that long to spare a failing
// backend from being hammered.
func (c *Cache[K, V]) GetOrLoad(key K, loader func() (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, NewErrInvalidLoader(fmt.Sprintf("%v", key))
	}

	if value, found := c.Get(key); found {
		return value, nil
	}
	if err, found := c.loadNegative(key); found {
		return zero, err
	}

	newFlight := &inflightCall[V]{done: make(chan struct{})}
	newFlight.wg.Add(1)

	actual, loaded := c.inflight.LoadOrStore(key, newFlight)
	flight := actual.(*inflightCall[V])

	if loaded {
		flight.wg.Wait()
		return flightResult(flight)
	}

	defer func() {
		close(flight.done)
		flight.wg.Done()
		c.inflight.Delete(key)
	}()

	var loaderVal V
	var loaderErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				loaderErr = NewErrPanicRecovered(fmt.Sprintf("GetOrLoad:%v", key), r)
			}
		}()
		loaderVal, loaderErr = loader()
	}()

	flight.val.Store(&resultWrapper[V]{value: loaderVal})
	flight.err.Store(&errorWrapper{err: loaderErr})

	if loaderErr == nil {
		c.Put(key, loaderVal)
	} else {
		c.storeNegative(key, loaderErr)
	}

	return loaderVal, loaderErr
}

// GetOrLoadWithContext is like GetOrLoad but respects ctx: a waiter races its
// own cancellation against the loader's completion instead of blocking
// unconditionally, while the loader itself still runs to completion for
// whichever caller started it.
func (c *Cache[K, V]) GetOrLoadWithContext(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, NewErrInvalidLoader(fmt.Sprintf("%v", key))
	}

	if value, found := c.Get(key); found {
		return value, nil
	}
	if err, found := c.loadNegative(key); found {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	newFlight := &inflightCall[V]{done: make(chan struct{})}
	newFlight.wg.Add(1)

	actual, loaded := c.inflight.LoadOrStore(key, newFlight)
	flight := actual.(*inflightCall[V])

	if loaded {
		select {
		case <-flight.done:
			return flightResult(flight)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	defer func() {
		close(flight.done)
		flight.wg.Done()
		c.inflight.Delete(key)
	}()

	var loaderVal V
	var loaderErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				loaderErr = NewErrPanicRecovered(fmt.Sprintf("GetOrLoadWithContext:%v", key), r)
			}
		}()
		loaderVal, loaderErr = loader(ctx)
	}()

	flight.val.Store(&resultWrapper[V]{value: loaderVal})
	flight.err.Store(&errorWrapper{err: loaderErr})

	if loaderErr == nil {
		c.Put(key, loaderVal)
	} else {
		c.storeNegative(key, loaderErr)
	}

	return loaderVal, loaderErr
}
