// accesslog.go: lossy asynchronous access recording
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import "sync/atomic"

// accessLog decouples the read hot path from frequency-sketch maintenance.
// Get() calls record() which never blocks: if the buffer is full the sample
// is dropped rather than slowing the reader down. A single drain goroutine
// feeds recorded hashes into the frequencyEstimator.
type accessLog struct {
	samples chan uint64
	dropped uint64

	estimator *frequencyEstimator

	stop chan struct{}
	done chan struct{}
}

func newAccessLog(bufferSize int, estimator *frequencyEstimator) *accessLog {
	return &accessLog{
		samples:   make(chan uint64, bufferSize),
		estimator: estimator,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// record enqueues a key-hash access sample. Safe to call from any goroutine;
// never blocks.
func (a *accessLog) record(keyHash uint64) {
	select {
	case a.samples <- keyHash:
	default:
		atomic.AddUint64(&a.dropped, 1)
	}
}

// Dropped returns the number of access samples lost to a full buffer.
func (a *accessLog) Dropped() uint64 {
	return atomic.LoadUint64(&a.dropped)
}

// run drains samples into the frequency estimator until stop is closed.
// Intended to be launched once as its own goroutine.
func (a *accessLog) run() {
	defer close(a.done)
	for {
		select {
		case h := <-a.samples:
			a.estimator.Increment(h)
		case <-a.stop:
			// Drain whatever is already buffered before exiting so a burst
			// of accesses right before Close still informs the sketch.
			for {
				select {
				case h := <-a.samples:
					a.estimator.Increment(h)
				default:
					return
				}
			}
		}
	}
}

func (a *accessLog) Close() {
	close(a.stop)
	<-a.done
}
