// errors.go: structured error handling for scintilla cache operations
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0
package scintilla

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for scintilla operations, grouped by the error kinds the
// command pipeline and admission policy can produce.
const (
	// Configuration errors (1xxx)
	ErrCodeInvalidCapacity    errors.ErrorCode = "SCINTILLA_INVALID_CAPACITY"
	ErrCodeInvalidCounters    errors.ErrorCode = "SCINTILLA_INVALID_COUNTERS"
	ErrCodeInvalidCacheWeight errors.ErrorCode = "SCINTILLA_INVALID_CACHE_WEIGHT"
	ErrCodeInvalidShardCount  errors.ErrorCode = "SCINTILLA_INVALID_SHARD_COUNT"
	ErrCodeInvalidSampleSize  errors.ErrorCode = "SCINTILLA_INVALID_SAMPLE_SIZE"

	// Argument errors (2xxx)
	ErrCodeInvalidArgument errors.ErrorCode = "SCINTILLA_INVALID_ARGUMENT"
	ErrCodeEmptyUpsert     errors.ErrorCode = "SCINTILLA_EMPTY_UPSERT"
	ErrCodeInvalidWeight   errors.ErrorCode = "SCINTILLA_INVALID_WEIGHT"
	ErrCodeInvalidTTL      errors.ErrorCode = "SCINTILLA_INVALID_TTL"

	// Operation outcomes (3xxx)
	ErrCodeRejected    errors.ErrorCode = "SCINTILLA_REJECTED"
	ErrCodeKeyNotFound errors.ErrorCode = "SCINTILLA_KEY_NOT_FOUND"
	ErrCodeExpired     errors.ErrorCode = "SCINTILLA_EXPIRED"

	// Lifecycle errors (4xxx)
	ErrCodeShuttingDown errors.ErrorCode = "SCINTILLA_SHUTTING_DOWN"
	ErrCodeQueueFull    errors.ErrorCode = "SCINTILLA_QUEUE_FULL"

	// Loader errors (5xxx)
	ErrCodeLoaderFailed  errors.ErrorCode = "SCINTILLA_LOADER_FAILED"
	ErrCodeInvalidLoader errors.ErrorCode = "SCINTILLA_INVALID_LOADER"

	// Internal errors (6xxx)
	ErrCodeInternalError  errors.ErrorCode = "SCINTILLA_INTERNAL_ERROR"
	ErrCodePanicRecovered errors.ErrorCode = "SCINTILLA_PANIC_RECOVERED"
)

const (
	msgInvalidCapacity    = "invalid capacity: must be greater than 0"
	msgInvalidCounters    = "invalid counters: must not be negative"
	msgInvalidCacheWeight = "invalid cache weight: must not be negative"
	msgInvalidShardCount  = "invalid shard count: must be a positive power of two"
	msgInvalidSampleSize  = "invalid sample size: must be greater than 0"
	msgInvalidArgument    = "invalid argument"
	msgEmptyUpsert        = "upsert requires a value, an update function, a weight or a TTL change"
	msgInvalidWeight      = "invalid weight: must be between 1 and the cache weight"
	msgInvalidTTL         = "invalid TTL: must be greater than zero"
	msgRejected           = "candidate rejected by admission policy"
	msgKeyNotFound        = "key not found in cache"
	msgExpired            = "key has expired"
	msgShuttingDown       = "cache is shutting down"
	msgQueueFull          = "command queue is full"
	msgLoaderFailed       = "loader function failed"
	msgInvalidLoader      = "loader function cannot be nil"
	msgInternalError      = "internal cache error"
	msgPanicRecovered     = "panic recovered in cache operation"
)

// NewErrInvalidCapacity reports a non-positive configured capacity.
func NewErrInvalidCapacity(capacity int64) error {
	return errors.NewWithContext(ErrCodeInvalidCapacity, msgInvalidCapacity, map[string]interface{}{
		"provided_capacity": capacity,
	})
}

// NewErrInvalidCounters reports a negative configured sketch size.
func NewErrInvalidCounters(counters int64) error {
	return errors.NewWithContext(ErrCodeInvalidCounters, msgInvalidCounters, map[string]interface{}{
		"provided_counters": counters,
	})
}

// NewErrInvalidCacheWeight reports a negative configured weight budget.
func NewErrInvalidCacheWeight(cacheWeight int64) error {
	return errors.NewWithContext(ErrCodeInvalidCacheWeight, msgInvalidCacheWeight, map[string]interface{}{
		"provided_cache_weight": cacheWeight,
	})
}

// NewErrInvalidShardCount reports a shard count that isn't a power of two.
func NewErrInvalidShardCount(shards int) error {
	return errors.NewWithContext(ErrCodeInvalidShardCount, msgInvalidShardCount, map[string]interface{}{
		"provided_shards": shards,
	})
}

// NewErrInvalidSampleSize reports a non-positive admission sample size.
func NewErrInvalidSampleSize(size int) error {
	return errors.NewWithContext(ErrCodeInvalidSampleSize, msgInvalidSampleSize, map[string]interface{}{
		"provided_sample_size": size,
	})
}

// NewErrEmptyUpsert reports an Upsert call that asks for no change: no value, update function, weight or TTL change.
func NewErrEmptyUpsert(key string) error {
	return errors.NewWithField(ErrCodeEmptyUpsert, msgEmptyUpsert, "key", key)
}

// NewErrInvalidWeight reports an explicit weight below 1 or above the cache weight.
func NewErrInvalidWeight(key string, weight int64) error {
	return errors.NewWithContext(ErrCodeInvalidWeight, msgInvalidWeight, map[string]interface{}{
		"key":    key,
		"weight": weight,
	})
}

// NewErrInvalidTTL reports a TTL that is zero or negative.
func NewErrInvalidTTL(key string, ttl interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidTTL, msgInvalidTTL, map[string]interface{}{
		"key":          key,
		"provided_ttl": ttl,
	})
}

// NewErrRejected reports that the admission policy declined a candidate.
func NewErrRejected(key string) error {
	return errors.NewWithField(ErrCodeRejected, msgRejected, "key", key)
}

// NewErrKeyNotFound reports that a key is absent from the cache.
func NewErrKeyNotFound(key string) error {
	return errors.NewWithField(ErrCodeKeyNotFound, msgKeyNotFound, "key", key)
}

// NewErrExpired reports that a key was found but has already expired.
func NewErrExpired(key string) error {
	return errors.NewWithField(ErrCodeExpired, msgExpired, "key", key)
}

// NewErrShuttingDown reports that a command was submitted after Close began.
func NewErrShuttingDown(key string) error {
	return errors.NewWithField(ErrCodeShuttingDown, msgShuttingDown, "key", key).AsRetryable()
}

// NewErrQueueFull reports that the command queue rejected a submission under backpressure.
func NewErrQueueFull(key string) error {
	return errors.NewWithField(ErrCodeQueueFull, msgQueueFull, "key", key).AsRetryable()
}

// NewErrLoaderFailed wraps an error returned by a GetOrLoad loader function.
func NewErrLoaderFailed(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeLoaderFailed, msgLoaderFailed).
		WithContext("key", key).
		AsRetryable()
}

// NewErrInvalidLoader reports a nil loader function.
func NewErrInvalidLoader(key string) error {
	return errors.NewWithField(ErrCodeInvalidLoader, msgInvalidLoader, "key", key)
}

// NewErrPanicRecovered reports a panic recovered from a WeightFn, loader or callback.
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": panicValue,
	}).WithSeverity("critical")
}

// IsRejected reports whether err is an admission rejection.
func IsRejected(err error) bool { return errors.HasCode(err, ErrCodeRejected) }

// IsNotFound reports whether err is a key-not-found error.
func IsNotFound(err error) bool { return errors.HasCode(err, ErrCodeKeyNotFound) }

// IsExpired reports whether err is an expiration error.
func IsExpired(err error) bool { return errors.HasCode(err, ErrCodeExpired) }

// IsShuttingDown reports whether err was caused by a concurrent Close.
func IsShuttingDown(err error) bool { return errors.HasCode(err, ErrCodeShuttingDown) }

// IsInvalidArgument reports whether err reflects an invalid caller-supplied argument.
func IsInvalidArgument(err error) bool {
	if err == nil {
		return false
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		switch coder.ErrorCode() {
		case ErrCodeInvalidArgument, ErrCodeEmptyUpsert, ErrCodeInvalidWeight, ErrCodeInvalidTTL, ErrCodeInvalidLoader:
			return true
		}
	}
	return false
}

// IsRetryable reports whether the operation that produced err may succeed if retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the structured error code from err, if any.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts the structured context map from err, if any.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var scintillaErr *errors.Error
	if goerrors.As(err, &scintillaErr) {
		return scintillaErr.Context
	}
	return nil
}
