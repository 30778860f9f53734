// Package scintilla provides a weight-bounded, concurrent, in-memory
// key-value cache using the W-TinyLFU admission policy.
//
// # Overview
//
// scintilla is built around a single-writer command pipeline: every
// mutation (Put, Upsert, Delete, and synthetic expirations from the TTL
// wheel) is serialized through one executor goroutine per Cache, so the
// weight ledger and eviction decisions never race. Reads bypass the
// pipeline entirely and go straight to a sharded concurrent store.
//
//   - Admission: Count-min sketch + Doorkeeper Bloom filter (W-TinyLFU)
//   - Storage: sharded sync.RWMutex map, or a lock-free xsync-backed map
//   - Expiration: a bucketed time wheel, swept on a fixed interval
//   - Stampede control: GetOrLoad with singleflight + negative caching
//
// # Quick Start
//
//	cfg := scintilla.DefaultConfig[string, User]()
//	cfg.Capacity = 10_000
//
//	cache, err := scintilla.New[string, User](cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	cache.Put("user:123", User{ID: 123, Name: "Alice"})
//
//	if user, found := cache.Get("user:123"); found {
//	    fmt.Printf("User: %s\n", user.Name)
//	}
//
// # Weighted entries and TTL
//
// Capacity sizes the store's shards (an entry-count hint); CacheWeight is
// the actual admission budget the policy enforces, and Counters sizes the
// frequency sketch. Leaving CacheWeight and Counters at zero defaults both
// to Capacity, so the common case — weighing every entry as 1 — needs only
// Capacity set and behaves like a plain entry count. A byte-weighted cache
// sets CacheWeight independently, often orders of magnitude above Capacity:
//
//	cfg.WeightFn = func(key string, v []byte, hasTTL bool) int64 { return int64(len(v)) }
//	cfg.CacheWeight = 64 << 20 // 64MiB budget
//	cfg.Capacity = 10_000      // still sized for ~10k entries worth of shards
//
// PutWithTTL schedules expiration on the bucketed time wheel; an
// expired entry is evicted lazily on the next Get that observes it, and
// eagerly by the wheel's background sweep, both going through the same
// command pipeline as any other mutation:
//
//	ack, err := cache.PutWithTTL("session:abc", sess, 5*time.Minute)
//	if err != nil {
//	    // invalid TTL
//	}
//	ack.Wait() // block for the admission outcome, if needed
//
// # Cache stampede prevention
//
// GetOrLoad deduplicates concurrent loads for the same missing key so
// the loader function runs once, however many goroutines ask for it at
// the same time:
//
//	user, err := cache.GetOrLoad("user:123", func() (User, error) {
//	    return fetchUserFromDB(123) // runs once even under concurrent callers
//	})
//
// GetOrLoadWithContext additionally races the caller's own context
// against the shared loader, so a canceled caller doesn't block past its
// deadline even though the loader keeps running for whoever started it:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	user, err := cache.GetOrLoadWithContext(ctx, "user:123",
//	    func(ctx context.Context) (User, error) {
//	        return fetchUserFromDBWithContext(ctx, 123)
//	    })
//
// A loader error is cached for Config.NegativeCacheTTL (if set) so a
// consistently-failing backend isn't hammered on every call.
//
// # Admission and eviction
//
// A new key is admitted unconditionally while the cache has spare
// weight. Once CacheWeight is reached, admission samples up to SampleSize
// occupants as eviction candidates and evicts the weakest of them, as many
// as the incoming weight needs, only if the incoming key's estimated
// frequency strictly exceeds each one it displaces — a tie keeps the
// incumbent, so a cache under a cyclic scan workload resists thrashing.
//
// # Observability
//
// Stats returns a point-in-time snapshot of hit/miss/admission counters:
//
//	s := cache.Stats()
//	fmt.Printf("hit ratio: %.2f%%\n", s.HitRatio()*100)
//
// The scintilla/otel subpackage implements MetricsCollector with
// OpenTelemetry instruments as a separate module, so the core package never
// pulls in the OTEL SDK.
//
// # Configuration
//
//	cfg := scintilla.Config[string, User]{
//	    Counters:         10_000,
//	    Capacity:         10_000,
//	    CacheWeight:      10_000,
//	    SampleSize:       5,
//	    NegativeCacheTTL: 5 * time.Second,
//	    Logger:           myLogger,
//	    MetricsCollector: myCollector,
//	}
//
// HotConfig watches a config file via Argus and applies the
// hot-reloadable subset of Config (currently NegativeCacheTTL) to a
// running Cache without rebuilding it; fields like Capacity and Shards
// require constructing a new Cache instead.
//
// # Error Handling
//
// Errors carry structured codes via github.com/agilira/go-errors:
//
//	ack, err := cache.PutWithTTL(key, value, ttl)
//	if err != nil {
//	    if scintilla.IsInvalidArgument(err) {
//	        // bad TTL/weight
//	    }
//	}
//
// See IsRejected, IsNotFound, IsExpired, IsShuttingDown, IsRetryable and
// GetErrorCode for classifying errors returned from Cache operations and
// resolved Acknowledgements.
//
// # Thread Safety
//
// Every exported Cache method is safe for concurrent use. Get, GetRef
// and MultiGet never block on the command pipeline; Put, Upsert and
// Delete submit to it and return an Acknowledgement the caller may Wait
// on for the outcome.
package scintilla
