package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/run"
	"github.com/rotblauer/trackfix/types/sample"
)

// LastRunTTLCache holds the most recent run per trace id.
var LastRunTTLCache = ttlcache.New[string, *run.Run](
	ttlcache.WithTTL[string, *run.Run](params.CacheLastRunTTL))

func SetLastRun(traceID conceptual.TraceID, r *run.Run) {
	LastRunTTLCache.Set(traceID.String(), r, ttlcache.DefaultTTL)
}

func GetLastRun(traceID conceptual.TraceID) (*run.Run, bool) {
	item := LastRunTTLCache.Get(traceID.String())
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

type resultKey struct {
	Trace     sample.Trace
	Threshold float64
}

// ResultKey hashes a trace and threshold into a cache key.
// Hashing walks every sample, so compute it once per trace and reuse it.
func ResultKey(trace sample.Trace, threshold float64) (string, error) {
	hash, err := hashstructure.Hash(resultKey{trace, threshold}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", hash), nil
}

// ResultCache memoizes correction results of identical inputs
// using a Least Recently Used (LRU) cache.
type ResultCache struct {
	lru *lru.Cache[string, sample.Result]
}

func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = params.ResultCacheSize
	}
	c, err := lru.New[string, sample.Result](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{lru: c}, nil
}

// Get returns a copy of the result cached under key (see ResultKey),
// so callers may modify it freely.
func (c *ResultCache) Get(key string) (sample.Result, bool) {
	res, ok := c.lru.Get(key)
	if !ok {
		return sample.Result{}, false
	}
	return copyResult(res), true
}

func (c *ResultCache) Add(key string, res sample.Result) {
	c.lru.Add(key, copyResult(res))
}

func (c *ResultCache) Len() int {
	return c.lru.Len()
}

func copyResult(res sample.Result) sample.Result {
	out := res
	out.CorrectedPoints = append(sample.Trace{}, res.CorrectedPoints...)
	out.CorrectedIndices = append([]int{}, res.CorrectedIndices...)
	return out
}
