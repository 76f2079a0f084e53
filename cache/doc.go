// Package cache provides the caching contract and key serialization used by
// the local store decorator.
//
// # Overview
//
// Two interfaces are exported:
//
//   - CacheService: read-through GetOrFetch plus key and prefix invalidation
//   - KeySerializer: builds stable cache keys from a method name and arguments
//
// NewCacheService returns the sturdyc backed implementation. Concurrent misses
// on the same key share one fetch, which is what lets many subscribers of the
// store read a snapshot with a single query.
//
// # Basic Usage
//
//	serializer := cache.NewNamespacedKeySerializer("media_item")
//	key := serializer.SerializeKey("snapshot", generation)
//
//	items, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]media.MediaItem, error) {
//		return backend.List(ctx)
//	})
//
// # Key Serialization
//
// Segments are joined with KeySeparator. Scalars and fmt.Stringer values are
// written as text, pointers are dereferenced, slices and arrays are
// serialized element by element and anything else is encoded as JSON.
// Keys are meant for an in-process cache only.
package cache
