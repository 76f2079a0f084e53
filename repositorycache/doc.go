// Package repositorycache provides the local store: a store.Backend wrapped
// with a read-through snapshot cache and live subscriptions.
//
// # Overview
//
// Reads go through a cache.CacheService keyed by a write generation:
//
//	media_item::snapshot::<generation>
//
// Every committed write (ClearAll, InsertAll, ReplaceAll) bumps the
// generation, drops the cached snapshots by prefix and wakes subscribers.
// A failed write changes nothing and wakes nobody.
//
// # Basic Usage
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	local := repositorycache.New(backend, svc, cache.NewNamespacedKeySerializer(store.TableName))
//	defer local.Close()
//
//	sub := local.ObserveAll(ctx)
//	defer sub.Close()
//	for items := range sub.Updates() {
//		render(items)
//	}
//	if err := sub.Err(); err != nil {
//		// the store could not be read
//	}
//
// # Subscriptions
//
// Each subscription gets the current contents immediately, then the full
// contents after every write. Subscribers woken by the same write share one
// backend read. A subscriber that does not keep up skips intermediate states
// and receives the newest contents. Returned slices are copies and can be
// modified by the caller.
package repositorycache
