// Package media holds the domain types shared by every layer: the persisted
// MediaItem, the transient SearchResult returned by a lookup, and the error
// taxonomy used to report search failures.
//
// # Upstream status
//
// The remote API reports success as the strings "True" and "False". The value
// is treated as untrusted text: SearchResult.Status parses it and anything
// unexpected becomes StatusUnknown. TotalResults is parsed the same way by
// SearchResult.Total.
//
// # Errors
//
// Failures are classified by Kind and can be matched with the sentinels:
//
//	res, err := repo.SearchByQuery(ctx, "batman")
//	switch {
//	case errors.Is(err, media.ErrRemote):
//		// transport error, non-2xx or timeout; store untouched
//	case errors.Is(err, media.ErrEmptyBody):
//		// reachable endpoint, no usable body; store untouched
//	case errors.Is(err, media.ErrStore):
//		// lookup succeeded (res is set) but the store write failed
//	}
package media
