package omdb

import (
	"strings"

	"github.com/goliatone/go-media-cache/media"
)

// notAvailable is what OMDb sends for a missing field.
const notAvailable = "N/A"

// MapSearchResponse converts the wire response to the domain result.
func MapSearchResponse(resp *SearchResponse) *media.SearchResult {
	return &media.SearchResult{
		Items:        MapItems(resp.Search),
		TotalResults: resp.TotalResults,
		Response:     resp.Response,
		Error:        resp.Error,
	}
}

// MapItems converts wire items, dropping entries without an imdbID.
func MapItems(items []SearchItem) []media.MediaItem {
	out := make([]media.MediaItem, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ImdbID)
		if id == "" {
			continue
		}
		out = append(out, media.MediaItem{
			ID:     id,
			Title:  it.Title,
			Year:   it.Year,
			Type:   it.Type,
			Poster: optional(it.Poster),
		})
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == notAvailable {
		return nil
	}
	return &s
}
