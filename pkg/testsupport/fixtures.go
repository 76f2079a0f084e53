package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/goliatone/go-media-cache/media"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path.
// A missing golden file is created from actual.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			writeGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

func writeGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Item builds a movie with the given id and title.
func Item(id, title string) media.MediaItem {
	return media.MediaItem{ID: id, Title: title, Year: "2000", Type: "movie"}
}

// BatmanItems is the three item result used across the search tests.
func BatmanItems() []media.MediaItem {
	return []media.MediaItem{
		{ID: "tt0372784", Title: "Batman Begins", Year: "2005", Type: "movie",
			Poster: Ptr("https://m.media-amazon.com/images/M/batman-begins.jpg")},
		{ID: "tt1877830", Title: "The Batman", Year: "2022", Type: "movie",
			Poster: Ptr("https://m.media-amazon.com/images/M/the-batman.jpg")},
		{ID: "tt0096895", Title: "Batman", Year: "1989", Type: "movie"},
	}
}

// SupermanItems is a two item result disjoint from BatmanItems.
func SupermanItems() []media.MediaItem {
	return []media.MediaItem{
		{ID: "tt0078346", Title: "Superman", Year: "1978", Type: "movie"},
		{ID: "tt0770828", Title: "Man of Steel", Year: "2013", Type: "movie"},
	}
}

// Result wraps items in a successful SearchResult.
func Result(items []media.MediaItem) *media.SearchResult {
	return &media.SearchResult{
		Items:        items,
		TotalResults: strconv.Itoa(len(items)),
		Response:     "True",
	}
}

// NotFound is the upstream answer for a query without matches.
func NotFound() *media.SearchResult {
	return &media.SearchResult{Response: "False", Error: "Movie not found!"}
}

// IDs returns the ids of items in order.
func IDs(items []media.MediaItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
