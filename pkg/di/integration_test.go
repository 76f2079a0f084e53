package di

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-media-cache/internal/config"
	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/pkg/testsupport"
)

const batmanBody = `{"Search":[
{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Type":"movie","Poster":"https://m.media-amazon.com/images/M/batman-begins.jpg"},
{"Title":"The Batman","Year":"2022","imdbID":"tt1877830","Type":"movie","Poster":"https://m.media-amazon.com/images/M/the-batman.jpg"},
{"Title":"Batman","Year":"1989","imdbID":"tt0096895","Type":"movie","Poster":"N/A"}
],"totalResults":"3","Response":"True"}`

const supermanBody = `{"Search":[
{"Title":"Superman","Year":"1978","imdbID":"tt0078346","Type":"movie","Poster":"N/A"},
{"Title":"Man of Steel","Year":"2013","imdbID":"tt0770828","Type":"movie","Poster":""}
],"totalResults":"2","Response":"True"}`

const notFoundBody = `{"Response":"False","Error":"Movie not found!"}`

// newOMDbServer answers by the "s" parameter. "slow" hangs until the client
// gives up, "broken" answers 500.
func newOMDbServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Invalid API key!"}`))
			return
		}
		switch r.URL.Query().Get("s") {
		case "batman":
			_, _ = w.Write([]byte(batmanBody))
		case "superman":
			_, _ = w.Write([]byte(supermanBody))
		case "slow":
			<-r.Context().Done()
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(notFoundBody))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newIntegrationContainer(t *testing.T, driver string) (*Container, *config.Config) {
	t.Helper()
	srv := newOMDbServer(t)

	cfg := testConfig(t, driver)
	cfg.Remote.BaseURL = srv.URL
	cfg.Remote.RateLimit = 0
	cfg.Remote.Timeout = 200 * time.Millisecond
	return newTestContainer(t, cfg), cfg
}

func forEachDriver(t *testing.T, fn func(t *testing.T, driver string)) {
	for _, driver := range []string{config.DriverSQLite, config.DriverBolt} {
		t.Run(driver, func(t *testing.T) { fn(t, driver) })
	}
}

func contents(t *testing.T, c *Container) []media.MediaItem {
	t.Helper()
	items, err := c.Store().Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return items
}

func TestIntegration_SearchReplacesStore(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c, _ := newIntegrationContainer(t, driver)
		ctx := context.Background()

		if _, err := c.Search().SearchByQuery(ctx, "superman"); err != nil {
			t.Fatalf("superman: %v", err)
		}
		result, err := c.Search().SearchByQuery(ctx, "batman")
		if err != nil {
			t.Fatalf("batman: %v", err)
		}

		if result.Status() != media.StatusTrue || len(result.Items) != 3 {
			t.Errorf("unexpected result %+v", result)
		}
		if got := contents(t, c); !reflect.DeepEqual(got, testsupport.BatmanItems()) {
			t.Errorf("store = %v, want batman items", testsupport.IDs(got))
		}
	})
}

func TestIntegration_NotFoundClearsStore(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c, _ := newIntegrationContainer(t, driver)
		ctx := context.Background()

		if _, err := c.Search().SearchByQuery(ctx, "batman"); err != nil {
			t.Fatalf("batman: %v", err)
		}
		result, err := c.Search().SearchByQuery(ctx, "zzzznotfound")
		if err != nil {
			t.Fatalf("not found should succeed, got %v", err)
		}
		if result.Status() != media.StatusFalse || result.Error != "Movie not found!" {
			t.Errorf("unexpected result %+v", result)
		}
		if got := contents(t, c); len(got) != 0 {
			t.Errorf("expected empty store, got %v", testsupport.IDs(got))
		}
	})
}

func TestIntegration_FailuresKeepStore(t *testing.T) {
	tests := []struct {
		query  string
		wantIs error
	}{
		{query: "slow", wantIs: media.ErrRemote},
		{query: "broken", wantIs: media.ErrRemote},
	}

	forEachDriver(t, func(t *testing.T, driver string) {
		c, _ := newIntegrationContainer(t, driver)
		ctx := context.Background()

		if _, err := c.Search().SearchByQuery(ctx, "batman"); err != nil {
			t.Fatalf("batman: %v", err)
		}

		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				_, err := c.Search().SearchByQuery(ctx, tt.query)
				if !errors.Is(err, tt.wantIs) {
					t.Errorf("expected %v, got %v", tt.wantIs, err)
				}
				if got := contents(t, c); !reflect.DeepEqual(got, testsupport.BatmanItems()) {
					t.Errorf("store changed on failure: %v", testsupport.IDs(got))
				}
			})
		}
	})
}

func TestIntegration_ConcurrentSearches(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c, _ := newIntegrationContainer(t, driver)
		ctx := context.Background()

		var wg sync.WaitGroup
		for _, q := range []string{"batman", "superman", "batman", "superman"} {
			wg.Add(1)
			go func(q string) {
				defer wg.Done()
				if _, err := c.Search().SearchByQuery(ctx, q); err != nil {
					t.Errorf("%s: %v", q, err)
				}
			}(q)
		}
		wg.Wait()

		got := contents(t, c)
		superman := []string{"tt0078346", "tt0770828"}
		ids := testsupport.IDs(got)
		if !reflect.DeepEqual(got, testsupport.BatmanItems()) && !reflect.DeepEqual(ids, superman) {
			t.Errorf("store must equal exactly one result set, got %v", ids)
		}
	})
}

func TestIntegration_ObserverFollowsSearches(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c, _ := newIntegrationContainer(t, driver)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub := c.Search().ObserveAll(ctx)
		if first := <-sub.Updates(); len(first) != 0 {
			t.Fatalf("expected empty initial emission, got %v", testsupport.IDs(first))
		}

		if _, err := c.Search().SearchByQuery(ctx, "batman"); err != nil {
			t.Fatalf("batman: %v", err)
		}

		select {
		case got := <-sub.Updates():
			if !reflect.DeepEqual(got, testsupport.BatmanItems()) {
				t.Errorf("observer got %v", testsupport.IDs(got))
			}
		case <-time.After(2 * time.Second):
			t.Fatal("observer was not notified")
		}

		cancel()
		for range sub.Updates() {
		}
		if err := sub.Err(); err != nil {
			t.Errorf("cancelled subscription should end cleanly, got %v", err)
		}
	})
}

func TestIntegration_StorePersistsAcrossRestart(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		srv := newOMDbServer(t)
		cfg := testConfig(t, driver)
		cfg.Remote.BaseURL = srv.URL
		cfg.Remote.RateLimit = 0

		first, err := NewContainer(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("NewContainer: %v", err)
		}
		if _, err := first.Search().SearchByQuery(context.Background(), "batman"); err != nil {
			t.Fatalf("batman: %v", err)
		}
		if err := first.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		second := newTestContainer(t, cfg)
		if got := contents(t, second); !reflect.DeepEqual(got, testsupport.BatmanItems()) {
			t.Errorf("reopened store = %v", testsupport.IDs(got))
		}
	})
}

func TestIntegration_SearchAsync(t *testing.T) {
	c, _ := newIntegrationContainer(t, config.DriverSQLite)

	outcomes := []<-chan struct{}{}
	var mu sync.Mutex
	var failures []error
	for _, q := range []string{"batman", "broken", "superman"} {
		ch := c.Search().SearchAsync(context.Background(), q)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for outcome := range ch {
				if outcome.Err != nil {
					mu.Lock()
					failures = append(failures, outcome.Err)
					mu.Unlock()
				}
			}
		}()
		outcomes = append(outcomes, done)
	}
	for _, done := range outcomes {
		<-done
	}

	if len(failures) != 1 || !errors.Is(failures[0], media.ErrRemote) {
		t.Errorf("expected one remote failure, got %v", failures)
	}
}
