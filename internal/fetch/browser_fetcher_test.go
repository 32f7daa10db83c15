package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledDevTools accepts connections and never completes the WebSocket handshake.
func stalledDevTools(t *testing.T) string {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestBrowserFetcher_StartRespectsFetchDeadline(t *testing.T) {
	b := NewBrowserFetcher(BrowserConfig{RemoteURL: stalledDevTools(t)})
	t.Cleanup(b.Close)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	start := time.Now()
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_, errs[i] = b.Get(ctx, "https://techcrunch.com/a")
		}()
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 5*time.Second)
	for _, err := range errs {
		require.Error(t, err)
		assert.Equal(t, ReasonTimeout, ReasonOf(err))
	}
}

func TestBrowserFetcher_ClosedRejectsGet(t *testing.T) {
	b := NewBrowserFetcher(BrowserConfig{RemoteURL: "ws://127.0.0.1:1"})
	b.Close()

	_, err := b.Get(context.Background(), "https://techcrunch.com/a")
	assert.ErrorIs(t, err, errBrowserClosed)
	assert.Equal(t, ReasonBrowser, ReasonOf(err))
}

func TestBrowserFetcher_DefaultLaunchTimeout(t *testing.T) {
	b := NewBrowserFetcher(BrowserConfig{})
	assert.Equal(t, defaultLaunchTimeout, b.cfg.LaunchTimeout)
	assert.NotNil(t, b.cfg.Logger)
}
