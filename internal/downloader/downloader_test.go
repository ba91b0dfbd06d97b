package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	const content = "some file contents"
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.Error(w, "not here", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	m := New().WithAuthToken("secret").WithUserAgent("tokenclass-test")
	filePath := filepath.Join(t.TempDir(), "file.txt")
	var lastDownloaded int64
	err := m.Download(context.Background(), server.URL+"/file", filePath, func(downloaded, total int64) {
		lastDownloaded = downloaded
	})
	require.NoError(t, err)
	got, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	assert.Equal(t, int64(len(content)), lastDownloaded)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "tokenclass-test", gotAgent)

	err = m.Download(context.Background(), server.URL+"/missing", filePath, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestDownloadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Download(ctx, "http://127.0.0.1:1/never", filepath.Join(t.TempDir(), "x"), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSemaphore(t *testing.T) {
	s := NewSemaphore(2)
	var (
		current, maxSeen atomic.Int32
		wg               sync.WaitGroup
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer s.Release()
			n := current.Add(1)
			for {
				seen := maxSeen.Load()
				if n <= seen || maxSeen.CompareAndSwap(seen, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
	assert.Equal(t, int32(0), current.Load())
}

func TestSemaphoreResize(t *testing.T) {
	ctx := context.Background()
	s := NewSemaphore(1)
	require.NoError(t, s.Acquire(ctx))
	done := make(chan struct{})
	go func() {
		_ = s.Acquire(ctx)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second Acquire should block while capacity is 1")
	case <-time.After(20 * time.Millisecond):
	}
	s.Resize(2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Resize(2) should unblock the pending Acquire")
	}
}

func TestSemaphoreAcquireCancelled(t *testing.T) {
	s := NewSemaphore(1)
	require.NoError(t, s.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Acquire(ctx) }()
	select {
	case err := <-errCh:
		t.Fatalf("Acquire should block while the semaphore is full, got %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelling the context should unblock the pending Acquire")
	}

	// The cancelled call took no slot: after the release a new Acquire succeeds at once.
	s.Release()
	acquireCtx, acquireCancel := context.WithTimeout(context.Background(), time.Second)
	defer acquireCancel()
	require.NoError(t, s.Acquire(acquireCtx))

	// An already cancelled context fails even with free slots.
	s.Resize(2)
	require.ErrorIs(t, s.Acquire(ctx), context.Canceled)
}

func TestDownloadCancelledWhileWaiting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL)
	}))
	defer server.Close()

	manager := New().MaxParallel(1)
	require.NoError(t, manager.semaphore.Acquire(context.Background()))
	defer manager.semaphore.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := manager.Download(ctx, server.URL+"/file", filepath.Join(t.TempDir(), "file"), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
