// Package downloader implements HTTP downloads of files with a bounded number of parallel
// transfers, authentication and progress reporting.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ProgressCallback is called during a download with the number of bytes downloaded so far and the
// total size, if known (otherwise total is <= 0). It is called synchronously by the downloading
// goroutine, so it should return quickly.
type ProgressCallback func(downloaded, total int64)

// Manager downloads files, limiting the number of parallel downloads. It can be shared among
// repositories to enforce a global limit.
type Manager struct {
	client    *http.Client
	semaphore *Semaphore
	authToken string
	userAgent string
}

// DefaultMaxParallel is the default number of simultaneous downloads of a Manager.
const DefaultMaxParallel = 20

// New creates a Manager with the default http.Client and DefaultMaxParallel.
func New() *Manager {
	return &Manager{
		client:    http.DefaultClient,
		semaphore: NewSemaphore(DefaultMaxParallel),
	}
}

// MaxParallel sets the maximum number of parallel downloads. If n <= 0 there is no limit.
func (m *Manager) MaxParallel(n int) *Manager {
	m.semaphore.Resize(n)
	return m
}

// WithAuthToken sets the bearer token sent with every request. Empty disables authentication.
func (m *Manager) WithAuthToken(authToken string) *Manager {
	m.authToken = authToken
	return m
}

// WithUserAgent sets the User-Agent header sent with every request.
func (m *Manager) WithUserAgent(userAgent string) *Manager {
	m.userAgent = userAgent
	return m
}

// WithClient sets the http.Client used for the requests.
func (m *Manager) WithClient(client *http.Client) *Manager {
	m.client = client
	return m
}

func (m *Manager) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create request for %q", url)
	}
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}
	return req, nil
}

// Download url contents to filePath, which is created or truncated. On failure the partially
// written file is left for the caller to remove.
func (m *Manager) Download(ctx context.Context, url, filePath string, progressCallback ProgressCallback) error {
	if err := m.semaphore.Acquire(ctx); err != nil {
		return err
	}
	defer m.semaphore.Release()

	req, err := m.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed request to download %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Message: string(msg)}
	}

	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	var r io.Reader = resp.Body
	if progressCallback != nil {
		progressCallback(0, resp.ContentLength)
		r = &progressReader{reader: resp.Body, total: resp.ContentLength, callback: progressCallback}
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to download %q to %q", url, filePath)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", filePath)
	}
	klog.V(2).Infof("downloaded %q (%d bytes) to %q", url, n, filePath)
	return nil
}

// StatusError is returned when the server answers with a status other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %q failed with status %d: %q", e.URL, e.StatusCode, e.Message)
}

type progressReader struct {
	reader            io.Reader
	downloaded, total int64
	callback          ProgressCallback
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.downloaded += int64(n)
		p.callback(p.downloaded, p.total)
	}
	return n, err
}
