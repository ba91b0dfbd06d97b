package hub

import (
	"context"
	"iter"
	"path"
	"path/filepath"
	"strings"

	"github.com/gomlx/tokenclass/internal/files"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"k8s.io/klog/v2"
)

// IterFileNames iterates over the file names stored in the repository.
// It only downloads the repository info, not the files.
func (r *Repo) IterFileNames() iter.Seq2[string, error] {
	if err := r.DownloadInfo(false); err != nil {
		return func(yield func(string, error) bool) {
			yield("", err)
		}
	}
	return func(yield func(string, error) bool) {
		for _, si := range r.info.Siblings {
			fileName := si.Name
			if path.IsAbs(fileName) || strings.Contains(fileName, "..") {
				yield("", errors.Errorf("repository %q contains illegal file name %q: it cannot be an absolute path, nor contain \"..\"",
					r.ID, fileName))
				return
			}
			if !yield(fileName, nil) {
				return
			}
		}
	}
}

// HasFile returns whether the repository contains the given file. It only downloads the repository info.
func (r *Repo) HasFile(fileName string) bool {
	if err := r.DownloadInfo(false); err != nil {
		klog.Warningf("can't check for file %q in %q: %v", fileName, r, err)
		return false
	}
	for _, si := range r.info.Siblings {
		if si.Name == fileName {
			return true
		}
	}
	return false
}

// DownloadFiles downloads the given repository files (in parallel, up to MaxParallelDownload) and returns the
// paths to the downloaded files in the cache, in the same order.
// The files may be shared with other programs, so they should be read only.
func (r *Repo) DownloadFiles(fileNames ...string) ([]string, error) {
	if len(fileNames) == 0 {
		return nil, nil
	}
	for _, fileName := range fileNames {
		if path.IsAbs(fileName) || strings.Contains(fileName, "..") {
			return nil, errors.Errorf("illegal file name %q: it cannot be an absolute path, nor contain \"..\"", fileName)
		}
	}
	snapshotsDir, err := r.snapshotsDir()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	downloadedPaths := make([]string, len(fileNames))
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	if r.MaxParallelDownload > 0 {
		p = p.WithMaxGoroutines(r.MaxParallelDownload)
	}
	for ii, fileName := range fileNames {
		filePath := filepath.Join(snapshotsDir, files.CleanRelativePath(fileName))
		downloadedPaths[ii] = filePath
		p.Go(func(ctx context.Context) error {
			url, err := r.FileURL(fileName)
			if err != nil {
				return err
			}
			var lastReported int64
			progress := func(downloaded, total int64) {
				if downloaded-lastReported >= 10<<20 || (total > 0 && downloaded == total) {
					lastReported = downloaded
					klog.V(1).Infof("%s: downloaded %d of %d bytes of %q", r, downloaded, total, fileName)
				}
			}
			return r.lockedDownload(ctx, url, filePath, false, progress)
		})
	}
	if err := p.Wait(); err != nil {
		return nil, errors.WithMessagef(err, "while downloading files from %q", r)
	}
	return downloadedPaths, nil
}

// DownloadFile is a shortcut to DownloadFiles with only one file.
func (r *Repo) DownloadFile(fileName string) (string, error) {
	res, err := r.DownloadFiles(fileName)
	if err != nil {
		return "", err
	}
	return res[0], nil
}
