package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/gomlx/tokenclass/internal/files"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// RepoInfo holds the information about a repository, served by
// https://huggingface.co/api/<repo_type>/<id>/revision/<revision>.
//
// Only the fields used by this module are decoded.
type RepoInfo struct {
	ID         string      `json:"id"`
	Author     string      `json:"author"`
	CommitHash string      `json:"sha"`
	Tags       []string    `json:"tags"`
	Siblings   []*FileInfo `json:"siblings"`
}

// FileInfo is one of the files of the repository.
type FileInfo struct {
	Name string `json:"rfilename"`
}

// Info returns the RepoInfo, downloading it first if needed.
// It returns nil if the info couldn't be downloaded; use DownloadInfo to get the error.
func (r *Repo) Info() *RepoInfo {
	if r.info == nil {
		if err := r.DownloadInfo(false); err != nil {
			klog.Errorf("failed to download info about repository %q: %+v", r, err)
		}
	}
	return r.info
}

// infoURL for the API that returns the info about a repository.
func (r *Repo) infoURL() string {
	return fmt.Sprintf("%s/api/%s/%s/revision/%s", r.hfEndpoint, r.repoType, r.ID, r.revision)
}

// DownloadInfo about the repository, if it hasn't been loaded yet.
//
// It uses the copy in the cache directory if present, unless forceDownload is true.
func (r *Repo) DownloadInfo(forceDownload bool) error {
	if r.info != nil && !forceDownload {
		return nil
	}

	infoDir, err := r.repoCacheDir()
	if err != nil {
		return err
	}
	infoDir = path.Join(infoDir, "info")
	if err = os.MkdirAll(infoDir, DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "while creating info directory %q", infoDir)
	}
	infoFilePath := path.Join(infoDir, files.CleanRelativePath(r.revision))

	if !files.Exists(infoFilePath) || forceDownload {
		err := r.lockedDownload(context.Background(), r.infoURL(), infoFilePath, forceDownload, nil)
		if err != nil {
			return errors.WithMessagef(err, "failed to download info for repository %q", r)
		}
	}

	infoJSON, err := os.ReadFile(infoFilePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read info for repository from %q", infoFilePath)
	}
	newInfo := &RepoInfo{}
	if err = json.Unmarshal(infoJSON, newInfo); err != nil {
		return errors.Wrapf(err, "failed to parse info for repository in %q (downloaded from %q), "+
			"remove the file to have it downloaded again", infoFilePath, r.infoURL())
	}
	r.info = newInfo
	return nil
}
