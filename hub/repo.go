package hub

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gomlx/tokenclass/internal/downloader"
	"github.com/gomlx/tokenclass/internal/files"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Repo from which one wants to download files. Create it with New.
type Repo struct {
	// ID of the Repo may include owner/model. E.g.: dslim/bert-base-NER
	ID string

	// hfEndpoint to use, defaults to DefaultEndpoint.
	hfEndpoint string

	// repoType of the repository, usually RepoTypeModel.
	repoType RepoType

	// revision to download, usually "main", but it can be a commit-hash.
	revision string

	// authToken is the HuggingFace authentication token used when downloading files.
	authToken string

	// MaxParallelDownload indicates how many files to download at the same time. Default is 20.
	// If set to <= 0 it will download all files in parallel.
	MaxParallelDownload int

	// cacheDir is where to store the downloaded files.
	cacheDir string

	// info about the Repo, only available after DownloadInfo is called.
	info *RepoInfo

	downloadManager *downloader.Manager
}

// New creates a reference to a HuggingFace repository given its id, typically "owner/name".
//
// It uses DefaultCacheDir, shared with the python huggingface_hub library; use Repo.WithCacheDir to change it.
// It defaults to a RepoTypeModel repository at revision "main".
func New(id string) *Repo {
	return &Repo{
		ID:                  id,
		repoType:            RepoTypeModel,
		revision:            "main",
		hfEndpoint:          strings.TrimSuffix(getEnvOr("HF_ENDPOINT", DefaultEndpoint), "/"),
		authToken:           os.Getenv("HF_TOKEN"),
		cacheDir:            DefaultCacheDir(),
		MaxParallelDownload: downloader.DefaultMaxParallel,
	}
}

// WithAuth sets the authentication token to use during downloads.
// Setting it to empty ("") is the same as not using authentication.
func (r *Repo) WithAuth(authToken string) *Repo {
	r.authToken = authToken
	return r
}

// WithType sets the repository type.
func (r *Repo) WithType(repoType RepoType) *Repo {
	r.repoType = repoType
	r.info = nil
	return r
}

// WithEndpoint sets the HuggingFace endpoint to use.
func (r *Repo) WithEndpoint(endpoint string) *Repo {
	r.hfEndpoint = strings.TrimSuffix(endpoint, "/")
	return r
}

// WithRevision sets the revision to use, defaults to "main". It can be a branch, a tag or a commit-hash.
func (r *Repo) WithRevision(revision string) *Repo {
	r.revision = revision
	r.info = nil
	return r
}

// WithCacheDir sets the cacheDir to the given directory. A leading "~" is replaced by the home directory.
func (r *Repo) WithCacheDir(cacheDir string) *Repo {
	newCacheDir, err := files.ReplaceTildeInDir(cacheDir)
	if err != nil {
		klog.Warningf("failed to resolve directory %q, using it as is: %v", cacheDir, err)
		newCacheDir = cacheDir
	}
	r.cacheDir = path.Clean(newCacheDir)
	return r
}

// WithDownloadManager sets the downloader.Manager to use, useful to share limits on parallel downloads
// among several repositories. One is created automatically if not set.
func (r *Repo) WithDownloadManager(manager *downloader.Manager) *Repo {
	r.downloadManager = manager
	return r
}

// getDownloadManager returns current downloader.Manager, or creates a new one for this Repo.
func (r *Repo) getDownloadManager() *downloader.Manager {
	if r.downloadManager == nil {
		r.downloadManager = downloader.New().
			MaxParallel(r.MaxParallelDownload).
			WithAuthToken(r.authToken).
			WithUserAgent(DefaultHttpUserAgent())
	}
	return r.downloadManager
}

// flatFolderName returns a serialized version of the repository name and type, safe for disk storage
// as a single non-nested folder. E.g.: "models--dslim--bert-base-NER".
func (r *Repo) flatFolderName() string {
	parts := []string{string(r.repoType)}
	parts = append(parts, strings.Split(r.ID, "/")...)
	return strings.Join(parts, RepoIdSeparator)
}

// repoCacheDir returns the cache subdirectory for the repository, creating it if needed.
func (r *Repo) repoCacheDir() (string, error) {
	dir := path.Join(r.cacheDir, r.flatFolderName())
	if err := os.MkdirAll(dir, DefaultDirCreationPerm); err != nil {
		return "", errors.Wrapf(err, "while creating cache directory %q", dir)
	}
	return dir, nil
}

// FileURL returns the URL from which to download the file at the repository's commit.
func (r *Repo) FileURL(fileName string) (string, error) {
	commitHash, err := r.commitHash()
	if err != nil {
		return "", err
	}
	if r.repoType == RepoTypeModel {
		return fmt.Sprintf("%s/%s/resolve/%s/%s", r.hfEndpoint, r.ID, commitHash, fileName), nil
	}
	return fmt.Sprintf("%s/%s/%s/resolve/%s/%s", r.hfEndpoint, r.repoType, r.ID, commitHash, fileName), nil
}

// commitHash of the revision, taken from the repository info.
func (r *Repo) commitHash() (string, error) {
	if err := r.DownloadInfo(false); err != nil {
		return "", err
	}
	if r.info.CommitHash == "" {
		return r.revision, nil
	}
	return r.info.CommitHash, nil
}

// snapshotsDir returns the directory holding the files of the repository at its commit.
func (r *Repo) snapshotsDir() (string, error) {
	cacheDir, err := r.repoCacheDir()
	if err != nil {
		return "", err
	}
	commitHash, err := r.commitHash()
	if err != nil {
		return "", err
	}
	dir := path.Join(cacheDir, "snapshots", commitHash)
	if err = os.MkdirAll(dir, DefaultDirCreationPerm); err != nil {
		return "", errors.Wrapf(err, "while creating snapshots directory %q", dir)
	}
	return dir, nil
}

// String implements fmt.Stringer.
func (r *Repo) String() string {
	return r.ID
}
