// Package hub downloads files (tokenizers, model configurations, datasets) from a HuggingFace Hub
// repository, keeping them in a local cache with the same layout used by the huggingface_hub
// python library (usually under "~/.cache/huggingface/hub").
package hub

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/gomlx/tokenclass"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SessionID is unique and created anew at the start of the program. It's sent as part of the user agent.
var SessionID string

func init() {
	sessionUUID, err := uuid.NewRandom()
	if err != nil {
		panic(errors.Wrap(err, "failed generating UUID for SessionID"))
	}
	SessionID = strings.ReplaceAll(sessionUUID.String(), "-", "")
}

var (
	// DefaultDirCreationPerm is used when creating new cache subdirectories.
	DefaultDirCreationPerm = os.FileMode(0755)

	// DefaultFileCreationPerm is used when creating files inside the cache subdirectories.
	DefaultFileCreationPerm = os.FileMode(0644)
)

// DefaultEndpoint of the HuggingFace Hub, overridden by the HF_ENDPOINT environment variable.
const DefaultEndpoint = "https://huggingface.co"

func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// DefaultCacheDir for HuggingFace Hub, same used by the python library.
//
// Its prefix is either `${XDG_CACHE_HOME}` if set, or `~/.cache` otherwise. Followed by `/huggingface/hub/`.
// `${HF_HUB_CACHE}`, if set, takes precedence.
func DefaultCacheDir() string {
	if dir := os.Getenv("HF_HUB_CACHE"); dir != "" {
		return dir
	}
	cacheDir := getEnvOr("XDG_CACHE_HOME", path.Join(os.Getenv("HOME"), ".cache"))
	return path.Join(cacheDir, "huggingface", "hub")
}

// DefaultHttpUserAgent returns the user agent used with the HuggingFace Hub API.
func DefaultHttpUserAgent() string {
	return fmt.Sprintf("tokenclass/%v; golang/%s; session_id/%s",
		tokenclass.Version, runtime.Version(), SessionID)
}

// RepoIdSeparator is used to separate repository name parts when mapping to file names.
const RepoIdSeparator = "--"

// RepoType supported by HuggingFace Hub.
type RepoType string

const (
	RepoTypeDataset RepoType = "datasets"
	RepoTypeSpace   RepoType = "spaces"
	RepoTypeModel   RepoType = "models"
)
