package verifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocdoni/ballotbox/log"
)

// MaxArtifactSize bounds the size of a downloaded verification key.
const MaxArtifactSize = 64 << 20

// ArtifactsDir returns the directory where downloaded verification keys are
// cached, $BALLOTBOX_ARTIFACTS_DIR or a directory in the user cache.
func ArtifactsDir() string {
	if dir := os.Getenv("BALLOTBOX_ARTIFACTS_DIR"); dir != "" {
		return dir
	}
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), "ballotbox-artifacts")
	}
	return filepath.Join(dir, "ballotbox-artifacts")
}

// Artifact is a verification key identified by the sha256 hash of its
// content. It is read from a local file or downloaded from an http(s) URL,
// downloads are cached by hash in Dir.
type Artifact struct {
	// Source is a file path or an http(s) URL.
	Source string
	// Hash is the expected sha256 of the content. It is required for
	// URLs and optional for local files.
	Hash []byte
	// Dir is the download cache, ArtifactsDir() if empty.
	Dir     string
	Content []byte
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load reads the artifact content, downloading it if needed, and checks its
// hash. Loading an already loaded artifact is a no-op.
func (a *Artifact) Load(ctx context.Context) error {
	if len(a.Content) != 0 {
		return nil
	}
	if !isURL(a.Source) {
		content, err := os.ReadFile(a.Source)
		if err != nil {
			return fmt.Errorf("read artifact: %w", err)
		}
		if err := a.check(content); err != nil {
			return err
		}
		a.Content = content
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided for %s", a.Source)
	}
	dir := a.Dir
	if dir == "" {
		dir = ArtifactsDir()
	}
	path := filepath.Join(dir, hex.EncodeToString(a.Hash))
	if content, err := os.ReadFile(path); err == nil {
		if err := a.check(content); err == nil {
			a.Content = content
			return nil
		}
		log.Warnw("cached artifact is corrupted, downloading it again", "path", path)
	}
	content, err := download(ctx, a.Source)
	if err != nil {
		return err
	}
	if err := a.check(content); err != nil {
		return err
	}
	if err := store(dir, path, content); err != nil {
		// the key is still usable
		log.Warnw("failed to cache artifact", "path", path, "error", err.Error())
	}
	a.Content = content
	return nil
}

func (a *Artifact) check(content []byte) error {
	if len(a.Hash) == 0 {
		return nil
	}
	h := sha256.Sum256(content)
	if !bytes.Equal(h[:], a.Hash) {
		return fmt.Errorf("hash mismatch for %s: expected %x, got %x", a.Source, a.Hash, h)
	}
	return nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating the artifact request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading artifact: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading artifact %s: http status: %d", url, res.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(res.Body, MaxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading artifact: %w", err)
	}
	if len(content) > MaxArtifactSize {
		return nil, fmt.Errorf("artifact %s exceeds %d bytes", url, MaxArtifactSize)
	}
	log.Debugw("artifact downloaded", "url", url, "bytes", len(content))
	return content, nil
}

// store writes the content through a temporary file, so a partial write is
// never taken for a cached artifact.
func store(dir, path string, content []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.partial")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
