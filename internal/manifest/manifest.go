// Package manifest fetches the per-language asset manifests and asset blobs.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/messages"
)

// FileName is the manifest document inside each language directory of a source.
const FileName = "manifest.json"

// maxManifestBytes caps manifest documents; blobs use the configured download limit.
const maxManifestBytes = 16 << 20

var (
	// ErrFetch is matched by every *FetchError.
	ErrFetch = errors.New("asset fetch failed")
	// ErrNoSource is returned by Open when no manifest source is configured.
	ErrNoSource = errors.New("no manifest source configured")
	// ErrInvalidManifest wraps manifest documents that fail validation.
	ErrInvalidManifest = errors.New("invalid manifest")
)

var checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Descriptor identifies one required asset of a language.
type Descriptor struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
	Language string `json:"language,omitempty"`
	// URL overrides the provider's default blob location.
	URL string `json:"url,omitempty"`
}

// Provider supplies manifests and asset content.
type Provider interface {
	// FetchManifest returns the validated descriptors for code, sorted by path.
	FetchManifest(ctx context.Context, code string) ([]Descriptor, error)
	// FetchBlob opens the content of d. The caller closes the reader.
	FetchBlob(ctx context.Context, d Descriptor) (io.ReadCloser, error)
}

// FetchError reports a failed manifest or blob fetch.
type FetchError struct {
	Source    string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf(messages.ManifestFetchErrorFmt, e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// IsRetryable reports whether err is a fetch failure worth retrying.
func IsRetryable(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Retryable
}

func permanent(source string, err error) error {
	return &FetchError{Source: source, Err: err}
}

func transient(source string, err error) error {
	return &FetchError{Source: source, Retryable: true, Err: err}
}

// Open returns the provider for cfg.Source: an HTTP provider for http(s) URLs and a
// directory provider for file:// URLs and plain paths. An empty source is ErrNoSource.
func Open(cfg config.Manifest) (Provider, error) {
	source := strings.TrimSpace(cfg.Source)
	if source == "" {
		return nil, ErrNoSource
	}
	u, err := url.Parse(source)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return NewHTTPProvider(source, cfg), nil
		case "file":
			return NewDirProvider(filepath.FromSlash(u.Path)), nil
		}
	}
	dir, err := homedir.Expand(source)
	if err != nil {
		return nil, fmt.Errorf(messages.ManifestSourceInvalidFmt, source, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf(messages.ManifestSourceInvalidFmt, source, err)
	}
	return NewDirProvider(abs), nil
}

type document struct {
	Language string       `json:"language"`
	Files    []Descriptor `json:"files"`
}

// Parse decodes and validates a manifest document for code.
func Parse(data []byte, code string) ([]Descriptor, error) {
	var doc document
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf(messages.ManifestDecodeFmt, ErrInvalidManifest, err)
	}
	if doc.Language != "" && doc.Language != code {
		return nil, fmt.Errorf(messages.ManifestLanguageMismatchFmt, ErrInvalidManifest, doc.Language, code)
	}
	out := make([]Descriptor, len(doc.Files))
	for i, d := range doc.Files {
		if d.Language == "" {
			d.Language = code
		}
		out[i] = d
	}
	if err := Validate(out, code); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Validate checks that descriptors are well formed, belong to code, and name distinct paths.
func Validate(descriptors []Descriptor, code string) error {
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if err := ValidatePath(d.Path); err != nil {
			return err
		}
		if _, dup := seen[d.Path]; dup {
			return fmt.Errorf(messages.ManifestDuplicatePathFmt, ErrInvalidManifest, d.Path)
		}
		seen[d.Path] = struct{}{}
		if d.Size < 0 {
			return fmt.Errorf(messages.ManifestNegativeSizeFmt, ErrInvalidManifest, d.Path, d.Size)
		}
		if !checksumPattern.MatchString(d.Checksum) {
			return fmt.Errorf(messages.ManifestChecksumInvalidFmt, ErrInvalidManifest, d.Path, d.Checksum)
		}
		if d.Language != code {
			return fmt.Errorf(messages.ManifestDescriptorLanguageFmt, ErrInvalidManifest, d.Path, d.Language, code)
		}
	}
	return nil
}

// ValidatePath checks that p is a clean, slash-separated path inside the audio root.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf(messages.ManifestPathEmptyFmt, ErrInvalidManifest)
	case strings.Contains(p, `\`), path.IsAbs(p), filepath.IsAbs(p), filepath.VolumeName(p) != "":
		return fmt.Errorf(messages.ManifestPathInvalidFmt, ErrInvalidManifest, p)
	case path.Clean(p) != p, p == "..", strings.HasPrefix(p, "../"), p == ".":
		return fmt.Errorf(messages.ManifestPathInvalidFmt, ErrInvalidManifest, p)
	case p == ".langpatch" || strings.HasPrefix(p, ".langpatch/"):
		return fmt.Errorf(messages.ManifestPathReservedFmt, ErrInvalidManifest, p)
	}
	return nil
}

func readLimited(r io.Reader, limit int64, source string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, transient(source, err)
	}
	if int64(len(data)) > limit {
		return nil, permanent(source, fmt.Errorf(messages.ManifestTooLargeFmt, limit))
	}
	return data, nil
}
