package manifest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/conn-castle/langpatch/internal/fsutil"
)

// DirProvider reads manifests and blobs from a local directory laid out like an HTTP source.
type DirProvider struct {
	root string
}

// NewDirProvider returns a provider rooted at dir.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{root: dir}
}

// FetchManifest reads and validates <root>/<code>/manifest.json.
func (p *DirProvider) FetchManifest(ctx context.Context, code string) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Join(p.root, code, FileName)
	f, err := p.open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	data, err := readLimited(f, maxManifestBytes, name)
	if err != nil {
		return nil, err
	}
	descriptors, err := Parse(data, code)
	if err != nil {
		return nil, permanent(name, err)
	}
	return descriptors, nil
}

// FetchBlob opens <root>/<lang>/files/<path>.
func (p *DirProvider) FetchBlob(ctx context.Context, d Descriptor) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.open(filepath.Join(p.root, d.Language, "files", filepath.FromSlash(d.Path)))
}

func (p *DirProvider) open(name string) (*os.File, error) {
	f, err := os.Open(name)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, os.ErrNotExist) || !fsutil.IsTransient(err) {
		return nil, permanent(name, err)
	}
	return nil, transient(name, err)
}
