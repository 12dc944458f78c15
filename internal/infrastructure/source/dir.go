package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eslsoft/vidya/internal/entity"
)

// Dir reads collections from a local checkout laid out as
// <root>/<repo>/<path>/<item>.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) base(col entity.Collection) string {
	return filepath.Join(d.root, filepath.FromSlash(col.Repo))
}

// List returns slash-separated item paths relative to the repo directory.
func (d *Dir) List(ctx context.Context, col entity.Collection) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(d.base(col), filepath.FromSlash(col.Path))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", entity.ErrSourceNotFound, dir)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	ext := col.ItemExtension()
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		out = append(out, path.Join(col.Path, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (d *Dir) Fetch(ctx context.Context, col entity.Collection, itemPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + itemPath)
	full := filepath.Join(d.base(col), filepath.FromSlash(clean))
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", entity.ErrSourceNotFound, full)
		}
		return "", fmt.Errorf("read %s: %w", full, err)
	}
	return string(data), nil
}
