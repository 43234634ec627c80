package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
)

// FileFetcher reads samples below a root directory. Locators that would
// escape the root are rejected by os.Root.
type FileFetcher struct {
	root *os.Root
}

func NewFileFetcher(dir string) (*FileFetcher, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open sample root %s: %w", dir, err)
	}
	return &FileFetcher{root: root}, nil
}

func (f *FileFetcher) Close() error {
	return f.root.Close()
}

func (f *FileFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := locator
	if strings.HasPrefix(locator, "file:") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("parse locator: %w", err)
		}
		name = u.Path
	}
	name = strings.TrimPrefix(name, "/")

	file, err := f.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := readLimited(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
