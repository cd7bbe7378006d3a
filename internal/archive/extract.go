// Package archive extracts uploaded site bundles onto disk.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for archives that are not zip, tar or tar.gz.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned when an entry would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrTooLarge is returned when the uncompressed size exceeds the configured limit.
	ErrTooLarge = errors.New("archive exceeds size limit")
)

// Extractor unpacks zip and tar(.gz) archives. The destination directory only
// appears once extraction has fully succeeded.
type Extractor struct {
	maxBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes caps the total uncompressed size written. Zero means no limit.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) { e.maxBytes = n }
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type format int

const (
	formatZip format = iota
	formatTar
	formatTarGz
)

func detectFormat(name string) (format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return formatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return formatTarGz, nil
	case strings.HasSuffix(lower, ".tar"):
		return formatTar, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
}

// Supported reports whether name has an extension Extract can handle.
func Supported(name string) bool {
	_, err := detectFormat(name)
	return err == nil
}

// Extract unpacks archivePath into dest. It stages into a temporary sibling
// directory and renames it into place, so a failed run leaves dest absent.
func (e *Extractor) Extract(ctx context.Context, archivePath, dest string) error {
	f, err := detectFormat(archivePath)
	if err != nil {
		return err
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create extraction parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	w := &writer{ctx: ctx, root: staging, limited: e.maxBytes > 0, remaining: e.maxBytes}
	switch f {
	case formatZip:
		err = w.zip(archivePath)
	case formatTarGz:
		err = w.tarFile(archivePath, true)
	case formatTar:
		err = w.tarFile(archivePath, false)
	}
	if err != nil {
		os.RemoveAll(staging)
		return err
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("chmod staging dir: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("move extracted files into place: %w", err)
	}
	return nil
}

type writer struct {
	ctx       context.Context
	root      string
	limited   bool
	remaining int64
}

// target resolves an entry name under the root, rejecting traversal and
// absolute paths.
func (w *writer) target(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(w.root, clean), nil
}

func (w *writer) zip(path string) error {
	zr, err := zip.OpenReader(path)
	if errors.Is(err, zip.ErrInsecurePath) {
		if zr != nil {
			zr.Close()
		}
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		dst, err := w.target(zf.Name)
		if err != nil {
			return err
		}
		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", zf.Name, err)
			}
		case mode&fs.ModeSymlink != 0:
			return fmt.Errorf("%w: symlink %s", ErrUnsafePath, zf.Name)
		default:
			rc, err := zf.Open()
			if err != nil {
				return fmt.Errorf("open entry %s: %w", zf.Name, err)
			}
			err = w.file(dst, rc, mode.Perm())
			rc.Close()
			if err != nil {
				return fmt.Errorf("extract %s: %w", zf.Name, err)
			}
		}
	}
	return nil
}

func (w *writer) tarFile(path string, gzipped bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open tar: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		dst, err := w.target(hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := w.file(dst, tr, fs.FileMode(hdr.Mode).Perm()); err != nil {
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
		case tar.TypeSymlink, tar.TypeLink:
			return fmt.Errorf("%w: link %s", ErrUnsafePath, hdr.Name)
		default:
			// Devices, fifos and pax metadata carry nothing a site needs.
		}
	}
}

func (w *writer) file(dst string, src io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	var r io.Reader = src
	if w.limited {
		// One byte past the budget makes an overrun detectable.
		r = io.LimitReader(src, w.remaining+1)
	}
	n, err := io.Copy(out, r)
	if w.limited {
		w.remaining -= n
		if err == nil && w.remaining < 0 {
			err = ErrTooLarge
		}
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
