// Package packer compresses finished build artifacts for distribution.
package packer

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// Format selects the compression applied to the artifact tarball.
type Format string

const (
	FormatXz     Format = "tar.xz"
	FormatBrotli Format = "tar.br"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatXz:
		return FormatXz, nil
	case FormatBrotli:
		return FormatBrotli, nil
	}

	return "", eris.Errorf("unsupported archive format %s", name)
}

// Pack writes <artifactDir>.<format> next to the artifact and returns the
// archive path. It refuses to pack a directory that doesn't look like a
// finished artifact (no launchers in bin/).
func Pack(artifactDir string, format Format, showProgress bool) (string, error) {
	binDir := filepath.Join(artifactDir, "bin")
	entries, err := os.ReadDir(binDir)
	if err != nil || len(entries) == 0 {
		return "", eris.Errorf("%s is not a finished artifact (missing launchers in bin/)", artifactDir)
	}

	archivePath := filepath.Clean(artifactDir) + "." + string(format)
	handle, err := os.Create(archivePath)
	if err != nil {
		return "", eris.Wrapf(err, "failed to create %s", archivePath)
	}
	defer handle.Close()

	var compressor io.WriteCloser
	switch format {
	case FormatXz:
		compressor, err = xz.NewWriter(handle)
		if err != nil {
			return "", eris.Wrap(err, "failed to initialize xz writer")
		}
	case FormatBrotli:
		compressor = brotli.NewWriterLevel(handle, brotli.BestCompression)
	default:
		return "", eris.Errorf("unsupported archive format %s", format)
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		total, err := dirSize(artifactDir)
		if err != nil {
			return "", err
		}

		bar = progressbar.DefaultBytes(total, "     pack")
		defer bar.Finish()
	}

	archive := tar.NewWriter(compressor)
	err = addTree(archive, artifactDir, bar)
	if err != nil {
		os.Remove(archivePath)
		return "", err
	}

	err = archive.Close()
	if err != nil {
		os.Remove(archivePath)
		return "", eris.Wrap(err, "failed to finalize archive")
	}

	err = compressor.Close()
	if err != nil {
		os.Remove(archivePath)
		return "", eris.Wrap(err, "failed to finalize compression")
	}

	return archivePath, handle.Close()
}

func dirSize(root string) (int64, error) {
	var total int64

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, eris.Wrapf(err, "failed to measure %s", root)
	}

	return total, nil
}

func addTree(archive *tar.Writer, root string, bar *progressbar.ProgressBar) error {
	base := filepath.Base(filepath.Clean(root))

	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return eris.Wrapf(err, "failed to stat %s", path)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		// symlink entries carry their target in the header and no body
		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return eris.Wrapf(err, "failed to read symlink %s", path)
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return eris.Wrapf(err, "failed to build header for %s", path)
		}
		header.Name = filepath.ToSlash(filepath.Join(base, rel))

		err = archive.WriteHeader(header)
		if err != nil {
			return eris.Wrapf(err, "failed to write header for %s", path)
		}

		if entry.IsDir() || linkTarget != "" {
			return nil
		}

		handle, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", path)
		}
		defer handle.Close()

		if bar != nil {
			_, err = io.Copy(io.MultiWriter(archive, bar), handle)
		} else {
			_, err = io.Copy(archive, handle)
		}
		if err != nil {
			return eris.Wrapf(err, "failed to archive %s", path)
		}

		return nil
	})
}
