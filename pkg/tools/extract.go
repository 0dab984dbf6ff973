package tools

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/ulikunitz/xz"
)

// extract unpacks the archive at path into destDir, stripping the given
// number of leading path elements. The format is derived from the URL
// suffix.
func extract(path, url, destDir string, strip int) error {
	handle, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", path)
	}
	defer handle.Close()

	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip(handle, destDir, strip)
	case strings.HasSuffix(url, ".tar.gz"), strings.HasSuffix(url, ".tgz"):
		reader, err := gzip.NewReader(handle)
		if err != nil {
			return eris.Wrap(err, "failed to open gzip stream")
		}
		defer reader.Close()

		return extractTar(reader, destDir, strip)
	case strings.HasSuffix(url, ".tar.bz2"):
		return extractTar(bzip2.NewReader(handle), destDir, strip)
	case strings.HasSuffix(url, ".tar.xz"):
		reader, err := xz.NewReader(handle)
		if err != nil {
			return eris.Wrap(err, "failed to open xz stream")
		}

		return extractTar(reader, destDir, strip)
	}

	return eris.Errorf("archive format of %s not supported", url)
}

// entryDest strips leading path elements and anchors the entry below
// destDir. Entries that escape destDir are rejected.
func entryDest(destDir, item string, strip int) (string, error) {
	parts := strings.Split(filepath.Clean(filepath.FromSlash(item)), string(filepath.Separator))
	if len(parts) <= strip {
		return "", nil
	}

	dest := filepath.Join(destDir, filepath.Join(parts[strip:]...))
	if dest == destDir {
		return "", nil
	}

	if !strings.HasPrefix(dest, destDir+string(filepath.Separator)) {
		return "", eris.Errorf("archive entry %s escapes the destination directory", item)
	}

	return dest, nil
}

func writeEntry(dest string, mode os.FileMode, content io.Reader) error {
	err := os.MkdirAll(filepath.Dir(dest), 0755)
	if err != nil {
		return eris.Wrapf(err, "failed to create directory %s", filepath.Dir(dest))
	}

	handle, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to create file %s", dest)
	}
	defer handle.Close()

	_, err = io.Copy(handle, content)
	if err != nil {
		return eris.Wrapf(err, "failed to write extracted file %s", dest)
	}

	return handle.Close()
}

func extractZip(handle *os.File, destDir string, strip int) error {
	stat, err := handle.Stat()
	if err != nil {
		return eris.Wrap(err, "failed to stat archive")
	}

	archive, err := zip.NewReader(handle, stat.Size())
	if err != nil {
		return eris.Wrap(err, "failed to read zip archive")
	}

	for _, item := range archive.File {
		if strings.HasSuffix(item.Name, "/") {
			continue
		}

		dest, err := entryDest(destDir, item.Name, strip)
		if err != nil {
			return err
		}
		if dest == "" {
			continue
		}

		content, err := item.Open()
		if err != nil {
			return eris.Wrap(err, "failed to open archive entry")
		}

		err = writeEntry(dest, item.Mode(), content)
		content.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func extractTar(r io.Reader, destDir string, strip int) error {
	archive := tar.NewReader(r)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		dest, err := entryDest(destDir, item.Name, strip)
		if err != nil {
			return err
		}
		if dest == "" {
			continue
		}

		if item.Typeflag == tar.TypeSymlink {
			err := os.MkdirAll(filepath.Dir(dest), 0755)
			if err != nil {
				return eris.Wrapf(err, "failed to create directory %s", filepath.Dir(dest))
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		err = writeEntry(dest, fi.Mode(), archive)
		if err != nil {
			return err
		}
	}

	return nil
}
