package tools

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeArchive(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, content, 0644)
	if err != nil {
		t.Fatal(err)
	}

	return path
}

func buildTarGz(t *testing.T) []byte {
	t.Helper()

	buffer := bytes.Buffer{}
	compressor := gzip.NewWriter(&buffer)
	archive := tar.NewWriter(compressor)

	entries := map[string]string{
		"mask-0.11.4/bin/mask":  "#!/bin/sh\necho mask\n",
		"mask-0.11.4/README.md": "readme",
	}
	for name, content := range entries {
		err := archive.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0755,
			Size: int64(len(content)),
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := archive.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	err := archive.WriteHeader(&tar.Header{
		Name:     "mask-0.11.4/bin/m",
		Typeflag: tar.TypeSymlink,
		Linkname: "mask",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := archive.Close(); err != nil {
		t.Fatal(err)
	}
	if err := compressor.Close(); err != nil {
		t.Fatal(err)
	}

	return buffer.Bytes()
}

func TestExtractTarGzWithStrip(t *testing.T) {
	path := writeArchive(t, "mask.tar.gz", buildTarGz(t))
	destDir := filepath.Join(t.TempDir(), "mask")

	err := extract(path, "https://example.org/mask.tar.gz", destDir, 1)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "bin", "mask"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "#!/bin/sh\necho mask\n" {
		t.Errorf("unexpected content %q", content)
	}

	if _, err := os.ReadFile(filepath.Join(destDir, "README.md")); err != nil {
		t.Errorf("top level file missing after strip: %v", err)
	}

	target, err := os.Readlink(filepath.Join(destDir, "bin", "m"))
	if err != nil {
		t.Fatal(err)
	}
	if target != "mask" {
		t.Errorf("symlink points at %q, want mask", target)
	}
}

func TestExtractZip(t *testing.T) {
	buffer := bytes.Buffer{}
	archive := zip.NewWriter(&buffer)

	writer, err := archive.Create("nickel/nickel")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write([]byte("binary")); err != nil {
		t.Fatal(err)
	}
	if err := archive.Close(); err != nil {
		t.Fatal(err)
	}

	path := writeArchive(t, "nickel.zip", buffer.Bytes())
	destDir := filepath.Join(t.TempDir(), "nickel")

	err = extract(path, "https://example.org/nickel.zip", destDir, 1)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "nickel"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "binary" {
		t.Errorf("unexpected content %q", content)
	}
}

func TestExtractUnknownFormat(t *testing.T) {
	path := writeArchive(t, "tool.rar", []byte("rar"))

	err := extract(path, "https://example.org/tool.rar", t.TempDir(), 0)
	if err == nil {
		t.Fatal("unsupported formats must be rejected")
	}
}
