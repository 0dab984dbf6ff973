package orchestrator

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
)

// depsDirName is where the installed dependency set lives inside an
// artifact.
const depsDirName = "deps"

// copyTree copies the source tree below src into dst. VCS state,
// in-progress staging directories and any directory listed in skipDirs
// (absolute paths) are left out. Symlinks are recreated as symlinks, never
// dereferenced, so dangling links and links to directories survive the
// copy. Returns the copied byte count.
func copyTree(src, dst string, bar *progressbar.ProgressBar, skipDirs ...string) (int64, error) {
	var copied int64

	err := filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() && skipEntry(path, entry.Name(), skipDirs) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		if entry.Type()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return eris.Wrapf(err, "failed to read symlink %s", path)
			}

			err = os.Symlink(linkTarget, target)
			if err != nil {
				return eris.Wrapf(err, "failed to recreate symlink %s", target)
			}
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return eris.Wrapf(err, "failed to stat %s", path)
		}

		in, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", path)
		}
		defer in.Close()

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return eris.Wrapf(err, "failed to create %s", target)
		}
		defer out.Close()

		var n int64
		if bar != nil {
			n, err = io.Copy(io.MultiWriter(out, bar), in)
		} else {
			n, err = io.Copy(out, in)
		}
		if err != nil {
			return eris.Wrapf(err, "failed to copy %s", path)
		}

		copied += n
		return out.Close()
	})
	if err != nil {
		return copied, eris.Wrapf(err, "failed to copy tree %s", src)
	}

	return copied, nil
}

func skipEntry(path, name string, skipDirs []string) bool {
	if name == ".git" || strings.HasPrefix(name, ".staging-") {
		return true
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	for _, skip := range skipDirs {
		if abs == skip {
			return true
		}
	}
	return false
}

// treeSize sums the file sizes below root, honoring the same skip rules as
// copyTree.
func treeSize(root string, skipDirs ...string) (int64, error) {
	var total int64

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() && skipEntry(path, entry.Name(), skipDirs) {
			return filepath.SkipDir
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

	return total, err
}

// writeLaunchers renders both entry points into <staging>/bin. The deps
// path inside a launcher is relative to the artifact root so the artifact
// stays relocatable.
func writeLaunchers(staging, name, interpreter, entryScript, moduleName string) error {
	binDir := filepath.Join(staging, "bin")
	err := os.MkdirAll(binDir, 0755)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", binDir)
	}

	launchers := []struct {
		file string
		spec LauncherSpec
	}{
		{name, LauncherSpec{
			Kind:        LauncherScript,
			DepsPath:    depsDirName,
			Interpreter: interpreter,
			Entry:       entryScript,
		}},
		{name + "-module", LauncherSpec{
			Kind:        LauncherModule,
			DepsPath:    depsDirName,
			Interpreter: interpreter,
			Entry:       moduleName,
		}},
	}

	for _, launcher := range launchers {
		text, err := RenderLauncher(launcher.spec)
		if err != nil {
			return eris.Wrapf(err, "failed to render launcher %s", launcher.file)
		}

		path := filepath.Join(binDir, launcher.file)
		err = os.WriteFile(path, []byte(text), 0755)
		if err != nil {
			return eris.Wrapf(err, "failed to write launcher %s", path)
		}
	}

	return nil
}
