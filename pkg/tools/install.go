// Package tools installs the pinned dev shell utilities (the nickel
// configuration evaluator and the mask task runner) into the workspace
// .tools directory.
package tools

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/execution-handler/build-tools/pkg"
)

// Spec pins one tool in tools.yml.
type Spec struct {
	URL      string
	Version  string
	Dest     string
	Sha256   string
	Strip    int
	MarkExec []string `yaml:"markExec,omitempty"`
}

// Config is the decoded tools.yml.
type Config struct {
	Vars  map[string]string
	Tools map[string]Spec
}

// LoadConfig reads tools.yml plus the stamp file recording finished
// installs.
func LoadConfig(projectRoot string) (Config, map[string]string, error) {
	var cfg Config
	cfgPath := filepath.Join(projectRoot, "tools.yml")
	cfgData, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfg, nil, eris.Wrapf(err, "could not open file %s", cfgPath)
	}

	err = yaml.Unmarshal(cfgData, &cfg)
	if err != nil {
		return cfg, nil, eris.Wrapf(err, "failed to parse %s", cfgPath)
	}

	stamps := map[string]string{}
	stampPath := stampFile(projectRoot)
	stampData, err := os.ReadFile(stampPath)
	if err != nil {
		if !eris.Is(err, os.ErrNotExist) {
			return cfg, nil, eris.Wrapf(err, "failed to read stamps file %s", stampPath)
		}
	} else {
		err = json.Unmarshal(stampData, &stamps)
		if err != nil {
			return cfg, nil, eris.Wrapf(err, "failed to parse %s", stampPath)
		}
	}

	return cfg, stamps, nil
}

func stampFile(projectRoot string) string {
	return filepath.Join(projectRoot, ".tools", ".stamps.json")
}

var varMatcher = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// ExpandURL substitutes {VAR} placeholders in a tool URL. OS, ARCH and
// VERSION are always available.
func ExpandURL(spec Spec, vars map[string]string) string {
	merged := map[string]string{
		"OS":      runtime.GOOS,
		"ARCH":    runtime.GOARCH,
		"VERSION": spec.Version,
	}
	for name, value := range vars {
		merged[name] = value
	}

	return varMatcher.ReplaceAllStringFunc(spec.URL, func(placeholder string) string {
		return merged[placeholder[1:len(placeholder)-1]]
	})
}

// Install downloads, verifies and unpacks every tool that has no
// up-to-date stamp yet.
func Install(projectRoot string) error {
	cfg, stamps, err := LoadConfig(projectRoot)
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: time.Minute * 30,
	}

	toolsDir := filepath.Join(projectRoot, ".tools")
	err = os.MkdirAll(toolsDir, 0755)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", toolsDir)
	}

	for name, spec := range cfg.Tools {
		url := ExpandURL(spec, cfg.Vars)

		destDir := filepath.Join(toolsDir, spec.Dest)
		_, err := os.Stat(destDir)
		destExists := err == nil

		stampToken := url + "#" + spec.Sha256
		if stamps[name] == stampToken && destExists {
			continue
		}

		if spec.Sha256 == "" {
			return eris.Errorf("tool %s doesn't have a checksum", name)
		}

		pkg.PrintSubtask(name + ":  " + url)
		archive, err := download(client, url, spec.Sha256)
		if err != nil {
			return err
		}

		if destExists {
			err = os.RemoveAll(destDir)
			if err != nil {
				return eris.Wrapf(err, "failed to remove previous install at %s", destDir)
			}
		}

		err = extract(archive, url, destDir, spec.Strip)
		os.Remove(archive)
		if err != nil {
			return err
		}

		// .zip files don't carry permissions, fix them up for the binaries
		for _, binPath := range spec.MarkExec {
			binPath = filepath.Join(destDir, binPath)
			fi, err := os.Stat(binPath)
			if err != nil {
				return eris.Wrapf(err, "failed to read permissions for %s", binPath)
			}

			err = os.Chmod(binPath, fi.Mode()|0755)
			if err != nil {
				return eris.Wrapf(err, "failed to mark %s as executable", binPath)
			}
		}

		stamps[name] = stampToken
	}

	stampData, err := json.Marshal(stamps)
	if err != nil {
		return eris.Wrap(err, "failed to serialize stamps")
	}

	err = os.WriteFile(stampFile(projectRoot), stampData, 0644)
	if err != nil {
		return eris.Wrapf(err, "failed to write %s", stampFile(projectRoot))
	}

	return nil
}

// Verify checks that every pinned tool is installed and reports the
// missing ones.
func Verify(projectRoot string) ([]string, error) {
	cfg, stamps, err := LoadConfig(projectRoot)
	if err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	for name, spec := range cfg.Tools {
		url := ExpandURL(spec, cfg.Vars)
		destDir := filepath.Join(projectRoot, ".tools", spec.Dest)

		_, statErr := os.Stat(destDir)
		if stamps[name] != url+"#"+spec.Sha256 || statErr != nil {
			missing = append(missing, name)
		}
	}

	return missing, nil
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

// download fetches url into a temp file and verifies its checksum.
func download(client *http.Client, url, wantSha256 string) (string, error) {
	handle, err := os.CreateTemp("", "tools_dl-*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "failed to create download temp file")
	}
	defer handle.Close()

	resp, err := client.Get(url)
	if err != nil {
		os.Remove(handle.Name())
		return "", eris.Wrapf(err, "failed to start download for %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(handle.Name())
		return "", eris.Errorf("download of %s failed with status %s", url, resp.Status)
	}

	hash := sha256.New()
	bar := getProgressBar(resp.ContentLength, "     download")
	_, err = io.Copy(io.MultiWriter(handle, hash, bar), resp.Body)
	bar.Finish()
	if err != nil {
		os.Remove(handle.Name())
		return "", eris.Wrapf(err, "failed during download of %s", url)
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(digest, wantSha256) {
		os.Remove(handle.Name())
		return "", eris.Errorf("checksum check failed for %s: got %s, want %s", url, digest, wantSha256)
	}

	return handle.Name(), nil
}
