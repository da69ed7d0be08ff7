// Package updater checks GitHub releases for a newer ora-memory build
// and can replace the running binary in place. The check is best-effort
// and never blocks serving; the swap is a write-to-temp-then-rename so a
// failed download cannot leave a half-written executable.
package updater

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	githubRepo   = "oralabs/ora-memory"
	binaryName   = "ora-memory"
	checkTimeout = 10 * time.Second
)

// Overridable for tests.
var (
	releaseEndpoint = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	httpClient      = &http.Client{Timeout: checkTimeout}
)

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Status reports the outcome of a version check.
type Status struct {
	Current    string
	Latest     string
	Newer      bool
	ReleaseURL string
}

// Check queries GitHub for the latest release and compares it against
// the running version. It never returns an error: network failures just
// report no update, since the check is advisory.
func Check(current string) Status {
	st := Status{Current: trimV(current)}

	rel, err := fetchLatest(current)
	if err != nil {
		return st
	}

	st.Latest = trimV(rel.TagName)
	st.ReleaseURL = rel.HTMLURL
	st.Newer = versionLess(st.Current, st.Latest)
	return st
}

// Apply downloads the release asset for this OS and architecture and
// swaps it over the running executable. The caller must restart the
// process afterwards.
func Apply(current string) error {
	rel, err := fetchLatest(current)
	if err != nil {
		return err
	}

	latest := trimV(rel.TagName)
	if !versionLess(trimV(current), latest) {
		return fmt.Errorf("already at latest version (%s)", current)
	}

	want := assetName(latest)
	var url string
	for _, a := range rel.Assets {
		if a.Name == want {
			url = a.BrowserDownloadURL
			break
		}
	}
	if url == "" {
		return fmt.Errorf("no release asset for %s/%s (wanted %s)", runtime.GOOS, runtime.GOARCH, want)
	}

	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("downloading release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %d", resp.StatusCode)
	}

	bin, err := binaryFromTarGz(resp.Body)
	if err != nil {
		return fmt.Errorf("extracting binary: %w", err)
	}

	return swapExecutable(bin)
}

func fetchLatest(current string) (*release, error) {
	req, err := http.NewRequest(http.MethodGet, releaseEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", binaryName+"/"+current)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	return &rel, nil
}

// binaryFromTarGz scans a .tar.gz stream for the ora-memory binary.
func binaryFromTarGz(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if filepath.Base(hdr.Name) == binaryName {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

// swapExecutable writes the new binary next to the current one and
// renames it into place. Rename is atomic on the same filesystem.
func swapExecutable(bin []byte) error {
	if runtime.GOOS == "windows" {
		return fmt.Errorf("self-update is not supported on Windows, download manually from GitHub releases")
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}

	tmp := execPath + ".new"
	if err := os.WriteFile(tmp, bin, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}
	if err := os.Rename(tmp, execPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

// assetName matches GoReleaser's name_template for this project.
func assetName(version string) string {
	return fmt.Sprintf("%s_%s_%s_%s.tar.gz", binaryName, version, runtime.GOOS, runtime.GOARCH)
}

func trimV(v string) string {
	return strings.TrimPrefix(v, "v")
}

// versionLess reports whether current is older than latest, comparing
// up to three numeric semver parts. Unparseable or "dev" versions never
// report an update.
func versionLess(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}

	cur := splitParts(current)
	lat := splitParts(latest)
	for i := 0; i < 3; i++ {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

func splitParts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		// Trailing pre-release tags ("3rc1") parse up to the first
		// non-digit.
		digits := p
		for j, ch := range p {
			if ch < '0' || ch > '9' {
				digits = p[:j]
				break
			}
		}
		out[i], _ = strconv.Atoi(digits)
	}
	return out
}
