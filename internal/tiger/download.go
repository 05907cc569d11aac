package tiger

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/resilience"
)

// Fetch downloads and extracts the nationwide county shapefile for year into
// dataDir and returns the .shp path.
func Fetch(ctx context.Context, year int, dataDir string) (string, error) {
	return Download(ctx, DownloadURL(year), dataDir)
}

// Download fetches a TIGER/Line ZIP file and extracts it next to the archive.
// An existing non-empty ZIP is reused. Returns the path to the extracted .shp file.
func Download(ctx context.Context, url, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "tiger.download"),
		zap.String("url", url),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create dest dir")
	}

	// Derive ZIP filename from URL.
	zipName := url[strings.LastIndex(url, "/")+1:]
	if zipName == "" {
		return "", eris.Errorf("tiger: no file name in url %s", url)
	}
	zipPath := filepath.Join(destDir, zipName)

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Info("zip already downloaded", zap.String("path", zipPath))
	} else {
		log.Info("downloading county shapefile")
		retry := DownloadRetry
		retry.OnRetry = resilience.RetryLogger("tiger.download", zipName)
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return downloadFile(ctx, url, zipPath)
		})
		if err != nil {
			return "", eris.Wrap(err, "tiger: download shapefile")
		}
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create extract dir")
	}

	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "tiger: extract ZIP")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "tiger: find .shp file")
	}

	log.Info("shapefile ready", zap.String("path", shpPath))
	return shpPath, nil
}

// DownloadRetry governs retries of 5xx responses and dropped connections.
var DownloadRetry = resilience.DefaultRetryConfig()

// downloadFile streams url into dest. The body lands in dest.part first so an
// interrupted transfer never looks like a finished ZIP.
func downloadFile(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("download returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return eris.Wrap(err, "create file")
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(part)
		return eris.Wrap(err, "write file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(part)
		return eris.Wrap(err, "close file")
	}

	return os.Rename(part, dest)
}

// extractZIP extracts a ZIP archive to the destination directory, flattening paths.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
