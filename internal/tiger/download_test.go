package tiger

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/state-atlas/internal/resilience"
)

func TestDownload_Success(t *testing.T) {
	// Create a test ZIP with a .shp file inside.
	zipContent := createTestZIP(t, map[string]string{
		"tl_2023_us_county.shp": "fake shapefile data",
		"tl_2023_us_county.dbf": "fake dbf data",
		"tl_2023_us_county.shx": "fake shx data",
		"tl_2023_us_county.prj": "fake prj",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(zipContent)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	shpPath, err := Download(context.Background(), srv.URL+"/tl_2023_us_county.zip", destDir)

	require.NoError(t, err)
	assert.Equal(t, ShapefilePath(destDir, 2023), shpPath)
	assert.FileExists(t, shpPath)
	assert.FileExists(t, filepath.Join(destDir, "tl_2023_us_county", "tl_2023_us_county.prj"))
}

func TestDownload_Resumable(t *testing.T) {
	zipContent := createTestZIP(t, map[string]string{
		"test.shp": "fake shapefile data",
	})

	var callCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		callCount++
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(zipContent)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	url := srv.URL + "/tl_2023_us_county.zip"

	// First download.
	_, err := Download(context.Background(), url, destDir)
	require.NoError(t, err)
	assert.Equal(t, 1, callCount)

	// Second download should skip (ZIP already exists).
	_, err = Download(context.Background(), url, destDir)
	require.NoError(t, err)
	assert.Equal(t, 1, callCount) // no additional HTTP call
}

func fastRetry(t *testing.T) {
	t.Helper()
	prev := DownloadRetry
	DownloadRetry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	t.Cleanup(func() { DownloadRetry = prev })
}

func TestDownload_ServerError(t *testing.T) {
	fastRetry(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	_, err := Download(context.Background(), srv.URL+"/bad.zip", destDir)
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.NoFileExists(t, filepath.Join(destDir, "bad.zip"))
	assert.NoFileExists(t, filepath.Join(destDir, "bad.zip.part"))
}

func TestDownload_NotFoundIsNotRetried(t *testing.T) {
	fastRetry(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), srv.URL+"/tl_1900_us_county.zip", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, 1, calls)
}

func TestDownload_RecoversFromTransientFailure(t *testing.T) {
	fastRetry(t)
	zipData := createTestZIP(t, map[string]string{"tl_2023_us_county.shp": "shp"})
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(zipData)
	}))
	defer srv.Close()

	shpPath, err := Download(context.Background(), srv.URL+"/tl_2023_us_county.zip", t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, shpPath)
	assert.Equal(t, 2, calls)
}

func TestDownload_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	destDir := t.TempDir()
	_, err := Download(ctx, srv.URL+"/slow.zip", destDir)
	assert.Error(t, err)
}

func TestFetch_UsesYearURL(t *testing.T) {
	assert.Equal(t,
		"https://www2.census.gov/geo/tiger/TIGER2023/COUNTY/tl_2023_us_county.zip",
		DownloadURL(2023))
	assert.Equal(t, filepath.Join("geo", "tl_2020_us_county", "tl_2020_us_county.shp"), ShapefilePath("geo", 2020))
}

func TestExtractZIP_FlattensDirectories(t *testing.T) {
	zipContent := createTestZIP(t, map[string]string{
		"nested/dir/county.shp": "shp",
	})
	zipPath := filepath.Join(t.TempDir(), "nested.zip")
	require.NoError(t, os.WriteFile(zipPath, zipContent, 0o644))

	extractDir := t.TempDir()
	require.NoError(t, extractZIP(zipPath, extractDir))
	assert.FileExists(t, filepath.Join(extractDir, "county.shp"))
}

func TestExtractZIP(t *testing.T) {
	files := map[string]string{
		"file1.txt": "content1",
		"file2.shp": "shapefile content",
	}
	zipContent := createTestZIP(t, files)

	// Write ZIP to temp file.
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	require.NoError(t, os.WriteFile(zipPath, zipContent, 0o644))

	extractDir := filepath.Join(t.TempDir(), "extracted")
	require.NoError(t, os.MkdirAll(extractDir, 0o755))

	err := extractZIP(zipPath, extractDir)
	require.NoError(t, err)

	// Verify extracted files.
	for name, expectedContent := range files {
		data, readErr := os.ReadFile(filepath.Join(extractDir, name))
		require.NoError(t, readErr)
		assert.Equal(t, expectedContent, string(data))
	}
}

func TestFindFileByExt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.shp"), []byte("shp"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.dbf"), []byte("dbf"), 0o644))

	shpPath, err := findFileByExt(dir, ".shp")
	require.NoError(t, err)
	assert.Contains(t, shpPath, "data.shp")

	_, err = findFileByExt(dir, ".prj")
	assert.Error(t, err)
}

// createTestZIP creates a ZIP file in memory with the given files.
func createTestZIP(t *testing.T, files map[string]string) []byte {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(tmpFile)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, createErr := w.Create(name)
		require.NoError(t, createErr)
		_, writeErr := fw.Write([]byte(content))
		require.NoError(t, writeErr)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	return data
}
