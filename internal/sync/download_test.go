package sync

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

type testServer struct {
	*httptest.Server
	hits  int32
	token atomic.Value
}

func (ts *testServer) lastToken() string {
	token, _ := ts.token.Load().(string)
	return token
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.pdf", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		ts.token.Store(r.URL.Query().Get("token"))
		w.Write([]byte("pdf-bytes"))
	})
	mux.HandleFunc("/missing.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func downloadCourses(base string) []models.Course {
	return []models.Course{{
		ID:       7,
		Fullname: "Algorithms",
		Files: []models.File{
			{ContentID: "a", ContentType: models.ContentFile, ModuleModname: "resource",
				ContentFilename: "ok.pdf", ContentFileURL: base + "/ok.pdf", ContentFilesize: 9},
			{ContentID: "b", ContentType: models.ContentFile, ModuleModname: "resource",
				ContentFilename: "missing.pdf", ContentFileURL: base + "/missing.pdf"},
			{ContentID: "c", ContentType: models.ContentURL, ModuleModname: "url",
				ContentFilename: "lecture", ContentFileURL: "https://example.org/lecture"},
			{ContentID: "d", ContentType: models.ContentDescription, ModuleModname: "label",
				ContentFilename: "intro", HTML: "# Welcome"},
		},
	}}
}

func TestDownloadBackend(t *testing.T) {
	srv := newTestServer(t)
	registry := openTestRegistry(t)
	fs := afero.NewMemMapFs()

	backend := NewDownloadBackend(registry, NewLocalSink(fs), &DownloadConfig{
		NumWorkers: 2,
		Token:      "secret",
		Platform:   models.PlatformLinux,
		Client:     srv.Client(),
	})
	driver := NewDriver(registry, backend, DriverConfig{Root: "root", Platform: models.PlatformLinux})

	_, err := driver.Sync(downloadCourses(srv.URL))
	require.NoError(t, err)
	require.NoError(t, driver.Run(context.Background()))

	failed := driver.FailedTargets()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ContentID)
	assert.Error(t, failed[0].Err)
	assert.Equal(t, "secret", srv.lastToken())

	dir := filepath.Join("root", "Algorithms")
	pdf, err := afero.ReadFile(fs, filepath.Join(dir, "ok.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(pdf))

	link, err := afero.ReadFile(fs, filepath.Join(dir, "lecture.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(link), "URL=https://example.org/lecture")

	intro, err := afero.ReadFile(fs, filepath.Join(dir, "intro.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Welcome", string(intro))

	exists, err := afero.Exists(fs, filepath.Join(dir, "missing.pdf"))
	require.NoError(t, err)
	assert.False(t, exists)

	files, err := registry.GetFiles(7)
	require.NoError(t, err)
	status := map[string]models.FileStatus{}
	for _, f := range files {
		status[f.ContentID] = f.Status
	}
	assert.Equal(t, map[string]models.FileStatus{
		"a": models.StatusStored,
		"b": models.StatusFailed,
		"c": models.StatusStored,
		"d": models.StatusStored,
	}, status)

	sum := blake2b.Sum256([]byte("pdf-bytes"))
	assert.Equal(t, hex.EncodeToString(sum[:]), files[0].Hash)

	// a second pass only retries what failed
	_, err = driver.Sync(downloadCourses(srv.URL))
	require.NoError(t, err)
	require.NoError(t, driver.Run(context.Background()))
	assert.Len(t, driver.FailedTargets(), 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&srv.hits))
}

func TestDownloadBackendExternalFileWithoutToken(t *testing.T) {
	srv := newTestServer(t)
	registry := openTestRegistry(t)

	backend := NewDownloadBackend(registry, NewLocalSink(afero.NewMemMapFs()), &DownloadConfig{
		Token:    "secret",
		Platform: models.PlatformLinux,
		Client:   srv.Client(),
	})
	driver := NewDriver(registry, backend, DriverConfig{Root: "root", Platform: models.PlatformLinux})

	courses := []models.Course{{ID: 1, Fullname: "A", Files: []models.File{
		{ContentID: "x", ContentFilename: "ok.pdf", ContentFileURL: srv.URL + "/ok.pdf", IsExternal: true},
	}}}
	_, err := driver.Sync(courses)
	require.NoError(t, err)
	require.NoError(t, driver.Run(context.Background()))
	assert.Empty(t, driver.FailedTargets())
	assert.Empty(t, srv.lastToken())
}

func TestDownloadBackendCancelled(t *testing.T) {
	srv := newTestServer(t)
	registry := openTestRegistry(t)

	backend := NewDownloadBackend(registry, NewLocalSink(afero.NewMemMapFs()), &DownloadConfig{
		NumWorkers: 1,
		Platform:   models.PlatformLinux,
		Client:     srv.Client(),
	})
	driver := NewDriver(registry, backend, DriverConfig{Root: "root", Platform: models.PlatformLinux})
	_, err := driver.Sync(downloadCourses(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, driver.Run(ctx), context.Canceled)
	assert.Empty(t, driver.FailedTargets())

	pending, err := registry.GetPendingFiles()
	require.NoError(t, err)
	assert.Len(t, pending, 4)
}

func TestDownloadBackendEmptyInlineContent(t *testing.T) {
	registry := openTestRegistry(t)
	fs := afero.NewMemMapFs()

	backend := NewDownloadBackend(registry, NewLocalSink(fs), &DownloadConfig{Platform: models.PlatformLinux})
	driver := NewDriver(registry, backend, DriverConfig{Root: "root", Platform: models.PlatformLinux})

	courses := []models.Course{{ID: 1, Fullname: "A", Files: []models.File{
		{ContentID: "d", ContentType: models.ContentDescription, ModuleModname: "label", ContentFilename: "intro"},
		{ContentID: "h", ContentType: models.ContentHTML, ModuleModname: "page", ContentFilename: "page"},
	}}}
	_, err := driver.Sync(courses)
	require.NoError(t, err)
	require.NoError(t, driver.Run(context.Background()))
	assert.Empty(t, driver.FailedTargets())

	for _, name := range []string{"intro.md", "page.html"} {
		body, err := afero.ReadFile(fs, filepath.Join("root", "A", name))
		require.NoError(t, err, name)
		assert.Empty(t, body, name)
	}

	pending, err := registry.GetPendingFiles()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
