package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/property-feed-converter/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newImageServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		if strings.HasSuffix(r.URL.Path, "/missing.jpg") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("jpeg:" + r.URL.Path + "?" + r.URL.RawQuery))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func feedFor(base string) string {
	return `<root>
  <property>
    <id>101</id>
    <images>
      <image id="1"><url>` + base + `/a.jpg?w=1&amp;amp;h=2</url></image>
      <image id="2"><url>` + base + `/missing.jpg</url></image>
      <image><url>` + base + `/c.jpg</url></image>
      <image id="4"><url></url></image>
    </images>
  </property>
  <property>
    <id> 102 </id>
  </property>
  <property>
    <ref>no-id</ref>
  </property>
  <property>
    <id>../escape</id>
  </property>
</root>`
}

func TestSync(t *testing.T) {
	ts, calls := newImageServer(t)
	base := t.TempDir()

	stale := filepath.Join(base, "999")
	require.NoError(t, os.MkdirAll(stale, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0644))

	s := NewSyncer(Config{BaseDir: base, MaxRetries: 1}, nil)
	result, err := s.Sync(context.Background(), strings.NewReader(feedFor(ts.URL)))
	require.NoError(t, err)

	assert.Equal(t, SyncResult{
		Listings:       2,
		Skipped:        2,
		FoldersRemoved: 1,
		Downloaded:     2,
		Existing:       0,
		Failed:         1,
	}, result)
	assert.True(t, result.HasFailures())

	assert.NoDirExists(t, stale)
	assert.FileExists(t, filepath.Join(base, "notes.txt"))
	assert.DirExists(t, filepath.Join(base, "102"))

	data, err := os.ReadFile(filepath.Join(base, "101", "image_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/a.jpg?w=1&h=2", string(data))
	assert.FileExists(t, filepath.Join(base, "101", "image_unknown.jpg"))
	assert.NoFileExists(t, filepath.Join(base, "101", "image_2.jpg"))

	// Second run only retries the missing image.
	before := atomic.LoadInt32(calls)
	result, err = s.Sync(context.Background(), strings.NewReader(feedFor(ts.URL)))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Existing)
	assert.Equal(t, 0, result.Downloaded)
	assert.Equal(t, 0, result.FoldersRemoved)
	assert.Equal(t, before+1, atomic.LoadInt32(calls))
}

func TestSyncFile(t *testing.T) {
	ts, _ := newImageServer(t)
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte(feedFor(ts.URL)), 0644))

	s := NewSyncer(Config{BaseDir: filepath.Join(dir, "images")}, nil)
	result, err := s.SyncFile(context.Background(), feedPath)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Listings)

	_, err = s.SyncFile(context.Background(), filepath.Join(dir, "absent.xml"))
	assert.Error(t, err)
}

func TestSync_MalformedFeed(t *testing.T) {
	s := NewSyncer(Config{BaseDir: t.TempDir()}, nil)
	_, err := s.Sync(context.Background(), strings.NewReader("<root><property></root>"))
	assert.Error(t, err)
}

func TestSafeFolderName(t *testing.T) {
	assert.True(t, safeFolderName("101"))
	assert.True(t, safeFolderName("A-7.b"))
	assert.False(t, safeFolderName(""))
	assert.False(t, safeFolderName(".."))
	assert.False(t, safeFolderName("a/b"))
	assert.False(t, safeFolderName(`a\b`))
}
