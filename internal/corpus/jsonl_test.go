package corpus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadJSONL(t *testing.T) {
	path := writeTempFile(t, "feed.jsonl", `
{"video_id":"vid-1","published_at":"2025-06-01T10:00:00Z","title":"first","duration_seconds":45,"vph":80.5}

{"video_id":"vid-2","published_at":"2025-06-02T17:30:00+02:00","title":"second","duration_seconds":300,"vph":120,"niche_score":75,"is_own":true,"days_since_last_upload":4}
`)

	records, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "vid-1", records[0].VideoID)
	assert.Equal(t, 80.5, records[0].VPH)

	// Offsets are normalized to UTC.
	assert.Equal(t, time.UTC, records[1].PublishedAt.Location())
	assert.Equal(t, time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC), records[1].PublishedAt)
	assert.True(t, records[1].IsOwn)
	require.NotNil(t, records[1].DaysSinceLastUpload)
	assert.Equal(t, 4, *records[1].DaysSinceLastUpload)
}

func TestReadJSONL_MalformedLineAborts(t *testing.T) {
	path := writeTempFile(t, "feed.jsonl", `{"video_id":"vid-1","published_at":"2025-06-01T10:00:00Z"}
{not json}
{"video_id":"vid-3","published_at":"2025-06-03T10:00:00Z"}
`)

	_, err := ReadJSONL(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "line 2")
}

func TestReadJSONL_MissingRequiredFields(t *testing.T) {
	t.Run("video_id", func(t *testing.T) {
		path := writeTempFile(t, "feed.jsonl", `{"published_at":"2025-06-01T10:00:00Z"}`)
		_, err := ReadJSONL(path)
		assert.ErrorContains(t, err, "missing video_id")
	})

	t.Run("published_at", func(t *testing.T) {
		path := writeTempFile(t, "feed.jsonl", `{"video_id":"vid-1"}`)
		_, err := ReadJSONL(path)
		assert.ErrorContains(t, err, "missing published_at")
	})
}

func TestReadJSONL_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "feed.jsonl", "")

	records, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadJSONL_FileNotFound(t *testing.T) {
	_, err := ReadJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.ErrorContains(t, err, "open jsonl")
}
