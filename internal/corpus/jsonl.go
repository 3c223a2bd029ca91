// Package corpus parses training-record feeds. The capture pipeline ships
// snapshots as JSONL; analysts occasionally hand-curate XLSX sheets. Both
// land in the same append-only store.
package corpus

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// ReadJSONL parses one training record per line. Blank lines are skipped;
// a malformed line aborts the whole read so a bad feed never half-imports.
func ReadJSONL(path string) ([]model.TrainingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: open jsonl")
	}
	defer f.Close()

	var records []model.TrainingRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var r model.TrainingRecord
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return nil, eris.Wrapf(err, "corpus: parse jsonl line %d", line)
		}
		if err := validateRecord(&r, line); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "corpus: read jsonl")
	}

	return records, nil
}

func validateRecord(r *model.TrainingRecord, line int) error {
	if r.VideoID == "" {
		return eris.Errorf("corpus: line %d: missing video_id", line)
	}
	if r.PublishedAt.IsZero() {
		return eris.Errorf("corpus: line %d (%s): missing published_at", line, r.VideoID)
	}
	r.PublishedAt = r.PublishedAt.UTC()
	return nil
}
