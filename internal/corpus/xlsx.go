package corpus

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// xlsxColumns maps header names to positions. Headers are matched
// case-insensitively.
type xlsxColumns map[string]int

var requiredColumns = []string{"video_id", "published_at", "title", "duration_seconds", "vph"}

// ReadXLSX parses hand-curated training records from the first sheet. The
// header row names the columns; order does not matter. Optional columns may
// be absent or empty.
func ReadXLSX(path string) ([]model.TrainingRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("corpus: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, eris.New("corpus: xlsx needs a header row and at least one record")
	}

	cols, err := parseHeader(sheet.Rows[0])
	if err != nil {
		return nil, err
	}

	var records []model.TrainingRecord
	for i, row := range sheet.Rows[1:] {
		rowNum := i + 2 // 1-based, after header
		cells := rowToStrings(row)
		if allBlank(cells) {
			continue
		}

		r, err := parseRow(cells, cols, rowNum)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, nil
}

func parseHeader(row *xlsx.Row) (xlsxColumns, error) {
	cols := make(xlsxColumns)
	for i, cell := range row.Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		if name != "" {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, eris.Errorf("corpus: xlsx missing required column %q", name)
		}
	}
	return cols, nil
}

func parseRow(cells []string, cols xlsxColumns, rowNum int) (*model.TrainingRecord, error) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	r := &model.TrainingRecord{
		VideoID: get("video_id"),
		Title:   get("title"),
		Source:  get("source"),
	}
	if r.VideoID == "" {
		return nil, eris.Errorf("corpus: xlsx row %d: missing video_id", rowNum)
	}

	publishedAt, err := time.Parse(time.RFC3339, get("published_at"))
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: xlsx row %d: published_at", rowNum)
	}
	r.PublishedAt = publishedAt.UTC()

	if r.DurationSeconds, err = parseIntCell(get("duration_seconds"), rowNum, "duration_seconds"); err != nil {
		return nil, err
	}
	if r.VPH, err = parseFloatCell(get("vph"), rowNum, "vph"); err != nil {
		return nil, err
	}

	// Optional columns degrade to zero values.
	if v := get("category_id"); v != "" {
		if r.CategoryID, err = parseIntCell(v, rowNum, "category_id"); err != nil {
			return nil, err
		}
	}
	if v := get("channel_subscribers"); v != "" {
		subs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "corpus: xlsx row %d: channel_subscribers", rowNum)
		}
		r.ChannelSubscribers = subs
	}
	if v := get("niche_score"); v != "" {
		if r.NicheScore, err = parseFloatCell(v, rowNum, "niche_score"); err != nil {
			return nil, err
		}
	}
	if v := get("thumbnail_text_hit"); v != "" {
		r.ThumbnailTextHit = parseBoolCell(v)
	}
	if v := get("is_own"); v != "" {
		r.IsOwn = parseBoolCell(v)
	}
	if v := get("days_since_last_upload"); v != "" {
		days, err := parseIntCell(v, rowNum, "days_since_last_upload")
		if err != nil {
			return nil, err
		}
		r.DaysSinceLastUpload = &days
	}

	return r, nil
}

func parseIntCell(v string, rowNum int, col string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(err, "corpus: xlsx row %d: %s", rowNum, col)
	}
	return n, nil
}

func parseFloatCell(v string, rowNum int, col string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "corpus: xlsx row %d: %s", rowNum, col)
	}
	return f, nil
}

func parseBoolCell(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
