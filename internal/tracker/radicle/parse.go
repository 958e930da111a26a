package radicle

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"

	"github.com/fovi-llc/radsync/internal/tracker"
)

// listRow is what the list table reliably carries: the stable object ID
// and a best-effort title. Everything else comes from the show commands.
type listRow struct {
	ID    string
	Title string
}

// objectIDPattern matches a (possibly truncated) Radicle object ID.
var objectIDPattern = regexp.MustCompile(`^[0-9a-f]{6,40}$`)

// markerTokens are table decorations that precede the ID column.
var markerTokens = map[string]bool{
	"●": true, "○": true, "✔": true, "✗": true, "✦": true, "†": true,
}

// parseListRows scans a rad list table for object IDs.
//
// rad renders lists as box-drawing tables whose exact column layout has
// shifted between releases, so only the ID column is trusted: the first
// hex-looking token of each data row. The trailing tokens are kept as a
// fallback title for when the follow-up show call fails.
func parseListRows(output string) []listRow {
	var rows []listRow

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "│") {
			continue
		}

		fields := strings.Fields(strings.ReplaceAll(line, "│", " "))

		idx := -1
		for i, f := range fields {
			if markerTokens[f] {
				continue
			}
			if objectIDPattern.MatchString(f) {
				idx = i
			}
			break
		}
		if idx == -1 {
			continue
		}

		row := listRow{ID: fields[idx]}
		if rest := fields[idx+1:]; len(rest) > 0 {
			row.Title = strings.Join(rest, " ")
		}
		rows = append(rows, row)
	}

	return rows
}

// showDetail is the parsed form of a `rad issue show` / `rad patch show`
// header box.
type showDetail struct {
	// Fields maps header names (Title, Author, Status, ...) to values
	Fields map[string]string

	// Body is the description text below the header separator
	Body string

	// OpenedAt is the Opened field resolved to an absolute time,
	// zero when rad reported nothing parseable
	OpenedAt time.Time
}

// showFieldNames are the header keys the show commands print.
var showFieldNames = map[string]bool{
	"Title": true, "Issue": true, "Patch": true, "Author": true,
	"Labels": true, "Status": true, "Opened": true, "Head": true,
	"Base": true, "Branches": true, "Commits": true, "Assignees": true,
}

// parseShow parses a show box relative to the current time.
func parseShow(output string) (showDetail, error) {
	return parseShowAt(output, time.Now())
}

// parseShowAt is parseShow with an injectable clock for tests.
//
// rad reports Opened as a relative phrase ("2 days ago", "3 weeks ago");
// it is resolved against now with natural-language date parsing rather
// than dropped, so mirrored items keep real provenance timestamps.
func parseShowAt(output string, now time.Time) (showDetail, error) {
	detail := showDetail{Fields: make(map[string]string)}

	inBody := false
	var body []string

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if inBody {
				body = append(body, "")
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "╭"), strings.HasPrefix(line, "╰"):
			continue
		case strings.HasPrefix(line, "├"):
			// separator between header and description
			inBody = true
			continue
		}

		line = strings.Trim(line, "│") // │
		line = strings.TrimSpace(line)

		if inBody {
			body = append(body, line)
			continue
		}

		key, value, ok := strings.Cut(line, " ")
		if !ok || !showFieldNames[key] {
			continue
		}
		detail.Fields[key] = strings.TrimSpace(value)
	}

	if len(detail.Fields) == 0 {
		return detail, fmt.Errorf("%w: no header fields in show output", tracker.ErrParse)
	}

	detail.Body = strings.TrimSpace(strings.Join(body, "\n"))

	if opened := detail.Fields["Opened"]; opened != "" {
		if result, err := when.EN.Parse(opened, now); err == nil && result != nil {
			detail.OpenedAt = result.Time
		}
	}

	return detail, nil
}
