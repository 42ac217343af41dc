package counter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Access log timestamp layouts, overridable from configuration. ReadLayout
// parses the bracketed field of a log line, WriteLayout formats timestamps
// for the HTML report. Threaded explicitly so there is no process-wide
// format state.
const (
	DefaultReadLayout  = "02/Jan/2006:15:04:05 -0700"
	DefaultWriteLayout = "Mon 02 Jan 15:04"
)

// Event is one accepted download extracted from a log line.
type Event struct {
	Filename  string
	Timestamp time.Time
}

var (
	// statusRe captures the first quoted field (the request line) and the
	// 3-digit status token that follows it.
	statusRe = regexp.MustCompile(`"(.+?)"(\s\d{3})`)
	// bracketRe matches the bracketed timestamp field.
	bracketRe = regexp.MustCompile(`\[.*\]`)
)

// ExtractEvent decides whether line records a successful download matching
// pattern. Lines that match the pattern but carry a non-200 status (or no
// recognizable status token) are discarded silently. A matching line whose
// bracketed timestamp is missing or does not conform to readLayout is a fatal
// input error and aborts the run.
func ExtractEvent(line string, pattern *regexp.Regexp, readLayout string) (Event, bool, error) {
	found := pattern.FindString(line)
	if found == "" {
		return Event{}, false, nil
	}

	// Basename reduction: the counting key is the last path segment of the
	// matched span, so distinct paths sharing a basename tally together.
	segments := strings.Split(found, "/")
	filename := segments[len(segments)-1]

	response := statusRe.FindString(line)
	if !strings.HasSuffix(response, "200") {
		return Event{}, false, nil
	}

	ts, err := extractTime(line, readLayout)
	if err != nil {
		return Event{}, false, err
	}
	return Event{Filename: filename, Timestamp: ts}, true, nil
}

// extractTime parses the bracketed timestamp field with readLayout and
// discards the UTC offset, keeping the wall-clock fields as written.
func extractTime(line string, readLayout string) (time.Time, error) {
	field := bracketRe.FindString(line)
	if field == "" {
		return time.Time{}, fmt.Errorf("no bracketed timestamp in log line %q", line)
	}
	raw := strings.Trim(field, "[]")
	ts, err := time.Parse(readLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing log timestamp %q: %w", raw, err)
	}
	return stripOffset(ts), nil
}

func stripOffset(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(),
		ts.Hour(), ts.Minute(), ts.Second(), 0, time.UTC)
}
