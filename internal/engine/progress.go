package engine

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// readProgress consumes ffmpeg "-progress" key=value output and reports the
// muxed duration each time it advances.
func readProgress(r io.Reader, report func(time.Duration)) {
	scanner := bufio.NewScanner(r)
	var last time.Duration = -1
	for scanner.Scan() {
		elapsed, ok := parseProgressLine(scanner.Text())
		if !ok || elapsed <= last {
			continue
		}
		last = elapsed
		if report != nil {
			report(elapsed)
		}
	}
	// Drain whatever is left so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func parseProgressLine(line string) (time.Duration, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys are microseconds; out_time_ms is misnamed upstream.
		micros, err := strconv.ParseInt(value, 10, 64)
		if err != nil || micros < 0 {
			return 0, false
		}
		return time.Duration(micros) * time.Microsecond, true
	case "out_time":
		return parseClock(value)
	default:
		return 0, false
	}
}

// parseClock parses HH:MM:SS.micro timestamps.
func parseClock(value string) (time.Duration, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second))
	return total, true
}
