package codec

import (
	"time"

	"github.com/itchyny/timefmt-go"

	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// TimeRFC3339 converts time.Time to and from canonical RFC3339 text. Integer
// literals are read as Unix milliseconds.
func TimeRFC3339() typeinfo.Converter {
	return Text(
		func(t time.Time) (string, error) { return formatRFC3339Canonical(t), nil },
		parseRFC3339,
		unixMillis,
	)
}

// TimeStrftime converts time.Time using a strftime layout such as
// "%Y-%m-%d %H:%M:%S".
func TimeStrftime(layout string) typeinfo.Converter {
	return Text(
		func(t time.Time) (string, error) { return timefmt.Format(t, layout), nil },
		func(s string) (time.Time, error) { return timefmt.Parse(s, layout) },
		unixMillis,
	)
}

// Duration converts time.Duration to Go duration text ("1h30m0s"). Integer
// literals are read as nanoseconds.
func Duration() typeinfo.Converter {
	return Text(
		func(d time.Duration) (string, error) { return d.String(), nil },
		time.ParseDuration,
		func(n wire.Number) (time.Duration, error) {
			v, err := n.Int64()
			return time.Duration(v), err
		},
	)
}

func unixMillis(n wire.Number) (time.Time, error) {
	ms, err := n.Int64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
