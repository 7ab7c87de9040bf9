// Package logging builds the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options 控制日志级别与输出格式。
type Options struct {
	Level   string
	Format  string // console | json
	NoColor bool
	Out     io.Writer
}

// New returns a timestamped logger. Unknown levels are an error so typos surface at
// startup instead of silently logging at info.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.NoColor}
	case "json":
		writer = out
	default:
		return zerolog.Nop(), fmt.Errorf("invalid LOG_FORMAT value %q: want console or json", opts.Format)
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}
