package testlogging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kopia/streamvault/logging"
)

// PrintfFunc has the signature of testing.T.Logf.
type PrintfFunc func(msg string, args ...interface{})

// Printf returns a logger that prints every entry through printf, prefixed with prefix.
func Printf(printf PrintfFunc, prefix string) logging.Logger {
	return PrintfLevel(printf, prefix, LevelDebug)
}

// PrintfLevel is like Printf but drops entries below level.
// Entries carry no timestamp or level, only the message and its fields.
func PrintfLevel(printf PrintfFunc, prefix string, level Level) logging.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	})

	return zap.New(zapcore.NewCore(enc, lineSink{printf, prefix}, level)).Sugar()
}

// PrintfFactory returns a LoggerFactory that prints entries of each module through printf.
func PrintfFactory(printf PrintfFunc) logging.LoggerFactory {
	return func(module string) logging.Logger {
		return Printf(printf, modulePrefix(module))
	}
}

func modulePrefix(module string) string {
	return "[" + module + "] "
}

// lineSink makes one printf call per line, so stack traces stay prefixed.
type lineSink struct {
	printf PrintfFunc
	prefix string
}

func (s lineSink) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		s.printf("%s%s", s.prefix, line)
	}

	return len(p), nil
}

func (lineSink) Sync() error {
	return nil
}
