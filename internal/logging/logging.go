// Package logging builds the console logger shared by all commands.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Options selects what the console logger prints.
type Options struct {
	Verbose bool // Include debug messages
	Quiet   bool // Errors only
	Color   bool // Force coloured levels

	// Destinations, os.Stdout and os.Stderr when nil.
	Stdout zapcore.WriteSyncer
	Stderr zapcore.WriteSyncer
}

// New returns a console logger writing info and warnings to stdout and
// errors to stderr.
func New(opts Options) *zap.Logger {
	stdout, stdoutColor := opts.Stdout, opts.Color
	if stdout == nil {
		stdout = zapcore.Lock(os.Stdout)
		stdoutColor = stdoutColor || ColorEnabled(os.Stdout)
	}
	stderr, stderrColor := opts.Stderr, opts.Color
	if stderr == nil {
		stderr = zapcore.Lock(os.Stderr)
		stderrColor = stderrColor || ColorEnabled(os.Stderr)
	}

	low := zapcore.InfoLevel
	switch {
	case opts.Quiet:
		low = zapcore.ErrorLevel
	case opts.Verbose:
		low = zapcore.DebugLevel
	}

	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return low <= lvl && lvl < zapcore.ErrorLevel
	})
	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(newEncoder(stdoutColor), stdout, lowPriority),
		zapcore.NewCore(newEncoder(stderrColor), stderr, highPriority),
	)
	return zap.New(core)
}

func newEncoder(color bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// ColorEnabled reports whether stream is a terminal.
func ColorEnabled(stream *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(stream.Fd()))
}
