package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantStdout []string
		wantStderr []string
		notStdout  []string
	}{
		{
			name:       "normal",
			wantStdout: []string{"INFO\tinfo message", "WARN\twarn message"},
			wantStderr: []string{"ERROR\terror message"},
			notStdout:  []string{"debug message", "error message"},
		},
		{
			name:       "verbose",
			opts:       Options{Verbose: true},
			wantStdout: []string{"DEBUG\tdebug message", "INFO\tinfo message"},
			wantStderr: []string{"error message"},
		},
		{
			name:       "quiet",
			opts:       Options{Quiet: true},
			wantStderr: []string{"error message"},
			notStdout:  []string{"info message", "warn message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			tt.opts.Stdout = zapcore.AddSync(&stdout)
			tt.opts.Stderr = zapcore.AddSync(&stderr)

			log := New(tt.opts)
			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")

			for _, want := range tt.wantStdout {
				assert.Contains(t, stdout.String(), want)
			}
			for _, want := range tt.wantStderr {
				assert.Contains(t, stderr.String(), want)
			}
			for _, not := range tt.notStdout {
				assert.NotContains(t, stdout.String(), not)
			}
		})
	}
}

func TestNew_NamedLoggers(t *testing.T) {
	var stdout bytes.Buffer
	log := New(Options{Stdout: zapcore.AddSync(&stdout), Stderr: zapcore.AddSync(&bytes.Buffer{})})

	log.Named("registry").Info("hello")
	assert.Contains(t, stdout.String(), "registry\thello")
}
