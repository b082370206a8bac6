package classhash

import (
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/yacobolo/classhash/internal/registry"
	"github.com/yacobolo/classhash/internal/scanner"
)

// Config configures a Pipeline.
type Config struct {
	Salt string // Default registry.DefaultSalt
	Hash string // "md5" (default) or "sha256"

	SourceDir string // Template sources for the scan stage; empty skips it
	OutputDir string // Build output rewritten in place; empty skips css, html and verify

	// MapFile receives the obfuscation map. Defaults to
	// <OutputDir>/obfuscation-map.json; empty with no OutputDir skips persist.
	MapFile string
	SeedMap string // Map loaded at init, optional
	Mailbox string // Hand-off file between separate processes; empty disables it

	ScanInclude []string // Default scanner.DefaultInclude
	ScanExclude []string // Default scanner.DefaultExclude
	CSSInclude  []string // Default DefaultCSSInclude
	HTMLInclude []string // Default DefaultHTMLInclude
	Exclude     []string // Applied to the output tree

	Skip       []Stage
	VerifyFull bool // Check every document against every stylesheet

	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if len(c.ScanInclude) == 0 {
		c.ScanInclude = scanner.DefaultInclude
	}
	if c.ScanExclude == nil {
		c.ScanExclude = scanner.DefaultExclude
	}
	if len(c.CSSInclude) == 0 {
		c.CSSInclude = DefaultCSSInclude
	}
	if len(c.HTMLInclude) == 0 {
		c.HTMLInclude = DefaultHTMLInclude
	}
	if c.MapFile == "" {
		c.MapFile = mapFile(c.OutputDir)
	}
	return c
}

// Skips reports whether stage s is disabled.
func (c Config) Skips(s Stage) bool {
	return slices.Contains(c.Skip, s)
}

// DefaultMailbox returns the mailbox location in dir.
func DefaultMailbox(dir string) string {
	return filepath.Join(dir, registry.MailboxFileName)
}

// mapFile returns the default obfuscation map location for an output tree.
func mapFile(outputDir string) string {
	if outputDir == "" {
		return ""
	}
	return filepath.Join(outputDir, registry.MapFileName)
}
