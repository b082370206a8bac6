package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yacobolo/classhash"
	"github.com/yacobolo/classhash/internal/logging"
)

var k = koanf.New(".")

// legacySaltEnv is honoured below CLASSHASH_SALT.
const legacySaltEnv = "OBFUSCATION_SALT"

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	// Resolve config file path from flag
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = ".classhash.yaml"
	}

	// Load config file and env vars
	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// 3. CLI flags (highest precedence, only flags that were explicitly set)
	flags := cmd.Flags()
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		return f.Name, posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// hyphenatedKeys are top-level keys whose words are joined by '-' rather
// than nested under '.'.
var hyphenatedKeys = map[string]string{
	"map.file":             "map-file",
	"seed.map":             "seed-map",
	"output.format":        "output-format",
	"max.issues.per.stage": "max-issues-per-stage",
	"max.same.issues":      "max-same-issues",
}

// envKey maps a CLASSHASH_* variable to its koanf key:
//
//	CLASSHASH_SALT         -> salt
//	CLASSHASH_HTML_INCLUDE -> html.include
//	CLASSHASH_SKIP_VERIFY  -> skip.verify
//	CLASSHASH_MAP_FILE     -> map-file
func envKey(s string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CLASSHASH_")), "_", ".")
	if h, ok := hyphenatedKeys[key]; ok {
		return h
	}
	return key
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	// 1. Config file (lowest precedence among providers)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// 2a. Legacy salt variable
	if err := k.Load(env.Provider(legacySaltEnv, ".", func(string) string {
		return "salt"
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	// 2b. Environment variables (CLASSHASH_* prefix)
	if err := k.Load(env.Provider("CLASSHASH_", ".", envKey), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// buildPipelineConfig constructs the library's Config struct from koanf state.
func buildPipelineConfig(log *zap.Logger) (classhash.Config, error) {
	config := classhash.Config{
		Salt:        getStringWithFallback("salt", "salt", ""),
		Hash:        getStringWithFallback("hash", "hash", "md5"),
		SourceDir:   getStringWithFallback("source", "source", "src"),
		OutputDir:   getStringWithFallback("output", "output", "dist"),
		MapFile:     getStringWithFallback("map-file", "map-file", ""),
		SeedMap:     getStringWithFallback("seed-map", "seed-map", ""),
		Mailbox:     getStringWithFallback("mailbox", "mailbox", classhash.DefaultMailbox(".")),
		ScanInclude: getStringsWithFallback("scan-include", "scan.include"),
		ScanExclude: getStringsWithFallback("scan-exclude", "scan.exclude"),
		CSSInclude:  getStringsWithFallback("css-include", "css.include"),
		HTMLInclude: getStringsWithFallback("html-include", "html.include"),
		Exclude:     getStringsWithFallback("exclude", "exclude"),
		VerifyFull:  getBoolWithFallback("verify-full", "verify.full", false),
		Logger:      log,
	}

	skip, err := buildSkip()
	if err != nil {
		return config, err
	}
	config.Skip = skip
	return config, nil
}

// buildSkip collects skipped stages from the skip list (--skip css,verify)
// and the per-stage keys (skip.verify: true).
func buildSkip() ([]classhash.Stage, error) {
	var skip []classhash.Stage
	for _, name := range k.Strings("skip") {
		s, err := classhash.ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("skip: %w", err)
		}
		skip = append(skip, s)
	}
	for _, s := range classhash.Skippable() {
		if k.Bool("skip." + s.String()) {
			skip = append(skip, s)
		}
	}
	return skip, nil
}

// buildOutputOptions reads report settings from koanf state.
func buildOutputOptions() classhash.OutputOptions {
	return classhash.OutputOptions{
		ForceColors:       getBoolWithFallback("color", "color", false),
		MaxIssuesPerStage: getIntWithFallback("max-issues-per-stage", "max-issues-per-stage", 0),
		MaxSameIssues:     getIntWithFallback("max-same-issues", "max-same-issues", 0),
	}
}

// newLogger builds the console logger. Logs go to stderr when stdout
// carries data.
func newLogger(toStderr bool) *zap.Logger {
	opts := logging.Options{
		Verbose: getBoolWithFallback("verbose", "verbose", false),
		Quiet:   getBoolWithFallback("quiet", "quiet", false),
		Color:   getBoolWithFallback("color", "color", false),
	}
	if toStderr {
		opts.Stdout = zapcore.Lock(os.Stderr)
		opts.Color = opts.Color || logging.ColorEnabled(os.Stderr)
	}
	return logging.New(opts)
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getStringsWithFallback checks the flag key first, then the config file key.
// Nil means the library default.
func getStringsWithFallback(flagKey, configKey string) []string {
	if v := k.Strings(flagKey); len(v) > 0 {
		return v
	}
	if v := k.Strings(configKey); len(v) > 0 {
		return v
	}
	return nil
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getIntWithFallback checks the flag key first, then the config file key, then returns the default.
func getIntWithFallback(flagKey, configKey string, defaultVal int) int {
	if k.Exists(flagKey) {
		return k.Int(flagKey)
	}
	if k.Exists(configKey) {
		return k.Int(configKey)
	}
	return defaultVal
}
