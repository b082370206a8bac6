package classhash

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/yacobolo/classhash/internal/registry"
	"github.com/yacobolo/classhash/internal/report"
	"github.com/yacobolo/classhash/internal/rewrite"
	"github.com/yacobolo/classhash/internal/scanner"
	"github.com/yacobolo/classhash/internal/verify"
	"github.com/yacobolo/classhash/internal/walker"
)

var (
	// DefaultCSSInclude selects the stylesheets rewritten in the output tree.
	DefaultCSSInclude = []string{"**/*.css"}
	// DefaultHTMLInclude selects the documents rewritten in the output tree.
	DefaultHTMLInclude = []string{"**/*.{html,htm}"}
)

// Pipeline owns one class registry and runs the stages over it.
//
// A single process calling Run needs nothing else. When the build tool runs
// stages in separate processes, each process creates its own Pipeline with
// the same Config and calls the matching hook (Scan, TransformCSS or
// TransformCSSFiles, then TransformHTML); producer hooks append their
// registry growth to the mailbox and TransformHTML consumes it.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	config   Config
	reg      *registry.Registry
	scanner  *scanner.Scanner
	verifier *verify.Verifier
	css      walker.Matcher
	html     walker.Matcher
	cssRW    *rewrite.SelectorRewriter
	htmlRW   *rewrite.MarkupRewriter
	mailbox  *registry.Mailbox
	sent     map[string]bool // Entries already appended to the mailbox
	stage    Stage
	result   Result
	log      *zap.Logger
}

// New prepares a pipeline: it creates the registry, loads the seed map and
// validates every glob. Errors are configuration errors; a seed map that
// cannot be read is only an issue.
func New(config Config) (*Pipeline, error) {
	config = config.withDefaults()
	log := config.Logger

	reg, err := registry.New(registry.Config{Salt: config.Salt, Hash: config.Hash, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	scan, err := scanner.New(reg, scanner.Config{Include: config.ScanInclude, Exclude: config.ScanExclude, Logger: log})
	if err != nil {
		return nil, err
	}
	verifier, err := verify.New(verify.Config{HTML: config.HTMLInclude, CSS: config.CSSInclude, Exclude: config.Exclude, Full: config.VerifyFull, Logger: log})
	if err != nil {
		return nil, err
	}
	css, err := walker.NewMatcher(config.CSSInclude, config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("css: %w", err)
	}
	html, err := walker.NewMatcher(config.HTMLInclude, config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}

	p := &Pipeline{
		config:   config,
		reg:      reg,
		scanner:  scan,
		verifier: verifier,
		css:      css,
		html:     html,
		cssRW:    rewrite.NewSelectorRewriter(reg, log),
		htmlRW:   rewrite.NewMarkupRewriter(reg, log),
		sent:     make(map[string]bool),
		stage:    StageInit,
		log:      log.Named("pipeline"),
	}
	if config.Mailbox != "" {
		p.mailbox = registry.NewMailbox(config.Mailbox, reg.Fingerprint(), log)
	}

	if config.SeedMap != "" {
		res, err := reg.Load(config.SeedMap)
		switch {
		case err != nil:
			p.issue(newIssue(StageInit, SeverityWarning, config.SeedMap, report.IssueSeedMap, err))
		case res.Stale > 0:
			p.issue(newIssue(StageInit, SeverityInfo, config.SeedMap, report.IssueStaleEntries, res.Stale))
		}
	}
	return p, nil
}

// Registry returns the registry shared by all stages.
func (p *Pipeline) Registry() *registry.Registry {
	return p.reg
}

// Stage returns the stage the pipeline last entered.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Run executes every stage that is enabled and has its input configured,
// in order, over the in-memory registry. The mailbox is neither read nor
// written. The returned error is set only when a stage root could not be
// read; per-file problems are issues in the result.
func (p *Pipeline) Run() (*Result, error) {
	steps := []struct {
		stage Stage
		ready bool
		run   func() (StageResult, error)
	}{
		{StageScan, p.config.SourceDir != "", p.scan},
		{StageCSS, p.config.OutputDir != "", p.transformCSSFiles},
		{StageHTML, p.config.OutputDir != "", p.transformHTML},
		{StagePersist, p.config.MapFile != "", p.persist},
		{StageVerify, p.config.OutputDir != "", p.verify},
	}

	for _, step := range steps {
		if p.config.Skips(step.stage) || !step.ready {
			p.log.Debug("Skipping stage", zap.Stringer("stage", step.stage))
			p.result.record(StageResult{Stage: step.stage, Skipped: true})
			continue
		}

		p.enter(step.stage)
		res, err := step.run()
		p.result.record(res)
		if err != nil {
			return p.Finish(), err
		}
	}
	return p.Finish(), nil
}

// Scan is the pre-build hook: it seeds the registry from the source tree
// and appends the growth to the mailbox.
func (p *Pipeline) Scan() (StageResult, error) {
	p.enter(StageScan)
	res, err := p.scan()
	p.result.record(res)
	p.publish(StageScan)
	return res, err
}

// TransformCSS is the stylesheet plugin hook: it rewrites one stylesheet
// and appends the registry growth to the mailbox.
func (p *Pipeline) TransformCSS(css string) string {
	p.enter(StageCSS)
	before := p.reg.Len()
	out, stats := p.cssRW.Rewrite(css)
	p.result.record(StageResult{
		Stage:      StageCSS,
		Tokens:     stats.Classes,
		Rewritten:  stats.Rewritten,
		NewEntries: p.reg.Len() - before,
	})
	p.publish(StageCSS)
	return out
}

// TransformCSSFile rewrites one stylesheet in place and reports whether its
// content changed.
func (p *Pipeline) TransformCSSFile(path string) (bool, error) {
	// #nosec G304 - path is named by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)
	out := p.TransformCSS(text)
	p.result.record(StageResult{Stage: StageCSS, FilesVisited: 1})
	if out == text {
		return false, nil
	}
	if err := writeFile(path, out); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	p.result.record(StageResult{Stage: StageCSS, FilesRewritten: 1})
	return true, nil
}

// TransformCSSFiles rewrites the stylesheets of the output tree in place
// and appends the registry growth to the mailbox.
func (p *Pipeline) TransformCSSFiles() (StageResult, error) {
	p.enter(StageCSS)
	res, err := p.transformCSSFiles()
	p.result.record(res)
	p.publish(StageCSS)
	return res, err
}

// TransformHTML is the post-build hook: it merges the mailbox into the
// registry, then rewrites the documents of the output tree in place.
func (p *Pipeline) TransformHTML() (StageResult, error) {
	p.enter(StageHTML)
	added := p.consume()
	res, err := p.transformHTML()
	res.NewEntries += added
	p.result.record(res)
	return res, err
}

// Persist writes the obfuscation map.
func (p *Pipeline) Persist() (StageResult, error) {
	p.enter(StagePersist)
	res, err := p.persist()
	p.result.record(res)
	return res, err
}

// Verify samples the output tree for markup and stylesheet agreement.
func (p *Pipeline) Verify() (StageResult, error) {
	p.enter(StageVerify)
	res, err := p.verify()
	p.result.record(res)
	return res, err
}

// Finish closes the run and returns the result. Collisions found by any
// stage become warnings.
func (p *Pipeline) Finish() *Result {
	p.enter(StageDone)
	p.result.Entries = p.reg.Len()

	collisions := p.reg.Collisions()
	for _, c := range collisions[len(p.result.Collisions):] {
		p.issue(newIssue(StageDone, SeverityWarning, "", report.IssueCollision, c.First, c.Second, c.Value))
	}
	p.result.Collisions = collisions
	return &p.result
}

func (p *Pipeline) enter(s Stage) {
	if s != p.stage {
		p.log.Debug("Entering stage", zap.Stringer("from", p.stage), zap.Stringer("to", s))
	}
	p.stage = s
}

func (p *Pipeline) issue(i Issue) {
	p.result.Issues = append(p.result.Issues, i)
}

func (p *Pipeline) scan() (StageResult, error) {
	res := StageResult{Stage: StageScan}
	sr, err := p.scanner.Scan(p.config.SourceDir)
	res.FilesVisited = sr.FilesScanned
	res.FilesFailed = sr.FilesFailed
	res.Tokens = sr.Tokens
	res.NewEntries = sr.NewTokens
	return res, err
}

func (p *Pipeline) transformCSSFiles() (StageResult, error) {
	res := StageResult{Stage: StageCSS}
	before := p.reg.Len()
	err := p.rewriteTree(p.css, &res, func(_, text string) string {
		out, stats := p.cssRW.Rewrite(text)
		res.Tokens += stats.Classes
		res.Rewritten += stats.Rewritten
		return out
	})
	res.NewEntries = p.reg.Len() - before
	return res, err
}

func (p *Pipeline) transformHTML() (StageResult, error) {
	res := StageResult{Stage: StageHTML}
	before := p.reg.Len()
	err := p.rewriteTree(p.html, &res, func(file, text string) string {
		out, stats := p.htmlRW.Rewrite(text)
		res.Tokens += stats.Tokens
		res.Rewritten += stats.Rewritten
		for _, bad := range stats.Malformed {
			p.issue(Issue{
				Stage:       StageHTML.String(),
				Severity:    SeverityWarning,
				Text:        report.IssueMalformedClass,
				SourceLines: []string{bad.Text},
				Pos:         IssuePos{Filename: file, Line: bad.Line, Column: bad.Column},
			})
		}
		return out
	})
	res.NewEntries = p.reg.Len() - before
	return res, err
}

// rewriteTree applies fn to every file of the output tree accepted by match
// and writes back the files whose content changed.
func (p *Pipeline) rewriteTree(match walker.Matcher, res *StageResult, fn func(file, text string) string) error {
	files, err := walker.New(match, p.log).Walk(p.config.OutputDir)
	if err != nil {
		return fmt.Errorf("%s: %w", res.Stage, err)
	}

	for file := range files {
		res.FilesVisited++

		// #nosec G304 - file comes from walking the configured output tree
		data, err := os.ReadFile(file)
		if err != nil {
			res.FilesFailed++
			p.log.Warn("Skipping unreadable file", zap.String("file", file), zap.Error(err))
			p.issue(newIssue(res.Stage, SeverityWarning, file, report.IssueUnreadable, err))
			continue
		}

		text := string(data)
		out := fn(file, text)
		if out == text {
			continue
		}

		if err := writeFile(file, out); err != nil {
			res.FilesFailed++
			p.log.Warn("Unable to write file", zap.String("file", file), zap.Error(err))
			p.issue(newIssue(res.Stage, SeverityWarning, file, report.IssueUnwritable, err))
			continue
		}
		res.FilesRewritten++
		p.log.Debug("Rewrote file", zap.String("file", file))
	}
	return nil
}

// writeFile replaces the content of an existing file, keeping its mode.
func writeFile(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), info.Mode().Perm())
}

func (p *Pipeline) persist() (StageResult, error) {
	res := StageResult{Stage: StagePersist}
	if err := p.reg.Persist(p.config.MapFile); err != nil {
		res.FilesFailed++
		p.issue(newIssue(StagePersist, SeverityWarning, p.config.MapFile, report.IssuePersist, err))
		return res, nil
	}
	res.FilesRewritten++
	res.Tokens = p.reg.Len()
	p.result.MapFile = p.config.MapFile
	return res, nil
}

func (p *Pipeline) verify() (StageResult, error) {
	res := StageResult{Stage: StageVerify}
	rep, err := p.verifier.Verify(p.config.OutputDir)
	if err != nil {
		return res, err
	}
	p.result.Verify = &rep

	res.Tokens = rep.Tokens
	res.Rewritten = rep.Matched
	res.FilesVisited = rep.HTMLFiles + rep.CSSFiles
	if !p.config.VerifyFull {
		for _, f := range []string{rep.HTMLFile, rep.CSSFile} {
			if f != "" {
				res.FilesVisited++
			}
		}
	}

	if !rep.OK() {
		p.issue(newIssue(StageVerify, SeverityWarning, rep.HTMLFile, "%s", rep.Warning))
	}
	for _, m := range rep.Missing {
		p.issue(newIssue(StageVerify, SeverityInfo, m.File, report.IssueNoSelector, len(m.Tokens), joinTokens(m.Tokens, 5)))
	}
	return res, nil
}

// publish appends the entries not yet sent to the mailbox.
func (p *Pipeline) publish(stage Stage) {
	if p.mailbox == nil {
		return
	}

	delta := make(map[string]string)
	for token, v := range p.reg.Snapshot() {
		if !p.sent[token] {
			delta[token] = v
		}
	}
	if len(delta) == 0 {
		return
	}

	if err := p.mailbox.Append(delta); err != nil {
		p.log.Warn("Unable to append to mailbox", zap.String("path", p.mailbox.Path()), zap.Error(err))
		p.issue(newIssue(stage, SeverityWarning, p.mailbox.Path(), report.IssueMailbox, err))
		return
	}
	for token := range delta {
		p.sent[token] = true
	}
}

// consume merges the mailbox into the registry and returns the number of
// entries added.
func (p *Pipeline) consume() int {
	if p.mailbox == nil {
		return 0
	}

	entries, err := p.mailbox.Consume()
	if err != nil {
		p.issue(newIssue(StageHTML, SeverityWarning, p.mailbox.Path(), report.IssueMailbox, err))
	}

	// Entries a different salt would not derive are dropped, as for seed maps.
	fresh := make(map[string]string, len(entries))
	for token, v := range entries {
		if v == p.reg.Derive(token) {
			fresh[token] = v
		}
	}
	added := p.reg.Merge(fresh)
	p.log.Info("Merged mailbox", zap.String("path", p.mailbox.Path()), zap.Int("entries", len(entries)), zap.Int("added", added))
	return added
}

func joinTokens(tokens []string, limit int) string {
	sorted := slices.Sorted(slices.Values(tokens))
	if len(sorted) <= limit {
		return strings.Join(sorted, ", ")
	}
	return strings.Join(sorted[:limit], ", ") + fmt.Sprintf(", and %d more", len(sorted)-limit)
}
