package classhash

import (
	"fmt"
	"strings"
)

// Stage is a step of the build pipeline. Stages run in declaration order.
type Stage int

// Pipeline stages
const (
	StageInit    Stage = iota // Registry created, seed map loaded
	StageScan                 // Template sources scanned
	StageCSS                  // Stylesheets rewritten
	StageHTML                 // Documents rewritten
	StagePersist              // Obfuscation map written
	StageVerify               // Output sampled
	StageDone
)

var stageNames = [...]string{
	StageInit:    "init",
	StageScan:    "scan",
	StageCSS:     "css",
	StageHTML:    "html",
	StagePersist: "persist",
	StageVerify:  "verify",
	StageDone:    "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Skippable lists the stages a configuration may skip.
func Skippable() []Stage {
	return []Stage{StageScan, StageCSS, StageHTML, StagePersist, StageVerify}
}

// ParseStage parses a stage name as printed by String. The long forms
// css_transform and html_transform are accepted too.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "css_transform", "css-transform":
		return StageCSS, nil
	case "html_transform", "html-transform":
		return StageHTML, nil
	}
	for s, n := range stageNames {
		if n == name {
			return Stage(s), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}
