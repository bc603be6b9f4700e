package cli

import (
	"strings"
	"testing"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("text", "", true)

	if !strings.HasPrefix(script, hookMarkerStart+"\n") {
		t.Error("script should start with the start marker")
	}
	if !strings.HasSuffix(script, hookMarkerEnd+"\n") {
		t.Error("script should end with the end marker")
	}
	if !strings.Contains(script, "lens review staged --format text --fail-on-critical\n") {
		t.Errorf("script missing review command:\n%s", script)
	}
	if !strings.Contains(script, "LENS_EXIT=$?") {
		t.Error("script missing exit code capture")
	}
	if !strings.Contains(script, "exit 1") {
		t.Error("script missing exit 1 for critical issues")
	}
	if !strings.Contains(script, "allowing commit") {
		t.Error("script should let the commit through on review errors")
	}
}

func TestGenerateHookScript_Flags(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		provider string
		block    bool
		want     string
	}{
		{"non-blocking", "json", "", false, "lens review staged --format json\n"},
		{"provider", "text", "ollama", true, "lens review staged --format text --provider ollama --fail-on-critical\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := generateHookScript(tt.format, tt.provider, tt.block)
			if !strings.Contains(script, tt.want) {
				t.Errorf("script missing %q:\n%s", tt.want, script)
			}
		})
	}
}

func TestReplaceLensSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript("text", "", true)

	result := replaceLensSection(existing, section)

	if result != existing+section {
		t.Errorf("section should be appended, got:\n%s", result)
	}
}

func TestReplaceLensSection_ExistingSection(t *testing.T) {
	oldSection := generateHookScript("text", "", false)
	existing := "#!/bin/sh\nbefore\n" + oldSection + "after\n"
	newSection := generateHookScript("json", "", true)

	result := replaceLensSection(existing, newSection)

	want := "#!/bin/sh\nbefore\n" + newSection + "after\n"
	if result != want {
		t.Errorf("replaceLensSection =\n%s\nwant\n%s", result, want)
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("exactly one section expected")
	}
}

func TestReplaceLensSection_NoTrailingNewline(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook"
	section := generateHookScript("text", "", true)

	result := replaceLensSection(existing, section)

	if result != existing+"\n"+section {
		t.Errorf("section should follow a newline, got:\n%s", result)
	}
}

func TestRemoveLensSection(t *testing.T) {
	section := generateHookScript("text", "", true)
	existing := "#!/bin/sh\nbefore\n" + section + "after\n"

	result := removeLensSection(existing)

	if result != "#!/bin/sh\nbefore\nafter\n" {
		t.Errorf("removeLensSection = %q", result)
	}
}

func TestRemoveLensSection_NoSection(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook\n"
	if result := removeLensSection(existing); result != existing {
		t.Error("content without a lens section should be unchanged")
	}
}

func TestSectionBounds_EndBeforeStart(t *testing.T) {
	script := hookMarkerEnd + "\n" + hookMarkerStart + "\n"
	if _, _, ok := sectionBounds(script); ok {
		t.Error("markers out of order should not form a section")
	}
}
