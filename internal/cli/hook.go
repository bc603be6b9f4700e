package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	hookMarkerStart = "# >>> lens pre-commit hook >>>"
	hookMarkerEnd   = "# <<< lens pre-commit hook <<<"
)

var (
	hookFormat   string
	hookProvider string
	hookBlock    bool
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install lens as a git pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}

		section := generateHookScript(hookFormat, hookProvider, hookBlock)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fail(ExitRuntimeError, fmt.Errorf("reading hook file: %w", err))
			return nil
		}

		var content string
		if os.IsNotExist(err) || len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceLensSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fail(ExitRuntimeError, fmt.Errorf("creating hooks directory: %w", err))
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, fmt.Errorf("writing hook file: %w", err))
			return nil
		}

		fmt.Fprintf(os.Stdout, "Installed lens pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove lens pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(os.Stdout, "No pre-commit hook found.")
				return nil
			}
			fail(ExitRuntimeError, fmt.Errorf("reading hook file: %w", err))
			return nil
		}

		content := removeLensSection(string(existing))

		// If only shebang (and whitespace) remains, delete the file entirely
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fail(ExitRuntimeError, fmt.Errorf("removing hook file: %w", err))
				return nil
			}
			fmt.Fprintf(os.Stdout, "Removed lens pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, fmt.Errorf("writing hook file: %w", err))
			return nil
		}

		fmt.Fprintf(os.Stdout, "Removed lens section from %s\n", hookPath)
		return nil
	},
}

func getHookPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-path", "hooks").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-path hooks failed)")
	}
	return filepath.Join(strings.TrimSpace(string(out)), "pre-commit"), nil
}

// generateHookScript returns the marked hook section. With block set, a
// critical issue stops the commit; review errors never do.
func generateHookScript(format, provider string, block bool) string {
	args := "review staged --format " + format
	if provider != "" {
		args += " --provider " + provider
	}
	if block {
		args += " --fail-on-critical"
	}

	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	b.WriteString("lens " + args + "\n")
	b.WriteString("LENS_EXIT=$?\n")
	b.WriteString("if [ $LENS_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"lens: critical issues found, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $LENS_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"lens: review failed (exit $LENS_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

// sectionBounds returns the byte range of the marked section, including the
// newline after the end marker.
func sectionBounds(script string) (int, int, bool) {
	start := strings.Index(script, hookMarkerStart)
	end := strings.Index(script, hookMarkerEnd)
	if start == -1 || end == -1 || end < start {
		return 0, 0, false
	}
	end += len(hookMarkerEnd)
	if end < len(script) && script[end] == '\n' {
		end++
	}
	return start, end, true
}

func replaceLensSection(existing, section string) string {
	start, end, ok := sectionBounds(existing)
	if !ok {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}
	return existing[:start] + section + existing[end:]
}

func removeLensSection(existing string) string {
	start, end, ok := sectionBounds(existing)
	if !ok {
		return existing
	}
	return existing[:start] + existing[end:]
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown)")
	hookInstallCmd.Flags().StringVar(&hookProvider, "provider", "", "Provider for hook reviews (default: configured provider)")
	hookInstallCmd.Flags().BoolVar(&hookBlock, "block", true, "Block the commit when critical issues are found")
}
