package framework

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ManifestFiles are the repository-root files Detect can use. Callers read
// whichever exist and pass their contents keyed by file name.
var ManifestFiles = []string{
	"package.json", "nest-cli.json", "go.mod", "requirements.txt",
	"pyproject.toml", "manage.py", "Gemfile", "pom.xml", "build.gradle",
	"build.gradle.kts",
}

var (
	goVersionRe     = regexp.MustCompile(`(?m)^go\s+(\d+\.\d+(\.\d+)?)`)
	djangoVersionRe = regexp.MustCompile(`(?i)django\s*[=~<>!]=\s*v?([\d.]+)`)
	railsVersionRe  = regexp.MustCompile(`gem\s+['"]rails['"]\s*,\s*['"][~>=<\s]*([\d.]+)['"]`)
	springVersionRe = regexp.MustCompile(`<artifactId>spring-boot-starter-parent</artifactId>\s*<version>([\d.]+)</version>|org\.springframework\.boot['"]?\)?\s+version\s+['"]([\d.]+)['"]`)
	semverRe        = regexp.MustCompile(`\d+(\.\d+){0,2}`)
)

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (p packageJSON) version(name string) (string, bool) {
	if v, ok := p.Dependencies[name]; ok {
		return semverRe.FindString(v), true
	}
	if v, ok := p.DevDependencies[name]; ok {
		return semverRe.FindString(v), true
	}
	return "", false
}

// DetectOption configures Detect.
type DetectOption func(*detectOptions)

type detectOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger that receives unreadable manifest diagnostics.
func WithLogger(l *zap.Logger) DetectOption {
	return func(o *detectOptions) { o.logger = l }
}

// Detect guesses the framework from changed paths and manifest contents
// keyed by file name. It never fails; with no signal it returns generic.
// A manifest that does not parse is logged at debug and treated as absent.
func Detect(paths []string, manifests map[string]string, opts ...DetectOption) Detected {
	o := detectOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	files := make(map[string]string, len(manifests))
	for name, content := range manifests {
		files[path.Base(name)] = content
	}
	has := func(name string) bool {
		if _, ok := files[name]; ok {
			return true
		}
		for _, p := range paths {
			if p == name || strings.HasSuffix(p, "/"+name) {
				return true
			}
		}
		return false
	}
	hasPrefix := func(prefix string) bool {
		for name := range files {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
		for _, p := range paths {
			if strings.HasPrefix(path.Base(p), prefix) {
				return true
			}
		}
		return false
	}

	var pkg packageJSON
	if raw, ok := files["package.json"]; ok {
		if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
			o.logger.Debug("ignoring unparsable manifest",
				zap.String("file", "package.json"), zap.Error(err))
			pkg = packageJSON{}
		}
	}

	if v, ok := pkg.version("@nestjs/core"); ok || has("nest-cli.json") {
		return Detected{Name: NestJS, Confidence: 0.9, Version: v}
	}
	if v, ok := pkg.version("next"); ok || hasPrefix("next.config.") {
		return Detected{Name: NextJS, Confidence: 0.9, Version: v}
	}
	if has("manage.py") || containsFold(files["requirements.txt"], "django") || containsFold(files["pyproject.toml"], "django") {
		v := firstGroup(djangoVersionRe, files["requirements.txt"]+"\n"+files["pyproject.toml"])
		return Detected{Name: Django, Confidence: 0.9, Version: v}
	}
	if gemfile, ok := files["Gemfile"]; (ok || has("Gemfile")) && (has("config/routes.rb") || strings.Contains(gemfile, "rails")) {
		return Detected{Name: Rails, Confidence: 0.9, Version: firstGroup(railsVersionRe, gemfile)}
	}
	if build := files["pom.xml"] + files["build.gradle"] + files["build.gradle.kts"]; has("pom.xml") || has("build.gradle") || has("build.gradle.kts") {
		if strings.Contains(build, "spring") {
			return Detected{Name: Spring, Confidence: 0.9, Version: firstGroup(springVersionRe, build)}
		}
		return Detected{Name: Spring, Confidence: 0.5}
	}
	if mod, ok := files["go.mod"]; ok || has("go.mod") {
		return Detected{Name: Go, Confidence: 0.9, Version: firstGroup(goVersionRe, mod)}
	}
	if v, ok := pkg.version("express"); ok {
		return Detected{Name: Express, Confidence: 0.8, Version: v}
	}
	if v, ok := pkg.version("react"); ok {
		return Detected{Name: React, Confidence: 0.8, Version: v}
	}

	switch dominantExt(paths) {
	case ".go":
		return Detected{Name: Go, Confidence: 0.5}
	case ".tsx", ".jsx":
		return Detected{Name: React, Confidence: 0.5}
	}
	return Detected{Name: Generic, Confidence: 0}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	for _, g := range m[min(1, len(m)):] {
		if g != "" {
			return g
		}
	}
	return ""
}

func dominantExt(paths []string) string {
	counts := map[string]int{}
	best, bestN := "", 0
	for _, p := range paths {
		ext := strings.ToLower(path.Ext(p))
		if ext == "" {
			continue
		}
		counts[ext]++
		if counts[ext] > bestN {
			best, bestN = ext, counts[ext]
		}
	}
	return best
}
