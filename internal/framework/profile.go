package framework

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/priority"
)

// Name identifies a framework.
type Name string

const (
	Generic Name = "generic"
	Go      Name = "go"
	React   Name = "react"
	NextJS  Name = "nextjs"
	Express Name = "express"
	NestJS  Name = "nestjs"
	Django  Name = "django"
	Rails   Name = "rails"
	Spring  Name = "spring"
)

// Names lists every known framework.
var Names = []Name{Generic, Go, React, NextJS, Express, NestJS, Django, Rails, Spring}

// ParseName validates a framework name. The empty string is generic.
func ParseName(s string) (Name, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Generic, nil
	}
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown framework %q", s)
}

// Detected is the outcome of framework detection.
type Detected struct {
	Name       Name    `json:"name"`
	Confidence float64 `json:"confidence"`
	Version    string  `json:"version,omitempty"`
}

// Profile is the framework-specific data injected into a review.
type Profile struct {
	Name                  Name
	Instructions          string
	FalsePositivePatterns []falsepositive.Pattern
	PriorityRules         []priority.Rule
	CriticalPathPatterns  []string
}

const genericInstructions = `Review the change as general application code.
- Look for incorrect logic, unhandled errors and missing input validation.
- Flag injection, path traversal and secrets committed to source.
- Note algorithmic or I/O work that grows with input size on hot paths.`

// Lookup returns the profile for name. Unknown names get the generic profile.
func Lookup(name Name) Profile {
	if build, ok := profiles[name]; ok {
		return build()
	}
	return genericProfile()
}

var profiles = map[Name]func() Profile{
	Generic: genericProfile,
	Go:      goProfile,
	React:   reactProfile,
	NextJS:  nextProfile,
	Express: expressProfile,
	NestJS:  nestProfile,
	Django:  djangoProfile,
	Rails:   railsProfile,
	Spring:  springProfile,
}

func genericProfile() Profile {
	return Profile{Name: Generic, Instructions: genericInstructions}
}

func goProfile() Profile {
	return Profile{
		Name: Go,
		Instructions: `Review the change as Go code.
- Check that errors are handled or returned with context, never silently dropped.
- Look for goroutine leaks, unsynchronized map access and missing context cancellation.
- Flag deferred Close calls inside loops and resources not closed on error paths.
- Check nil map writes and nil pointer dereferences after failed lookups.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:          "go-error-wrapping-style",
				Category:    "style",
				Severity:    "low",
				Explanation: "Choosing between errors.New and fmt.Errorf is a style preference when no wrapping is needed.",
				Indicators:  []string{"use errors.new instead", "use fmt.errorf instead"},
			},
			{
				ID:             "go-ignored-close-in-test",
				Category:       "testing",
				Severity:       "low",
				Explanation:    "Ignoring Close errors in tests is acceptable.",
				ContextMarkers: []string{"func Test", "t.Cleanup"},
				Indicators:     []string{"error from close is ignored", "unchecked close"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(^|/)cmd/[^/]+/main\.go$`), Tier: priority.TierHigh, Reason: "Go program entry point"},
			{Pattern: regexp.MustCompile(`(^|/)go\.mod$`), Tier: priority.TierNormal, Reason: "Go module definition"},
		},
		CriticalPathPatterns: []string{"**/middleware/**", "internal/auth/**"},
	}
}

func reactProfile() Profile {
	return Profile{
		Name: React,
		Instructions: `Review the change as React code.
- Check hook rules: hooks at the top level, complete dependency arrays, cleanup in effects.
- Flag dangerouslySetInnerHTML with untrusted data and unsanitized URLs in href or src.
- Look for state updates on unmounted components and stale closures in callbacks.
- Note re-renders caused by unstable props in large lists.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:          "react-inline-handler",
				Category:    "performance-micro",
				Severity:    "low",
				Explanation: "Inline arrow handlers are fine unless profiling shows a problem.",
				Content:     regexp.MustCompile(`on[A-Z][a-zA-Z]+=\{\(`),
				Indicators:  []string{"inline arrow function", "inline function in jsx", "new function on every render"},
			},
			{
				ID:          "react-missing-proptypes",
				Category:    "type-safety",
				Severity:    "low",
				Explanation: "PropTypes are redundant in TypeScript components.",
				Indicators:  []string{"missing proptypes", "add proptypes"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(?i)(^|/)(hooks?|context)/|(^|/)use[A-Z][A-Za-z]*\.(ts|tsx|js|jsx)$`), Tier: priority.TierHigh, Reason: "React hook or context"},
			{Pattern: regexp.MustCompile(`(?i)\.(css|scss|less)$|\.stories\.(tsx|jsx|ts|js)$`), Tier: priority.TierLow, Reason: "styles or stories"},
		},
	}
}

func nextProfile() Profile {
	return Profile{
		Name: NextJS,
		Instructions: `Review the change as Next.js code.
- Route handlers and server actions are HTTP boundaries: check authentication, authorization and input validation.
- Flag secrets or server-only modules imported into client components.
- Check data fetching caching and revalidation settings against the data's freshness needs.
- Look for hydration mismatches from non-deterministic rendering.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:          "nextjs-use-client",
				Category:    "framework",
				Severity:    "low",
				Explanation: "The \"use client\" directive is required for interactive components.",
				Content:     regexp.MustCompile(`['"]use client['"]`),
				Indicators:  []string{"unnecessary \"use client\"", "remove use client"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(^|/)app/(.+/)?(route|actions?)\.(ts|js)$|(^|/)pages/api/`), Tier: priority.TierCritical, Reason: "Next.js route handler"},
			{Pattern: regexp.MustCompile(`(^|/)middleware\.(ts|js)$`), Tier: priority.TierCritical, Reason: "Next.js middleware"},
			{Pattern: regexp.MustCompile(`(^|/)next\.config\.(js|mjs|ts)$`), Tier: priority.TierNormal, Reason: "Next.js configuration"},
		},
		CriticalPathPatterns: []string{"app/api/**", "pages/api/**", "middleware.ts", "middleware.js"},
	}
}

func expressProfile() Profile {
	return Profile{
		Name: Express,
		Instructions: `Review the change as Express code.
- Check that async route handlers forward errors to next and never leave requests hanging.
- Flag request data reaching queries, shell commands or file paths without validation.
- Check middleware order for authentication, rate limiting and body size limits.
- Flag stack traces or internal errors returned to clients.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:          "express-next-unused",
				Category:    "style",
				Severity:    "low",
				Explanation: "Error-handling middleware must declare four parameters even when next is unused.",
				Content:     regexp.MustCompile(`\(\s*err\s*,\s*req\s*,\s*res\s*,\s*next\s*\)`),
				Indicators:  []string{"unused parameter next", "next is never used"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(?i)(^|/)routes?/|(^|/)routers?/`), Tier: priority.TierCritical, Reason: "Express route"},
			{Pattern: regexp.MustCompile(`(?i)(^|/)(app|server)\.(js|ts)$`), Tier: priority.TierHigh, Reason: "Express application setup"},
		},
		CriticalPathPatterns: []string{"routes/**", "src/routes/**"},
	}
}

func nestProfile() Profile {
	return Profile{
		Name: NestJS,
		Instructions: `Review the change as NestJS code.
- Check guards, pipes and interceptors on every controller route that needs them.
- Verify DTOs carry validation decorators and that ValidationPipe is applied.
- Look for providers with the wrong scope and circular module imports.
- Flag raw queries built from request input.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:             "nestjs-empty-constructor",
				Category:       "framework",
				Severity:       "low",
				Explanation:    "Constructors that only declare injected dependencies are how NestJS wires providers.",
				ContextMarkers: []string{"@Injectable(", "@Controller("},
				Indicators:     []string{"empty constructor", "constructor only assigns"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`\.(guard|interceptor|strategy)\.ts$`), Tier: priority.TierCritical, Reason: "NestJS request pipeline"},
			{Pattern: regexp.MustCompile(`\.(dto|entity)\.ts$`), Tier: priority.TierHigh, Reason: "NestJS DTO or entity"},
			{Pattern: regexp.MustCompile(`\.module\.ts$`), Tier: priority.TierNormal, Reason: "NestJS module"},
		},
	}
}

func djangoProfile() Profile {
	return Profile{
		Name: Django,
		Instructions: `Review the change as Django code.
- Check views for permission checks and CSRF handling.
- Flag raw SQL, extra() and RawSQL built from request data.
- Look for N+1 queries that need select_related or prefetch_related.
- Check migrations for data loss and locking on large tables.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:             "django-settings-debug",
				Category:       "configuration",
				Severity:       "medium",
				Explanation:    "DEBUG = True in local or test settings modules is expected.",
				ContextMarkers: []string{"settings.local", "settings/dev", "settings/test"},
				Indicators:     []string{"debug is enabled", "debug = true"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(^|/)(views|serializers|permissions)\.py$`), Tier: priority.TierCritical, Reason: "Django request handling"},
			{Pattern: regexp.MustCompile(`(^|/)migrations/\d+.*\.py$`), Tier: priority.TierHigh, Reason: "Django migration"},
			{Pattern: regexp.MustCompile(`(^|/)(models|forms)\.py$`), Tier: priority.TierHigh, Reason: "Django model or form"},
		},
		CriticalPathPatterns: []string{"**/views.py", "**/permissions.py"},
	}
}

func railsProfile() Profile {
	return Profile{
		Name: Rails,
		Instructions: `Review the change as Rails code.
- Check strong parameters and authorization in every controller action.
- Flag string interpolation in where clauses and find_by_sql.
- Look for N+1 queries that need includes.
- Check migrations for irreversible changes and missing indexes.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:          "rails-magic-methods",
				Category:    "framework",
				Severity:    "low",
				Explanation: "Dynamic finders and callbacks are idiomatic Rails.",
				Indicators:  []string{"method is not defined", "undefined method find_by"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(^|/)app/controllers/`), Tier: priority.TierCritical, Reason: "Rails controller"},
			{Pattern: regexp.MustCompile(`(^|/)db/migrate/`), Tier: priority.TierHigh, Reason: "Rails migration"},
			{Pattern: regexp.MustCompile(`(^|/)config/routes\.rb$`), Tier: priority.TierHigh, Reason: "Rails routes"},
		},
		CriticalPathPatterns: []string{"app/controllers/**", "config/routes.rb"},
	}
}

func springProfile() Profile {
	return Profile{
		Name: Spring,
		Instructions: `Review the change as Spring code.
- Check security configuration and method-level authorization annotations.
- Flag JPQL or native queries concatenated from request data.
- Check @Transactional boundaries, propagation and self-invocation.
- Look for lazy loading outside a session and unbounded findAll calls.`,
		FalsePositivePatterns: []falsepositive.Pattern{
			{
				ID:             "spring-field-injection-test",
				Category:       "testing",
				Severity:       "low",
				Explanation:    "Field injection with @Autowired is common in test classes.",
				ContextMarkers: []string{"@SpringBootTest", "@WebMvcTest", "@Test"},
				Indicators:     []string{"field injection", "use constructor injection"},
			},
		},
		PriorityRules: []priority.Rule{
			{Pattern: regexp.MustCompile(`(?i)(Controller|SecurityConfig|Filter)\.(java|kt)$`), Tier: priority.TierCritical, Reason: "Spring HTTP or security boundary"},
			{Pattern: regexp.MustCompile(`(?i)(Service|Repository)\.(java|kt)$`), Tier: priority.TierHigh, Reason: "Spring service or repository"},
			{Pattern: regexp.MustCompile(`(^|/)application(-[a-z]+)?\.(ya?ml|properties)$`), Tier: priority.TierNormal, Reason: "Spring configuration"},
		},
		CriticalPathPatterns: []string{"**/security/**", "**/SecurityConfig.*"},
	}
}
