package cvexport

import (
	"fmt"
	"regexp"
	"strings"
)

// Override names one presentation change applied before printing.
type Override string

// Supported print overrides.
const (
	HideNavigation       Override = "hide-navigation"
	HideActions          Override = "hide-actions"
	HideOverlays         Override = "hide-overlays"
	StripShadows         Override = "strip-shadows"
	StripBorders         Override = "strip-borders"
	ForceWhiteBackground Override = "force-white-background"
	NormalizeMargins     Override = "normalize-margins"
)

// DefaultContainerPadding is the inner padding given to the container when
// margins are normalized.
const DefaultContainerPadding = "40px"

// canonicalOverrides fixes the emission order of CSS blocks.
var canonicalOverrides = []Override{
	HideNavigation,
	HideActions,
	HideOverlays,
	StripShadows,
	StripBorders,
	ForceWhiteBackground,
	NormalizeMargins,
}

var (
	cssLengthPattern   = regexp.MustCompile(`^(0|\d+(\.\d+)?(px|mm|cm|in|pt|em|rem|%))$`)
	selectorDisallowed = "{}<>;@,\\\n\r"
)

// PrintOverrides describes the stylesheet injected into the resume page
// so the captured PDF reads as a printed document rather than a web page.
type PrintOverrides struct {
	Container        string
	Rules            []Override
	ContainerPadding string
}

// DefaultPrintOverrides enables every override for the default container.
func DefaultPrintOverrides() PrintOverrides {
	rules := make([]Override, len(canonicalOverrides))
	copy(rules, canonicalOverrides)
	return PrintOverrides{
		Container:        DefaultContainerSelector,
		Rules:            rules,
		ContainerPadding: DefaultContainerPadding,
	}
}

// ParseOverrides converts names into overrides, rejecting unknown ones.
func ParseOverrides(names []string) ([]Override, error) {
	rules := make([]Override, 0, len(names))
	for _, n := range names {
		o := Override(strings.ToLower(strings.TrimSpace(n)))
		if !o.known() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOverride, n)
		}
		rules = append(rules, o)
	}
	return rules, nil
}

func (o Override) known() bool {
	for _, c := range canonicalOverrides {
		if o == c {
			return true
		}
	}
	return false
}

// Validate checks the container selector, rule names and padding value.
func (p PrintOverrides) Validate() error {
	if err := ValidateSelector(p.Container); err != nil {
		return err
	}
	for _, r := range p.Rules {
		if !r.known() {
			return fmt.Errorf("%w: %q", ErrInvalidOverride, string(r))
		}
	}
	if p.ContainerPadding != "" && !cssLengthPattern.MatchString(p.ContainerPadding) {
		return fmt.Errorf("%w: container padding %q is not a CSS length", ErrInvalidOverride, p.ContainerPadding)
	}
	return nil
}

// ValidateSelector rejects empty selectors, characters that could
// terminate a CSS rule, and selector lists: the container is prefixed to
// descendant rules, which would scope only the last list item.
func ValidateSelector(sel string) error {
	if strings.TrimSpace(sel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSelector)
	}
	if strings.ContainsAny(sel, selectorDisallowed) {
		return fmt.Errorf("%w: %q", ErrInvalidSelector, sel)
	}
	return nil
}

// Has reports whether rule r is enabled.
func (p PrintOverrides) Has(r Override) bool {
	for _, x := range p.Rules {
		if x == r {
			return true
		}
	}
	return false
}

// CSS renders the enabled overrides. Output is deterministic: blocks follow
// the canonical order whatever order Rules lists them in, and duplicates
// are emitted once. Call Validate first; CSS does not re-check input.
func (p PrintOverrides) CSS() string {
	var buf strings.Builder
	var container []string

	for _, r := range canonicalOverrides {
		if !p.Has(r) {
			continue
		}
		switch r {
		case HideNavigation:
			buf.WriteString(`
/* hide-navigation */
.fixed, [class*="fixed"], nav, header {
  display: none !important;
}
`)
			// The resume's own header lives inside the container.
			fmt.Fprintf(&buf, "%s header {\n  display: block !important;\n}\n", p.Container)
		case HideActions:
			buf.WriteString(`
/* hide-actions */
.download-actions, .share-actions, .action-bar, button {
  display: none !important;
}
`)
		case HideOverlays:
			buf.WriteString(`
/* hide-overlays */
[class*="z-50"], [class*="z-40"], [class*="z-10"] {
  display: none !important;
}
`)
		case StripShadows:
			container = append(container, "box-shadow: none !important;")
		case StripBorders:
			buf.WriteString(`
/* strip-borders */
[class*="border-b"], .border-b {
  border-bottom: none !important;
}
`)
			container = append(container, "border: none !important;")
		case ForceWhiteBackground:
			buf.WriteString(`
/* force-white-background */
html, body, .min-h-screen {
  background: white !important;
}
`)
			container = append(container, "background: white !important;")
		case NormalizeMargins:
			buf.WriteString(`
/* normalize-margins */
html, body, main {
  padding: 0 !important;
  margin: 0 !important;
}
main > div {
  padding: 0 !important;
}
`)
			padding := p.ContainerPadding
			if padding == "" {
				padding = DefaultContainerPadding
			}
			container = append(container,
				"margin: 0 auto !important;",
				"padding: "+padding+" !important;",
				"max-width: 100% !important;",
			)
		}
	}

	if len(container) > 0 {
		fmt.Fprintf(&buf, "\n/* container */\n%s {\n", p.Container)
		for _, decl := range container {
			buf.WriteString("  " + decl + "\n")
		}
		buf.WriteString("}\n")
	}

	return buf.String()
}
