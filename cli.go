// File: yaecs/cli.go
package yaecs

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override is one parsed command-line parameter override.
type Override struct {
	// Path is the dotted target, possibly carrying "*" wildcards.
	Path string
	// Value is the decoded literal.
	Value any
	// Bare marks a flag given with no literal, which decodes to true and
	// may only target boolean parameters.
	Bare bool
}

// ParseOverrides scans command-line tokens shaped "--name=value",
// "--name value" or bare "--name". The reserved token "--config" selects
// experiment source paths (comma- or bracket-list) and is returned
// separately, never as an override. Tokens that are not flags are
// skipped.
//
// Literals decode with YAML scalar/collection rules, so "0.01" is a
// float, "true" a bool, "[1, 2]" a list and "{a: 1}" a mapping. A
// literal that is not valid YAML stays a string.
func ParseOverrides(tokens []string) (overrides []Override, configPaths []string, err error) {
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		i++
		if !strings.HasPrefix(tok, "--") || len(tok) == 2 {
			continue
		}
		body := tok[2:]
		name, literal, hasLiteral := strings.Cut(body, "=")
		if !hasLiteral && i < len(tokens) && !strings.HasPrefix(tokens[i], "--") {
			literal = tokens[i]
			hasLiteral = true
			i++
		}

		if name == "config" {
			if !hasLiteral {
				return nil, nil, fmt.Errorf("--config requires at least one path")
			}
			configPaths = append(configPaths, splitConfigList(literal)...)
			continue
		}

		if err := validateOverridePath(name); err != nil {
			return nil, nil, err
		}
		if !hasLiteral {
			overrides = append(overrides, Override{Path: name, Value: true, Bare: true})
			continue
		}
		overrides = append(overrides, Override{Path: name, Value: decodeLiteral(literal)})
	}
	return overrides, configPaths, nil
}

// splitConfigList accepts "path", "p1,p2" and "[p1, p2]".
func splitConfigList(literal string) []string {
	literal = strings.TrimSpace(literal)
	literal = strings.TrimPrefix(literal, "[")
	literal = strings.TrimSuffix(literal, "]")
	var out []string
	for _, part := range strings.Split(literal, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateOverridePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty override name")
	}
	for _, seg := range strings.Split(path, ".") {
		if seg != "*" && !isValidKeySegment(seg) {
			return fmt.Errorf("invalid override name %q: bad segment %q", path, seg)
		}
	}
	return nil
}

// decodeLiteral applies the same scalar typing rules as file sources.
// No literal decodes to the absent kind: "null" and friends stay
// strings, so nil-valued parameters are unreachable from the command
// line.
func decodeLiteral(literal string) any {
	var v any
	if err := yaml.Unmarshal([]byte(literal), &v); err != nil {
		return literal
	}
	if v == nil {
		return literal
	}
	return normalize(v)
}

// applyOverrides merges parsed overrides into the tree as one pipeline
// pass: existing keys only, wildcards expanded with the mandatory match
// report, value kinds preserved. On success one inline descriptor
// covering every applied override is appended to the hierarchy.
func (c *Config) applyOverrides(overrides []Override) error {
	if len(overrides) == 0 {
		return nil
	}
	applied := make(map[string]any, len(overrides))
	for _, ovr := range overrides {
		var targets []string
		if hasWildcard(ovr.Path) {
			matched, err := c.Match(ovr.Path)
			if err != nil {
				return err
			}
			c.warnf("override %q matched %d parameter(s): %v", ovr.Path, len(matched), matched)
			targets = matched
		} else {
			if _, err := c.getPath(ovr.Path); err != nil {
				return fmt.Errorf("%w: override %q targets no known parameter", ErrUnknownParameter, ovr.Path)
			}
			targets = []string{ovr.Path}
		}
		for _, path := range targets {
			if err := c.applyOneOverride(path, ovr); err != nil {
				return err
			}
			applied[path] = ovr.Value
		}
	}
	c.root().hierarchy = append(c.root().hierarchy, SourceRef{Inline: applied})
	return nil
}

func (c *Config) applyOneOverride(path string, ovr Override) error {
	current, err := c.getPath(path)
	if err != nil {
		return err
	}
	// No literal ever decodes to the absent kind, so nil parameters
	// stay unreachable from the command line.
	value, want, got, ok := coerceKind(current, ovr.Value)
	if ovr.Bare && want != KindBool {
		return fmt.Errorf("%w: bare flag --%s targets %q which holds a %s, not a bool",
			ErrTypeMismatch, ovr.Path, path, want)
	}
	if !ok {
		return fmt.Errorf("%w: %q holds a %s, override sets a %s", ErrTypeMismatch, path, want, got)
	}
	return c.setPath(path, cloneValue(value, nil))
}
