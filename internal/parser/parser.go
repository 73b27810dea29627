// Package parser extracts models and enums from Prisma-style schema text.
//
// Parsing is best-effort: blocks and lines that do not match the expected
// shape are skipped, and Parse never fails.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/schemafill/internal/models"
)

const (
	keywordModel = "model"
	keywordEnum  = "enum"
)

var (
	fieldRe = regexp.MustCompile(`^([A-Za-z_]\w*)\s+([A-Za-z_]\w*)(\[\])?(\?)?(?:\s+(.*))?$`)
	mapRe   = regexp.MustCompile(`^@@map\(\s*("(?:[^"\\]|\\.)*")\s*\)`)
	identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	intRe   = regexp.MustCompile(`^[+-]?\d+$`)
	floatRe = regexp.MustCompile(`^[+-]?(?:\d+\.\d*|\.\d+)(?:[eE][+-]?\d+)?$|^[+-]?\d+[eE][+-]?\d+$`)
)

// Options tune parsing behavior.
type Options struct {
	// StrictOptional only honors a "?" placed directly after the type
	// (after "[]" if present). By default a "?" anywhere on the field line
	// marks the field optional.
	StrictOptional bool
}

// Parse extracts all models and enums from text using default options.
func Parse(text string) *models.Schema {
	return ParseWith(text, Options{})
}

// ParseWith extracts all models and enums from text. Ordering follows
// first occurrence in the text.
func ParseWith(text string, opts Options) *models.Schema {
	var (
		ms []*models.Model
		es []*models.Enum
	)
	for _, b := range scanBlocks(text) {
		switch b.keyword {
		case keywordModel:
			ms = append(ms, parseModel(b.name, b.body, opts))
		case keywordEnum:
			es = append(es, parseEnum(b.name, b.body))
		}
	}
	return models.NewSchema(ms, es)
}

// parseModel turns a model body into a Model. Lines that are not field
// declarations are dropped.
func parseModel(name, body string, opts Options) *models.Model {
	m := &models.Model{Name: name}
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" || line == "{" || line == "}" {
			continue
		}
		if strings.HasPrefix(line, "@@") {
			if mm := mapRe.FindStringSubmatch(line); mm != nil && m.MapName == "" {
				m.MapName = unquote(mm[1])
			}
			continue
		}

		f, ok := parseField(line, opts)
		if !ok {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		m.Fields = append(m.Fields, f)
	}
	return m
}

// parseField parses `<name> <type>[[]][?] [attributes...]`.
func parseField(line string, opts Options) (models.Field, bool) {
	mm := fieldRe.FindStringSubmatch(line)
	if mm == nil {
		return models.Field{}, false
	}

	f := models.Field{
		Name:  mm[1],
		Type:  mm[2],
		Array: mm[3] != "",
	}
	if opts.StrictOptional {
		f.Optional = mm[4] != ""
	} else {
		f.Optional = strings.Contains(line, "?")
	}

	for _, tok := range splitTokens(mm[5]) {
		if !strings.HasPrefix(tok, "@") {
			continue
		}
		f.Attributes = append(f.Attributes, tok)
		switch {
		case strings.HasPrefix(tok, "@id"):
			f.ID = true
		case strings.HasPrefix(tok, "@unique"):
			f.Unique = true
		case strings.HasPrefix(tok, "@default("):
			if payload, ok := callPayload(tok); ok {
				f.Default, f.DefaultFunc = resolveDefault(payload)
			}
		}
	}
	return f, true
}

// callPayload returns the text between the first "(" and the final ")".
func callPayload(tok string) (string, bool) {
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return "", false
	}
	return tok[open+1 : len(tok)-1], true
}

// resolveDefault maps a @default payload to a literal. Function-style
// payloads resolve to no value; their function name is returned instead.
func resolveDefault(payload string) (any, string) {
	p := strings.TrimSpace(payload)
	if p == "" {
		return nil, ""
	}
	if i := strings.IndexByte(p, '('); i >= 0 {
		return nil, strings.TrimSpace(p[:i])
	}
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		return unquote(p), ""
	}
	switch p {
	case "true":
		return true, ""
	case "false":
		return false, ""
	}
	if intRe.MatchString(p) {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			return n, ""
		}
		if v, err := strconv.ParseFloat(p, 64); err == nil {
			return v, ""
		}
		return nil, ""
	}
	if floatRe.MatchString(p) {
		if v, err := strconv.ParseFloat(p, 64); err == nil {
			return v, ""
		}
		return nil, ""
	}
	if identRe.MatchString(p) {
		return p, ""
	}
	return nil, ""
}

// parseEnum collects value labels. Attributes, directives and braces are
// ignored; several values may share a line.
func parseEnum(name, body string) *models.Enum {
	e := &models.Enum{Name: name}
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" || strings.HasPrefix(line, "@@") {
			continue
		}
		for _, tok := range splitTokens(line) {
			if strings.HasPrefix(tok, "@") {
				continue
			}
			for _, v := range strings.Split(tok, ",") {
				v = strings.TrimSpace(v)
				if v == "" || v == "{" || v == "}" {
					continue
				}
				if _, dup := seen[v]; dup {
					continue
				}
				seen[v] = struct{}{}
				e.Values = append(e.Values, v)
			}
		}
	}
	return e
}

// unquote strips surrounding double quotes and resolves escapes. Invalid
// escape sequences fall back to removing the quotes and escaped quotes only.
func unquote(s string) string {
	if v, err := strconv.Unquote(s); err == nil {
		return v
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `\"`, `"`)
}
