package parser

import "strings"

// block is one top-level `<keyword> <name> { body }` construct.
type block struct {
	keyword string
	name    string
	body    string
}

// scanBlocks walks text tracking brace depth and returns every top-level
// block in order. Braces inside // comments and double-quoted strings are
// ignored, and nested braces stay inside the enclosing body. A block
// without a closer is dropped.
func scanBlocks(text string) []block {
	var (
		blocks    []block
		header    strings.Builder
		hdr       string
		depth     int
		bodyStart int
		inString  bool
		inComment bool
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inComment {
			if c == '\n' {
				inComment = false
				if depth == 0 {
					header.WriteByte(c)
				}
			}
			continue
		}
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			case '\n':
				// unterminated string literal ends at the line break
				inString = false
			}
			continue
		}

		switch c {
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				inComment = true
				i++
				continue
			}
		case '"':
			inString = true
			continue
		case '{':
			if depth == 0 {
				hdr = header.String()
				header.Reset()
				bodyStart = i + 1
			}
			depth++
			continue
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if kw, name, ok := parseHeader(hdr); ok {
					blocks = append(blocks, block{keyword: kw, name: name, body: text[bodyStart:i]})
				}
			}
			continue
		}

		if depth == 0 {
			header.WriteByte(c)
		}
	}
	return blocks
}

// parseHeader reads `<keyword> <Name>` from the text preceding an opening
// brace. Leftover text before the keyword is tolerated.
func parseHeader(hdr string) (string, string, bool) {
	fields := strings.Fields(hdr)
	if len(fields) < 2 {
		return "", "", false
	}
	kw, name := fields[len(fields)-2], fields[len(fields)-1]
	if !identRe.MatchString(name) {
		return "", "", false
	}
	switch kw {
	case keywordModel, keywordEnum:
		return kw, name, true
	default:
		return "", "", false
	}
}

// stripComment removes a trailing // comment that is not inside a string.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '/':
			if !inString && i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		}
	}
	return line
}

// splitTokens splits s on spaces and tabs that are outside double quotes
// and parentheses, so `@default("a b")` stays one token.
func splitTokens(s string) []string {
	var (
		out      []string
		buf      []byte
		inString bool
		parens   int
	)

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\\' && i+1 < len(s) {
				buf = append(buf, c, s[i+1])
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '(':
			parens++
		case c == ')':
			if parens > 0 {
				parens--
			}
		case (c == ' ' || c == '\t') && parens == 0:
			flush()
			continue
		}
		buf = append(buf, c)
	}
	flush()
	return out
}
