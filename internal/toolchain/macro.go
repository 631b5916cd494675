package toolchain

import (
	"bufio"
	"bytes"
	"strings"
)

// ParseMacroLine converts one line of a `-dM` macro dump into a
// "NAME=VALUE" expression. Object-like macros yield "NAME=VALUE" (or just
// "NAME" without a value); function-like macros keep their parameter list,
// "MAX(a,b)=((a)>(b)?(a):(b))". Lines that are not #define directives
// return false.
func ParseMacroLine(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "#") {
		return "", false
	}
	s = strings.TrimSpace(s[1:])
	if !strings.HasPrefix(s, "define") {
		return "", false
	}
	s = s[len("define"):]
	if s == "" || (s[0] != ' ' && s[0] != '\t') {
		return "", false
	}
	s = strings.TrimSpace(s)

	end := 0
	for end < len(s) && isIdentChar(s[end], end == 0) {
		end++
	}
	if end == 0 {
		return "", false
	}
	name := s[:end]
	rest := s[end:]

	// A '(' directly after the name makes the macro function-like.
	if strings.HasPrefix(rest, "(") {
		closeIdx := strings.IndexByte(rest, ')')
		if closeIdx < 0 {
			return "", false
		}
		params := strings.Split(rest[1:closeIdx], ",")
		for i, p := range params {
			params[i] = strings.TrimSpace(p)
		}
		name += "(" + strings.Join(params, ",") + ")"
		rest = rest[closeIdx+1:]
	}

	value := strings.TrimSpace(rest)
	if value == "" {
		return name, true
	}
	return name + "=" + value, true
}

// ParseMacroDump parses every line of a macro dump.
func ParseMacroDump(dump []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(dump))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if m, ok := ParseMacroLine(sc.Text()); ok {
			out = append(out, m)
		}
	}
	return out
}

func isIdentChar(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}
