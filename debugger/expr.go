package debugger

// token classes of a print expression
const (
	tokIdent = iota
	tokScope
	tokOther
	tokEnd
)

// nextToken returns the class and length of the token at the start of s.
func nextToken(s string) (int, int) {
	if s == "" {
		return tokEnd, 0
	}
	if len(s) >= 2 && s[0] == ':' && s[1] == ':' {
		return tokScope, 2
	}
	if !isIdentStart(s[0]) {
		return tokOther, 1
	}
	n := 1
	for n < len(s) && isIdentPart(s[n]) {
		n++
	}
	return tokIdent, n
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// parseExpression splits expr into a scope qualifier and an identifier.
// A leading "::" yields scope "::", the global namespace. Parsing stops at
// the first token that is neither an identifier nor "::".
//
// The scope is built by treating "" and "::" alike once a name has been
// seen, so "::ns::x" and "ns::x" both yield scope "ns".
func parseExpression(expr string) (scope, name string) {
	for {
		class, n := nextToken(expr)
		switch class {
		case tokScope:
			switch {
			case scope == "" && name == "":
				scope = "::"
			case scope == "" || scope == "::":
				scope = name
			default:
				scope += "::" + name
			}
			name = ""
		case tokIdent:
			name = expr[:n]
		default:
			return scope, name
		}
		expr = expr[n:]
	}
}
