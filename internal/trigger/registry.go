package trigger

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Rule is one parsed entry of a task's rule table.
type Rule struct {
	Name      string
	Signature string
	Args      map[string]string
}

// Code returns the expression body, if the rule carries one.
func (r Rule) Code() string {
	return r.Args["code"]
}

// Imports lists the packages the body may reference.
func (r Rule) Imports() []string {
	return strings.Fields(r.Args["imports"])
}

// Registry maps trigger names to parsed rules.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry parses every signature in the rule table. A malformed signature
// fails the whole table so a broken schema is caught at load time.
func NewRegistry(table map[string]string) (*Registry, error) {
	rules := make(map[string]Rule, len(table))
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, &SchemaError{Trigger: name, Reason: "empty rule name"}
		}
		args, err := ParseSignature(table[name])
		if err != nil {
			return nil, &SchemaError{Trigger: trimmed, Reason: err.Error()}
		}
		rules[trimmed] = Rule{Name: trimmed, Signature: table[name], Args: args}
	}
	return &Registry{rules: rules}, nil
}

// Lookup returns the rule for a trigger name. Most parameters carry no
// trigger, so a miss is ordinary.
func (r *Registry) Lookup(trigger string) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	rule, ok := r.rules[trigger]
	return rule, ok
}

// Names returns the registered trigger names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseSignature decodes a flat keyword signature such as
//
//	string_kw(default=True, code='OUT = VAL > 10')
//
// into its keyword arguments. The leading check name and parentheses are
// optional. Positional arguments are skipped.
func ParseSignature(sig string) (map[string]string, error) {
	body := strings.TrimSpace(sig)
	if open := strings.IndexByte(body, '('); open >= 0 && isIdent(body[:open]) {
		if !strings.HasSuffix(body, ")") {
			return nil, fmt.Errorf("signature %q: missing closing parenthesis", sig)
		}
		body = body[open+1 : len(body)-1]
	}
	args := map[string]string{}
	p := sigParser{src: body}
	for {
		p.skipSeparators()
		if p.done() {
			return args, nil
		}
		token, quoted, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", sig, err)
		}
		p.skipSpace()
		if quoted || p.done() || p.peek() != '=' {
			// positional argument
			continue
		}
		p.pos++
		key := strings.TrimSpace(token)
		if !isIdent(key) {
			return nil, fmt.Errorf("signature %q: invalid key %q", sig, key)
		}
		p.skipSpace()
		val, _, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("signature %q: key %s: %w", sig, key, err)
		}
		args[key] = val
	}
}

type sigParser struct {
	src string
	pos int
}

func (p *sigParser) done() bool { return p.pos >= len(p.src) }

func (p *sigParser) peek() byte { return p.src[p.pos] }

func (p *sigParser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
}

func (p *sigParser) skipSeparators() {
	for !p.done() && (p.peek() == ',' || unicode.IsSpace(rune(p.peek()))) {
		p.pos++
	}
}

// value reads a quoted string or a bare token ending at a top-level comma or
// '='. Bare tokens may nest parentheses and brackets.
func (p *sigParser) value() (string, bool, error) {
	if p.done() {
		return "", false, nil
	}
	if q := p.peek(); q == '\'' || q == '"' {
		s, err := p.quoted(q)
		return s, true, err
	}
	start := p.pos
	depth := 0
	for !p.done() {
		c := p.peek()
		switch {
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth < 0 {
				return "", false, fmt.Errorf("unbalanced %q at offset %d", c, p.pos)
			}
		case c == '\'' || c == '"':
			if _, err := p.quoted(c); err != nil {
				return "", false, err
			}
			continue
		case depth == 0 && (c == ',' || c == '='):
			return strings.TrimSpace(p.src[start:p.pos]), false, nil
		}
		p.pos++
	}
	if depth != 0 {
		return "", false, fmt.Errorf("unbalanced brackets")
	}
	return strings.TrimSpace(p.src[start:p.pos]), false, nil
}

func (p *sigParser) quoted(q byte) (string, error) {
	var b strings.Builder
	p.pos++
	for !p.done() {
		c := p.peek()
		p.pos++
		switch {
		case c == q:
			return b.String(), nil
		case c == '\\' && !p.done():
			esc := p.peek()
			p.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated %c string", q)
}

func isIdent(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
