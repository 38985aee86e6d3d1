package toolset

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// selector is a descendant chain of compound selectors such as
// `div.result a[itemprop="url"]`. Only tag, #id, .class and [attr] or
// [attr=value] parts are understood.
type selector []compound

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name  string
	value string
	any   bool
}

func parseSelector(s string) (selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrInvalidInput.Msg("empty selector")
	}
	sel := make(selector, 0, len(fields))
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return nil, err
		}
		sel = append(sel, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && s[i] != '.' && s[i] != '#' && s[i] != '[' {
			i++
		}
		return s[start:i]
	}
	c.tag = strings.ToLower(readIdent())
	if c.tag == "*" {
		c.tag = ""
	} else if c.tag != "" && !validIdent(c.tag) {
		return c, ErrInvalidInput.Msg("invalid selector: " + s)
	}
	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			name := readIdent()
			if !validIdent(name) {
				return c, ErrInvalidInput.Msg("invalid selector: " + s)
			}
			c.classes = append(c.classes, name)
		case '#':
			i++
			c.id = readIdent()
			if !validIdent(c.id) {
				return c, ErrInvalidInput.Msg("invalid selector: " + s)
			}
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, ErrInvalidInput.Msg("invalid selector: " + s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			name, value, hasValue := strings.Cut(body, "=")
			m := attrMatch{name: strings.ToLower(strings.TrimSpace(name)), any: !hasValue}
			if hasValue {
				m.value = strings.Trim(strings.TrimSpace(value), `"'`)
			}
			if m.name == "" {
				return c, ErrInvalidInput.Msg("invalid selector: " + s)
			}
			c.attrs = append(c.attrs, m)
		default:
			return c, ErrInvalidInput.Msg("invalid selector: " + s)
		}
	}
	return c, nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && attr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, m := range c.attrs {
		v, ok := lookupAttr(n, m.name)
		if !ok || (!m.any && v != m.value) {
			return false
		}
	}
	return true
}

func (s selector) matches(n *html.Node) bool {
	last := len(s) - 1
	if !s[last].matches(n) {
		return false
	}
	i := last - 1
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if s[i].matches(p) {
			i--
		}
	}
	return i < 0
}

// selectAll returns matching nodes in document order.
func selectAll(root *html.Node, s selector) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if s.matches(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// textContent concatenates the text below n, skipping script and style.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
