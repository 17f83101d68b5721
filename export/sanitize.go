package export

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var droppedElements = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Iframe:   {},
	atom.Object:   {},
	atom.Embed:    {},
	atom.Frame:    {},
	atom.Frameset: {},
	atom.Link:     {},
	atom.Meta:     {},
	atom.Base:     {},
}

var urlAttributes = map[string]struct{}{
	"href":       {},
	"src":        {},
	"action":     {},
	"formaction": {},
	"xlink:href": {},
}

// SanitizeHTML parses an HTML fragment and removes active content: script
// and style elements, embedded frames and objects, on* event handler
// attributes and javascript: URLs.
func SanitizeHTML(fragment string) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return "", NewError(KindValidation, "parse header html", err)
	}

	var buf bytes.Buffer
	for _, node := range nodes {
		if dropNode(node) {
			continue
		}
		cleanNode(node)
		if err := html.Render(&buf, node); err != nil {
			return "", NewError(KindInternal, "render header html", err)
		}
	}
	return buf.String(), nil
}

func dropNode(node *html.Node) bool {
	if node.Type == html.CommentNode {
		return true
	}
	if node.Type != html.ElementNode {
		return false
	}
	_, drop := droppedElements[node.DataAtom]
	return drop
}

func cleanNode(node *html.Node) {
	if node.Type == html.ElementNode {
		node.Attr = cleanAttributes(node.Attr)
	}
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		if dropNode(child) {
			node.RemoveChild(child)
		} else {
			cleanNode(child)
		}
		child = next
	}
}

func cleanAttributes(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, attr := range attrs {
		name := strings.ToLower(attr.Key)
		if strings.HasPrefix(name, "on") {
			continue
		}
		if _, ok := urlAttributes[name]; ok && unsafeURL(attr.Val) {
			continue
		}
		if name == "style" && strings.Contains(strings.ToLower(attr.Val), "expression(") {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func unsafeURL(raw string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, strings.ToLower(raw))
	return strings.HasPrefix(cleaned, "javascript:") || strings.HasPrefix(cleaned, "vbscript:")
}

// plainText extracts the text content of an HTML fragment, one line per
// block element. It is used when html2text cannot convert the fragment.
func plainText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var buf strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.TextToken:
			if skip == 0 {
				buf.Write(tokenizer.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := atom.Lookup(name)
			if tag == atom.Script || tag == atom.Style {
				skip++
			}
			if isBlockBreak(tag) {
				buf.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := atom.Lookup(name)
			if (tag == atom.Script || tag == atom.Style) && skip > 0 {
				skip--
			}
			if isBlockBreak(tag) {
				buf.WriteByte('\n')
			}
		}
	}
}

func isBlockBreak(tag atom.Atom) bool {
	switch tag {
	case atom.Br, atom.P, atom.Div, atom.Li, atom.Tr, atom.H1, atom.H2, atom.H3,
		atom.H4, atom.H5, atom.H6, atom.Table, atom.Ul, atom.Ol, atom.Section,
		atom.Header, atom.Footer, atom.Hr, atom.Blockquote, atom.Pre:
		return true
	default:
		return false
	}
}
