package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ContentFormat selects how browser_get_content renders a page.
type ContentFormat string

const (
	// FormatHTML keeps semantic markup and targeting attributes.
	FormatHTML ContentFormat = "html"

	// FormatText keeps visible text only, one block per line.
	FormatText ContentFormat = "text"
)

// ParseContentFormat validates a format name. Empty means FormatHTML.
func ParseContentFormat(s string) (ContentFormat, error) {
	switch ContentFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatText:
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported format %q (must be 'html' or 'text')", s)
}

// CleanedPage is page content reduced to what the model needs to act on it.
type CleanedPage struct {
	Content     string
	Title       string
	Description string
	Truncated   bool
}

// cleaner walks a parsed document and writes a reduced rendering until the
// character budget runs out.
type cleaner struct {
	out    strings.Builder
	format ContentFormat
	used   int
	budget int
}

// CleanPage strips scripts, styles and other noise from raw markup.
func CleanPage(raw string, format ContentFormat, maxLength int) (*CleanedPage, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	c := &cleaner{format: format, budget: maxLength}
	truncated := c.node(doc, 0)

	content := c.out.String()
	if format == FormatText {
		content = tidyLines(content)
	}

	return &CleanedPage{
		Content:     content,
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
		Truncated:   truncated,
	}, nil
}

// node renders n and its subtree. It reports whether the budget ran out.
func (c *cleaner) node(n *html.Node, depth int) bool {
	if c.used >= c.budget {
		return true
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return false
	case html.TextNode:
		return c.text(n.Data)
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) || (c.format == FormatText && tag == "head") {
			return false
		}
		if c.format == FormatText {
			return c.textElement(n, tag, depth)
		}
		return c.element(n, tag, depth)
	}
	return c.children(n, depth)
}

func (c *cleaner) text(data string) bool {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return false
	}
	if c.format == FormatText {
		c.out.WriteString(" ")
	}

	if c.used+len(text) > c.budget {
		remaining := c.budget - c.used
		c.out.WriteString(text[:remaining])
		c.out.WriteString("...")
		c.used = c.budget
		return true
	}

	c.out.WriteString(text)
	c.used += len(text)
	return false
}

func (c *cleaner) element(n *html.Node, tag string, depth int) bool {
	if depth > 0 && isBlockElement(tag) {
		c.out.WriteString("\n")
		c.out.WriteString(strings.Repeat("  ", depth))
	}

	c.out.WriteString("<")
	c.out.WriteString(tag)
	for _, attr := range n.Attr {
		if shouldPreserveAttribute(tag, attr.Key) {
			fmt.Fprintf(&c.out, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	c.out.WriteString(">")
	c.used += len(tag) + 2

	truncated := c.children(n, depth+1)

	if !isVoidElement(tag) {
		if isBlockElement(tag) {
			c.out.WriteString("\n")
			c.out.WriteString(strings.Repeat("  ", depth))
		}
		c.out.WriteString("</")
		c.out.WriteString(tag)
		c.out.WriteString(">")
		c.used += len(tag) + 3
	}
	return truncated
}

// textElement renders only visible text, breaking lines at block boundaries
// and surfacing link targets and form field hints.
func (c *cleaner) textElement(n *html.Node, tag string, depth int) bool {
	block := isBlockElement(tag) || tag == "br"
	if block {
		c.out.WriteString("\n")
	}

	switch tag {
	case "input", "textarea", "select":
		if hint := fieldHint(n); hint != "" {
			c.out.WriteString(" ")
			c.out.WriteString(hint)
			c.used += len(hint)
		}
	case "img":
		if alt := attrValue(n, "alt"); alt != "" {
			c.out.WriteString(" [image: " + alt + "]")
			c.used += len(alt)
		}
	}

	truncated := c.children(n, depth+1)

	if tag == "a" {
		if href := attrValue(n, "href"); href != "" && !strings.HasPrefix(href, "javascript:") {
			c.out.WriteString(" (" + href + ")")
			c.used += len(href)
		}
	}
	if block {
		c.out.WriteString("\n")
	}
	return truncated
}

func (c *cleaner) children(n *html.Node, depth int) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if c.node(child, depth) {
			return true
		}
	}
	return false
}

func fieldHint(n *html.Node) string {
	label := attrValue(n, "placeholder")
	if label == "" {
		label = attrValue(n, "aria-label")
	}
	if label == "" {
		label = attrValue(n, "name")
	}
	kind := attrValue(n, "type")
	if kind == "hidden" {
		return ""
	}
	if kind == "" {
		kind = strings.ToLower(n.Data)
	}
	if label == "" {
		return "[" + kind + "]"
	}
	return "[" + kind + ": " + label + "]"
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// tidyLines trims every line and drops empty ones.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
	"template": true,
}

// isSkippedElement returns true for elements that are removed with their subtree.
func isSkippedElement(tag string) bool {
	return skippedElements[tag]
}

var blockElements = map[string]bool{
	"div": true, "p": true, "section": true, "article": true,
	"header": true, "footer": true, "nav": true, "main": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "tr": true, "td": true, "th": true,
	"form": true, "fieldset": true, "blockquote": true, "pre": true,
	"dialog": true, "label": true,
}

func isBlockElement(tag string) bool {
	return blockElements[tag]
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

func isVoidElement(tag string) bool {
	return voidElements[tag]
}

// shouldPreserveAttribute returns true for attributes a selector could target.
func shouldPreserveAttribute(tag, attr string) bool {
	attr = strings.ToLower(attr)

	switch attr {
	case "id", "class", "role", "aria-label", "aria-describedby", "title":
		return true
	}
	if strings.HasPrefix(attr, "data-") {
		return true
	}

	switch tag {
	case "a":
		return attr == "href" || attr == "target"
	case "img":
		return attr == "src" || attr == "alt"
	case "input", "textarea", "select":
		return attr == "name" || attr == "type" || attr == "placeholder" || attr == "value"
	case "button":
		return attr == "type" || attr == "name"
	case "form":
		return attr == "action" || attr == "method"
	case "table":
		return attr == "summary"
	}
	return false
}

func extractTitle(doc *html.Node) string {
	if n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" }); n != nil {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	return ""
}

func extractMetaDescription(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && strings.EqualFold(attrValue(n, "name"), "description") && attrValue(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return attrValue(n, "content")
}

// findElement returns the first element in document order matching pred.
func findElement(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, pred); found != nil {
			return found
		}
	}
	return nil
}
