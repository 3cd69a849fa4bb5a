package tools

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

const maxXMLSize = 10 * 1024 * 1024 // 10MB limit for tool call XML

// ErrMalformedToolCall is returned when a response contains a tool call that cannot be parsed.
var ErrMalformedToolCall = errors.New("malformed tool call")

var (
	toolCallRegex = regexp.MustCompile(`(?s)<tool_call>.*?</tool_call>`)
	toolOpenRegex = regexp.MustCompile(`<tool_call\s*>`)

	// ampersandEntityRegex matches ampersands that are already part of XML entities
	// to avoid double-escaping them. Matches: &amp; &lt; &gt; &quot; &apos; &#123; &#xAB;
	ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)
)

// ToolCall is a parsed tool invocation from the model's response.
//
//	<tool_call>
//	<tool_name>browser_click</tool_name>
//	<tool_input>{"selector": "#login"}</tool_input>
//	<requires_approval>false</requires_approval>
//	</tool_call>
type ToolCall struct {
	XMLName          xml.Name `xml:"tool_call"`
	ToolName         string   `xml:"tool_name"`
	Input            string   `xml:"-"`
	RequiresApproval bool     `xml:"-"`

	RawInput    InputBlock `xml:"tool_input"`
	RawApproval string     `xml:"requires_approval"`
}

// InputBlock holds the raw XML of the tool_input element, so markup in the
// input survives decoding.
type InputBlock struct {
	InnerXML string `xml:",innerxml"`
}

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// HasToolCall reports whether text opens a tool call, complete or not.
func HasToolCall(text string) bool {
	return toolOpenRegex.MatchString(text)
}

// ExtractToolCall separates the text before the first tool call from the call itself.
// A response without a tool call returns a nil call and no error. Anything that opens
// a <tool_call> but does not parse returns an error wrapping ErrMalformedToolCall.
func ExtractToolCall(text string) (thinking string, call *ToolCall, err error) {
	if !HasToolCall(text) {
		return strings.TrimSpace(text), nil, nil
	}
	if len(text) > maxXMLSize {
		return "", nil, fmt.Errorf("%w: exceeds maximum size of %d bytes", ErrMalformedToolCall, maxXMLSize)
	}

	loc := toolCallRegex.FindStringIndex(text)
	if loc == nil {
		return "", nil, fmt.Errorf("%w: missing </tool_call>", ErrMalformedToolCall)
	}
	thinking = strings.TrimSpace(text[:loc[0]])

	call, err = ParseToolCall(text[loc[0]:loc[1]])
	if err != nil {
		return thinking, nil, err
	}
	return thinking, call, nil
}

// ParseToolCall parses a single <tool_call> element.
func ParseToolCall(block string) (*ToolCall, error) {
	block = strings.TrimSpace(block)

	var call ToolCall
	if err := UnmarshalXMLWithFallback([]byte(block), &call); err != nil {
		// Inputs carrying raw markup (selectors, HTML) are not valid XML; read the tags directly.
		loose, ok := parseLoose(block)
		if !ok {
			snippet := block
			if len(snippet) > 200 {
				snippet = snippet[:200] + "..."
			}
			return nil, fmt.Errorf("%w: %v\nXML snippet: %s", ErrMalformedToolCall, err, snippet)
		}
		call = *loose
	} else {
		call.Input = innerText(call.RawInput.InnerXML)
	}

	call.ToolName = strings.TrimSpace(call.ToolName)
	if call.ToolName == "" {
		return nil, fmt.Errorf("%w: tool_name is required", ErrMalformedToolCall)
	}
	call.Input = strings.TrimSpace(call.Input)

	raw := strings.TrimSpace(call.RawApproval)
	if raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: requires_approval must be true or false, got %q", ErrMalformedToolCall, raw)
		}
		call.RequiresApproval = v
	}

	return &call, nil
}

func parseLoose(block string) (*ToolCall, bool) {
	name, ok := tagContent(block, "tool_name")
	if !ok {
		return nil, false
	}
	input, _ := tagContent(block, "tool_input")
	approval, _ := tagContent(block, "requires_approval")
	return &ToolCall{ToolName: name, Input: input, RawApproval: approval}, true
}

func tagContent(block, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	start := strings.Index(block, open)
	if start < 0 {
		return "", false
	}
	rest := block[start+len(open):]
	end := strings.LastIndex(rest, closing)
	if end < 0 {
		return "", false
	}
	content := strings.TrimSpace(rest[:end])
	if strings.HasPrefix(content, cdataOpen) && strings.HasSuffix(content, cdataClose) {
		content = content[len(cdataOpen) : len(content)-len(cdataClose)]
	}
	return content, true
}

// innerText decodes entities in raw element content. CDATA sections and
// nested markup are kept verbatim.
func innerText(raw string) string {
	var b strings.Builder
	for {
		start := strings.Index(raw, cdataOpen)
		if start < 0 {
			b.WriteString(html.UnescapeString(raw))
			return b.String()
		}
		b.WriteString(html.UnescapeString(raw[:start]))

		rest := raw[start+len(cdataOpen):]
		end := strings.Index(rest, cdataClose)
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:end])
		raw = rest[end+len(cdataClose):]
	}
}

// UnmarshalXMLWithFallback attempts to unmarshal XML, with fallback to
// escape unescaped ampersands if the initial parse fails.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; while preserving
// existing entities (&amp;, &lt;, &gt;, &quot;, &apos;, &#..;)
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityPositions := make(map[int]bool)
	for _, match := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityPositions[match[0]] = true
	}

	var result strings.Builder
	result.Grow(len(text) + 20)

	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityPositions[i] {
			result.WriteString("&amp;")
		} else {
			result.WriteByte(text[i])
		}
	}

	return []byte(result.String())
}

// ProtocolErrorMessage renders a parse failure as feedback the model can act on.
func ProtocolErrorMessage(err error) string {
	return fmt.Sprintf("Error: your tool call could not be parsed (%v). "+
		"Use exactly one <tool_call> block with <tool_name>, <tool_input> and "+
		"<requires_approval>true|false</requires_approval>, or answer without a tool call when the task is done.", err)
}

// UnknownToolMessage tells the model which tools exist.
func UnknownToolMessage(name string, available []Registered) string {
	return fmt.Sprintf("Error: unknown tool %q. Available tools: %s.", name, strings.Join(Names(available), ", "))
}
