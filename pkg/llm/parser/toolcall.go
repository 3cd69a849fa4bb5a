// Package parser provides utilities for parsing structured content from LLM streams.
package parser

import "strings"

const (
	openTag  = "<tool_call>"
	closeTag = "</tool_call>"

	// maxTagLen bounds how long a '<' is held back waiting for '>'. Anything
	// longer cannot be one of the tool call tags.
	maxTagLen = len(closeTag) + 2
)

// ToolCallParser splits streamed assistant output into prose and the tool
// call block. It keeps state across chunks so tags that span chunk
// boundaries are still recognized.
type ToolCallParser struct {
	buffer     strings.Builder
	tagBuffer  strings.Builder // potential tag between '<' and '>'
	inToolCall bool
	inTag      bool
}

// NewToolCallParser creates a new tool call parser.
func NewToolCallParser() *ToolCallParser {
	return &ToolCallParser{}
}

// Parse consumes one chunk and returns the prose and tool call text it
// completed. Either may be empty.
func (p *ToolCallParser) Parse(content string) (prose, call string) {
	var proseOut, callOut strings.Builder

	for _, ch := range content {
		switch {
		case ch == '<':
			// a second '<' means the first was not a tag
			if p.inTag {
				p.emit(p.takeTag(), &proseOut, &callOut)
			}
			p.flushBuffer(&proseOut, &callOut)
			p.inTag = true
			p.tagBuffer.WriteRune(ch)

		case p.inTag && ch == '>':
			p.tagBuffer.WriteRune(ch)
			tag := p.takeTag()
			switch normalizeTag(tag) {
			case openTag:
				p.inToolCall = true
				callOut.WriteString(tag)
			case closeTag:
				callOut.WriteString(tag)
				p.inToolCall = false
			default:
				p.emit(tag, &proseOut, &callOut)
			}

		case p.inTag:
			p.tagBuffer.WriteRune(ch)
			if p.tagBuffer.Len() > maxTagLen {
				p.emit(p.takeTag(), &proseOut, &callOut)
			}

		default:
			p.buffer.WriteRune(ch)
		}
	}

	p.flushBuffer(&proseOut, &callOut)
	return proseOut.String(), callOut.String()
}

// InToolCall reports whether the parser is inside a tool call block.
func (p *ToolCallParser) InToolCall() bool {
	return p.inToolCall
}

// Flush returns text held back at the end of a stream.
func (p *ToolCallParser) Flush() (prose, call string) {
	var proseOut, callOut strings.Builder
	if p.inTag {
		p.emit(p.takeTag(), &proseOut, &callOut)
	}
	p.flushBuffer(&proseOut, &callOut)
	return proseOut.String(), callOut.String()
}

// Reset clears the parser state for a new stream.
func (p *ToolCallParser) Reset() {
	p.buffer.Reset()
	p.tagBuffer.Reset()
	p.inToolCall = false
	p.inTag = false
}

func (p *ToolCallParser) takeTag() string {
	tag := p.tagBuffer.String()
	p.tagBuffer.Reset()
	p.inTag = false
	return tag
}

func (p *ToolCallParser) flushBuffer(prose, call *strings.Builder) {
	if p.buffer.Len() == 0 {
		return
	}
	p.emit(p.buffer.String(), prose, call)
	p.buffer.Reset()
}

func (p *ToolCallParser) emit(text string, prose, call *strings.Builder) {
	if p.inToolCall {
		call.WriteString(text)
		return
	}
	prose.WriteString(text)
}

// normalizeTag accepts "<tool_call >" and "</ tool_call>" spellings.
func normalizeTag(tag string) string {
	return strings.ToLower(strings.Join(strings.Fields(tag), ""))
}
