package render

import "strings"

// PlainText is a minimal stand-in for the production renderer: blocks
// separated by blank lines, with light markdown-ish prefixes for
// headings, list items, quotes and fenced code. It exists so the
// service can run and be tested end to end; the presentation stack is
// expected to inject its own Renderer.
type PlainText struct{}

func (PlainText) Render(raw string) []ContentNode {
	var nodes []ContentNode
	pos := 0
	add := func(kind NodeKind, text string) {
		text = strings.TrimSpace(text)
		if text == "" && kind != Codeblock {
			return
		}
		nodes = append(nodes, ContentNode{Kind: kind, FlattenedText: text, PositionIndex: pos})
		pos++
	}

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var para []string
	flushPara := func() {
		if len(para) > 0 {
			add(Paragraph, strings.Join(para, " "))
			para = para[:0]
		}
	}

	inCode := false
	var code []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inCode {
			if strings.HasPrefix(trimmed, "```") {
				add(Codeblock, strings.Join(code, "\n"))
				code = code[:0]
				inCode = false
			} else {
				code = append(code, line)
			}
			continue
		}

		switch {
		case trimmed == "":
			flushPara()
		case strings.HasPrefix(trimmed, "```"):
			flushPara()
			inCode = true
		case strings.HasPrefix(trimmed, "#"):
			flushPara()
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' && level < 6 {
				level++
			}
			add(headingKind(level), trimmed[level:])
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flushPara()
			add(ListItem, trimmed[2:])
		case strings.HasPrefix(trimmed, "> "):
			flushPara()
			add(Blockquote, trimmed[2:])
		default:
			para = append(para, trimmed)
		}
	}
	if inCode {
		add(Codeblock, strings.Join(code, "\n"))
	}
	flushPara()
	return nodes
}

func headingKind(level int) NodeKind {
	switch level {
	case 1:
		return Heading1
	case 2:
		return Heading2
	case 3:
		return Heading3
	case 4:
		return Heading4
	case 5:
		return Heading5
	default:
		return Heading6
	}
}
