package optimizer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownToPlainText renders markdown to the plain text used in platform
// captions: text content only, one blank line between blocks, no markup.
func MarkdownToPlainText(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			blocks = append(blocks, s)
		}
		current.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				flush()
			} else if _, isHeading := n.(*ast.Heading); isHeading {
				flush()
			} else if _, isItem := n.(*ast.ListItem); isItem {
				flush()
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			current.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				current.WriteByte(' ')
			}
		case *ast.String:
			current.Write(node.Value)
		case *ast.Image:
			// Alt text carries no caption value
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}
