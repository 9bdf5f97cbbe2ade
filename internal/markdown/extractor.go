// Package markdown converts markdown documents to plain text for chunking.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Document is the plain-text rendering of a markdown source.
type Document struct {
	Title    string   // First heading, if any
	Headings []string // All headings in document order, flattened
	Text     string   // Block content separated by blank lines
}

// Extractor renders markdown to plain text with a goldmark parser.
type Extractor struct {
	parser goldmark.Markdown
}

// NewExtractor creates a new extractor configured with goldmark parser.
func NewExtractor() *Extractor {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Extractor{parser: md}
}

// Extract parses source and returns its text. Markup, raw HTML and link
// destinations are dropped; code blocks are kept verbatim.
func (e *Extractor) Extract(source []byte) (*Document, error) {
	doc := e.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source, toc.Compact(true))
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	out := &Document{}
	flattenHeadings(tree.Items, &out.Headings)
	if len(out.Headings) > 0 {
		out.Title = out.Headings[0]
	}

	var buf bytes.Buffer
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && n.Kind() != ast.KindList {
				endBlock(&buf)
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
			endBlock(&buf)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}

	out.Text = string(bytes.TrimSpace(buf.Bytes()))
	return out, nil
}

// endBlock terminates the current block with a blank line, without stacking them.
func endBlock(buf *bytes.Buffer) {
	b := buf.Bytes()
	switch {
	case len(b) == 0, bytes.HasSuffix(b, []byte("\n\n")):
	case bytes.HasSuffix(b, []byte("\n")):
		buf.WriteByte('\n')
	default:
		buf.WriteString("\n\n")
	}
}

func flattenHeadings(items toc.Items, out *[]string) {
	for _, item := range items {
		if len(item.Title) > 0 {
			*out = append(*out, string(item.Title))
		}
		flattenHeadings(item.Items, out)
	}
}
