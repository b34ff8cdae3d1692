package ingest

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownToText flattens markdown into plain text, keeping block boundaries as line breaks
func MarkdownToText(source []byte) string {
	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	).Parser()
	doc := parser.Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.AutoLink:
			if entering {
				sb.Write(node.Label(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					segment := lines.At(i)
					sb.Write(segment.Value(source))
				}
				return ast.WalkSkipChildren, nil
			}
			sb.WriteString("\n")
			return ast.WalkContinue, nil
		case *extast.TableCell:
			if !entering {
				sb.WriteString(" | ")
			}
			return ast.WalkContinue, nil
		case *extast.TableRow, *extast.TableHeader:
			if !entering {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		case *ast.TextBlock, *ast.ListItem:
			if !entering {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			sb.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})

	return sb.String()
}

// HTMLToText strips non-content elements, converts the page to markdown and flattens it.
// The page title, when present, leads the text.
func HTMLToText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("head, script, style, noscript, nav, footer, aside, iframe").Remove()

	body, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("HTML to markdown conversion failed: %w", err)
	}

	content := MarkdownToText([]byte(markdown))
	if title != "" && !strings.HasPrefix(strings.TrimSpace(content), title) {
		content = title + "\n\n" + content
	}
	return content, nil
}
