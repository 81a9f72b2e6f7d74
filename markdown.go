package blockdraft

import (
	"bytes"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// MarkdownFrontmatter is the optional YAML frontmatter at the top of a
// markdown template file.
type MarkdownFrontmatter struct {
	Name   string `yaml:"name"`
	Styles struct {
		BackgroundColor string `yaml:"backgroundColor"`
		FontFamily      string `yaml:"fontFamily"`
		MaxWidth        string `yaml:"maxWidth"`
	} `yaml:"styles"`
}

// DecodeMarkdown converts a markdown document into a Template. It is an
// authoring convenience: headings become header blocks, paragraphs
// become text blocks, a paragraph holding only an image becomes an
// image block, a paragraph holding only a link becomes a button block,
// and thematic breaks become dividers. Inline formatting is flattened
// to plain text. YAML frontmatter may set the template name and global
// style overrides.
func DecodeMarkdown(raw []byte, path string, ids IDGenerator, now time.Time) (Template, error) {
	fm, remaining, err := extractFrontmatter(raw, path)
	if err != nil {
		return Template{}, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(remaining))

	tpl := NewTemplate(ids.NewID(), fm.Name, now)
	if fm.Styles.BackgroundColor != "" {
		tpl.GlobalStyles.BackgroundColor = fm.Styles.BackgroundColor
	}
	if fm.Styles.FontFamily != "" {
		tpl.GlobalStyles.FontFamily = fm.Styles.FontFamily
	}
	if fm.Styles.MaxWidth != "" {
		tpl.GlobalStyles.MaxWidth = fm.Styles.MaxWidth
	}

	walkErr := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n == doc {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			b := mustNewBlock(BlockHeader, ids.NewID())
			b.Content = nodeText(node, remaining)
			tpl.Blocks = append(tpl.Blocks, b)

		case *ast.Paragraph:
			tpl.Blocks = append(tpl.Blocks, paragraphBlock(node, remaining, ids))

		case *ast.ThematicBreak:
			tpl.Blocks = append(tpl.Blocks, mustNewBlock(BlockDivider, ids.NewID()))
		}

		// Top-level mapping only: nested content is flattened into the
		// block built for its container.
		return ast.WalkSkipChildren, nil
	})
	if walkErr != nil {
		return Template{}, newParseFailure(path, walkErr)
	}

	// Untitled documents borrow their first heading as the name.
	if fm.Name == "" {
		for _, b := range tpl.Blocks {
			if b.Type == BlockHeader && b.Content != "" {
				tpl.Name = b.Content
				break
			}
		}
	}

	return tpl, nil
}

// paragraphBlock maps one markdown paragraph to a block. A paragraph
// whose only child is an image or a link becomes an image or button
// block; everything else is a text block with soft line breaks kept.
func paragraphBlock(p *ast.Paragraph, source []byte, ids IDGenerator) Block {
	if p.ChildCount() == 1 {
		switch child := p.FirstChild().(type) {
		case *ast.Image:
			b := mustNewBlock(BlockImage, ids.NewID())
			b.Content = string(child.Destination)
			b.AltText = nodeText(child, source)
			return b
		case *ast.Link:
			b := mustNewBlock(BlockButton, ids.NewID())
			b.Content = nodeText(child, source)
			b.LinkURL = string(child.Destination)
			return b
		}
	}
	b := mustNewBlock(BlockText, ids.NewID())
	b.Content = nodeText(p, source)
	return b
}

// nodeText flattens a node's inline content to plain text, turning soft
// and hard line breaks into newlines.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}

// mustNewBlock builds a default block for a type known to be valid.
func mustNewBlock(t BlockType, id string) Block {
	b, err := NewBlock(t, id)
	if err != nil {
		panic(err)
	}
	return b
}

// extractFrontmatter splits optional YAML frontmatter from the start of
// a markdown file. Files without a leading "---" line have no
// frontmatter.
func extractFrontmatter(content []byte, path string) (MarkdownFrontmatter, []byte, error) {
	var fm MarkdownFrontmatter
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return fm, content, nil
	}

	endIdx := bytes.Index(content[4:], []byte("\n---\n"))
	if endIdx == -1 {
		return fm, nil, NewImportError(path, MsgParseFailure).
			WithLine(1).
			WithHint("Close the frontmatter block with a --- line.")
	}

	yamlContent := content[4 : 4+endIdx]
	remaining := content[4+endIdx+5:]

	if err := yaml.Unmarshal(yamlContent, &fm); err != nil {
		return fm, nil, NewImportError(path, MsgParseFailure).
			WithLine(1).
			WithHint("Frontmatter must be valid YAML (name and styles keys).").
			WithCause(err)
	}

	return fm, remaining, nil
}
