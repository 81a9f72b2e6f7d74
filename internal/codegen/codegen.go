// Package codegen renders a template document to HTML. It has two
// dialects sharing one per-block renderer: preview output carries the
// editor chrome (theme handling, dark-mode media query, broken-image
// fallback), export output is a plain static document meant to survive
// third-party mail renderers.
package codegen

import (
	"fmt"
	"html"
	"strings"

	"github.com/livetemplate/blockdraft"
)

// Mode selects the document wrapper.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeExport  Mode = "export"
)

// Theme selects the page background in preview mode. ThemeAuto follows
// the viewer's prefers-color-scheme setting.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

const (
	darkPageBackground = "#1a1a1a"
	canvasBackground   = "#ffffff"
	lightDividerColor  = "#cccccc"
	darkDividerColor   = "#555555"

	// Shown in preview when a block's image URL does not resolve.
	brokenImageFallback = "https://via.placeholder.com/600x200?text=Image+not+found"

	spacerFallbackHeight = "30px"
)

// Options configure one generation pass. Data, when non-empty, is the
// sample dictionary substituted into block content; tokens it does not
// cover stay literal.
type Options struct {
	Mode  Mode
	Theme Theme
	Data  map[string]string
}

// Generate renders tpl as a complete HTML document. It never fails:
// absent optional fields and style keys fall back to their defaults,
// and unknown content degrades to plain text.
func Generate(tpl blockdraft.Template, opts Options) string {
	if opts.Mode == "" {
		opts.Mode = ModePreview
	}
	if opts.Theme == "" {
		opts.Theme = ThemeLight
	}
	g := &generator{opts: opts}
	return g.document(tpl)
}

type generator struct {
	opts Options
}

func (g *generator) document(tpl blockdraft.Template) string {
	gs := resolveGlobals(tpl.GlobalStyles)

	blocks := make([]string, 0, len(tpl.Blocks))
	for _, b := range tpl.Blocks {
		blocks = append(blocks, g.renderBlock(b))
	}
	body := strings.Join(blocks, "\n")

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	doc.WriteString("<meta charset=\"utf-8\">\n")
	doc.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(tpl.Name)))
	if g.opts.Mode == ModePreview {
		doc.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		doc.WriteString(g.previewStyles())
	}
	doc.WriteString("</head>\n")
	doc.WriteString(g.openBody(gs))
	doc.WriteString(g.openCanvas(gs))
	doc.WriteString(body)
	doc.WriteString("\n</td></tr></table>\n</td></tr></table>\n</body>\n</html>\n")
	return doc.String()
}

// resolveGlobals fills any missing document-level style with the stock
// default, so a sparse or zero-valued GlobalStyles still renders.
func resolveGlobals(gs blockdraft.GlobalStyles) blockdraft.GlobalStyles {
	def := blockdraft.DefaultGlobalStyles()
	if gs.BackgroundColor == "" {
		gs.BackgroundColor = def.BackgroundColor
	}
	if gs.FontFamily == "" {
		gs.FontFamily = def.FontFamily
	}
	if gs.MaxWidth == "" {
		gs.MaxWidth = def.MaxWidth
	}
	return gs
}

// previewStyles emits the editor-only style block. The media query only
// targets theme-auto bodies, so an explicit light or dark choice is
// never overridden by the OS setting.
func (g *generator) previewStyles() string {
	return "<style>\n" +
		"body { margin: 0; }\n" +
		"@media (prefers-color-scheme: dark) {\n" +
		fmt.Sprintf("  body.theme-auto { background-color: %s !important; }\n", darkPageBackground) +
		"}\n" +
		"</style>\n"
}

func (g *generator) pageBackground(gs blockdraft.GlobalStyles) string {
	if g.opts.Mode == ModePreview && g.opts.Theme == ThemeDark {
		return darkPageBackground
	}
	return gs.BackgroundColor
}

func (g *generator) openBody(gs blockdraft.GlobalStyles) string {
	style := blockdraft.Style{
		"margin":          "0",
		"padding":         "20px 0",
		"backgroundColor": g.pageBackground(gs),
		"fontFamily":      gs.FontFamily,
	}
	if g.opts.Mode == ModePreview {
		return fmt.Sprintf("<body class=\"theme-%s\"%s>\n", g.opts.Theme, styleAttr(style))
	}
	return fmt.Sprintf("<body%s>\n", styleAttr(style))
}

// openCanvas emits the centered presentation tables. Nested tables keep
// the export output portable to renderers that ignore margin: auto.
func (g *generator) openCanvas(gs blockdraft.GlobalStyles) string {
	canvas := blockdraft.Style{
		"width":           "100%",
		"maxWidth":        gs.MaxWidth,
		"backgroundColor": canvasBackground,
	}
	return "<table role=\"presentation\" width=\"100%\" cellpadding=\"0\" cellspacing=\"0\"><tr><td align=\"center\">\n" +
		fmt.Sprintf("<table role=\"presentation\" cellpadding=\"0\" cellspacing=\"0\"%s><tr><td style=\"padding: 24px;\">\n", styleAttr(canvas))
}

// renderBlock emits exactly one top-level element per block. The switch
// over the typed payload covers every block variant; unknown stored
// types already degrade to text at the payload layer.
func (g *generator) renderBlock(b blockdraft.Block) string {
	style := effectiveStyle(b)

	switch p := b.Payload().(type) {
	case blockdraft.HeaderContent:
		return fmt.Sprintf("<h1%s>%s</h1>", styleAttr(style), g.text(p.Text))

	case blockdraft.TextContent:
		return fmt.Sprintf("<p%s>%s</p>", styleAttr(style), g.multiline(p.Text))

	case blockdraft.ImageContent:
		return g.renderImage(p, style)

	case blockdraft.ButtonContent:
		return g.renderButton(p, style)

	case blockdraft.DividerContent:
		hr := style.Merge(blockdraft.Style{
			"border":    "none",
			"borderTop": "1px solid " + g.dividerColor(),
		})
		return fmt.Sprintf("<hr%s>", styleAttr(hr))

	case blockdraft.SpacerContent:
		height := style["height"]
		if height == "" {
			height = spacerFallbackHeight
		}
		return fmt.Sprintf("<div style=\"height: %s;\"></div>", html.EscapeString(height))

	default:
		return ""
	}
}

// renderImage centers the image in a wrapper div. Width applies to the
// img element itself, everything else to the wrapper.
func (g *generator) renderImage(p blockdraft.ImageContent, style blockdraft.Style) string {
	wrapper := style.Clone()
	imgStyle := blockdraft.Style{}
	if w := wrapper["width"]; w != "" {
		imgStyle["width"] = w
	}
	delete(wrapper, "width")
	if _, ok := wrapper["textAlign"]; !ok {
		wrapper["textAlign"] = "center"
	}

	src := html.EscapeString(blockdraft.Substitute(p.URL, g.opts.Data))
	alt := html.EscapeString(p.Alt)

	var img string
	if g.opts.Mode == ModePreview {
		img = fmt.Sprintf("<img src=\"%s\" alt=\"%s\"%s onerror=\"this.onerror=null;this.src='%s';\">",
			src, alt, styleAttr(imgStyle), brokenImageFallback)
	} else {
		img = fmt.Sprintf("<img src=\"%s\" alt=\"%s\"%s>", src, alt, styleAttr(imgStyle))
	}
	return fmt.Sprintf("<div%s>%s</div>", styleAttr(wrapper), img)
}

// renderButton centers the control in a wrapper div. With a link URL it
// becomes an anchor styled as a button; without one, a plain button.
func (g *generator) renderButton(p blockdraft.ButtonContent, style blockdraft.Style) string {
	control := style.Clone()
	wrapper := blockdraft.Style{"textAlign": "center"}
	if v := control["textAlign"]; v != "" {
		wrapper["textAlign"] = v
	}
	delete(control, "textAlign")
	if v := control["margin"]; v != "" {
		wrapper["margin"] = v
		delete(control, "margin")
	}

	label := g.text(p.Label)

	var inner string
	if p.LinkURL != "" {
		control = control.Merge(blockdraft.Style{
			"display":        "inline-block",
			"textDecoration": "none",
		})
		inner = fmt.Sprintf("<a href=\"%s\"%s>%s</a>", html.EscapeString(p.LinkURL), styleAttr(control), label)
	} else {
		control = control.Merge(blockdraft.Style{
			"border": "none",
			"cursor": "pointer",
		})
		inner = fmt.Sprintf("<button type=\"button\"%s>%s</button>", styleAttr(control), label)
	}
	return fmt.Sprintf("<div%s>%s</div>", styleAttr(wrapper), inner)
}

func (g *generator) dividerColor() string {
	if g.opts.Mode == ModePreview && g.opts.Theme == ThemeDark {
		return darkDividerColor
	}
	return lightDividerColor
}

// text substitutes sample data into content and escapes it for HTML.
func (g *generator) text(s string) string {
	return html.EscapeString(blockdraft.Substitute(s, g.opts.Data))
}

// multiline is text with embedded line breaks preserved as <br>.
func (g *generator) multiline(s string) string {
	return strings.ReplaceAll(g.text(s), "\n", "<br>")
}
