package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdCodeBlockRe = regexp.MustCompile(`(?s)<pre><code(?: class="language-([a-zA-Z0-9]+)")?>(.*?)</code></pre>`)
	mdInlineCode  = regexp.MustCompile(`<code>([^<]+)</code>`)
	mdHeadingRe   = regexp.MustCompile(`<h([1-3]) id="[^"]*">(.*?)</h[1-3]>`)
	mdStrongRe    = regexp.MustCompile(`<strong>(.*?)</strong>`)
	mdEmRe        = regexp.MustCompile(`<em>(.*?)</em>`)
	mdLinkRe      = regexp.MustCompile(`<a href="([^"]*)">(.*?)</a>`)
	mdListRe      = regexp.MustCompile(`(?s)<(ul|ol)>(.*?)</(?:ul|ol)>`)
	mdItemRe      = regexp.MustCompile(`<li>(.*?)</li>`)
	mdTagRe       = regexp.MustCompile(`<[^>]+>`)
	mdBlankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// MarkdownRenderer turns agent markdown (worksheets are mostly headings,
// lists and tables) into styled terminal text with highlighted code blocks.
type MarkdownRenderer struct {
	goldmark.Markdown
	formatter chroma.Formatter
	style     *chroma.Style
	theme     Theme
}

func NewMarkdownRenderer(theme Theme) *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
	)

	return &MarkdownRenderer{
		Markdown:  md,
		formatter: formatters.Get("terminal256"),
		style:     styles.Get("friendly"),
		theme:     theme,
	}
}

// Render converts markdown to terminal output. On any parse failure the raw
// text comes back unchanged; a broken worksheet still has to be readable.
func (r *MarkdownRenderer) Render(content string, width int) string {
	var buf bytes.Buffer
	if err := r.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return r.formatForTerminal(buf.String(), width)
}

func (r *MarkdownRenderer) formatForTerminal(htmlContent string, width int) string {
	result := htmlContent

	// Code blocks first, before tag stripping touches their contents.
	var codeBlocks []string
	result = mdCodeBlockRe.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdCodeBlockRe.FindStringSubmatch(m)
		if len(matches) < 3 {
			return m
		}
		code := decodeHTMLEntities(matches[2])
		highlighted := r.highlight(code, matches[1])

		codeWidth := width - 6
		if codeWidth < 20 {
			codeWidth = 20
		}
		styled := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(r.theme.Border).
			Padding(0, 1).
			Width(codeWidth).
			Render(highlighted)

		index := len(codeBlocks)
		codeBlocks = append(codeBlocks, styled)
		return fmt.Sprintf("\n{{CODE_BLOCK_%d}}\n", index)
	})

	result = mdInlineCode.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdInlineCode.FindStringSubmatch(m)
		if len(matches) < 2 {
			return m
		}
		return lipgloss.NewStyle().
			Foreground(r.theme.Accent2).
			Render(decodeHTMLEntities(matches[1]))
	})

	result = mdHeadingRe.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdHeadingRe.FindStringSubmatch(m)
		if len(matches) < 3 {
			return m
		}
		style := lipgloss.NewStyle().Bold(true).Foreground(r.theme.Accent)
		if matches[1] == "1" {
			style = style.
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(r.theme.Border).
				Width(width - 2)
		}
		return style.Render(mdTagRe.ReplaceAllString(matches[2], "")) + "\n"
	})

	result = mdStrongRe.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdStrongRe.FindStringSubmatch(m)
		if len(matches) < 2 {
			return m
		}
		return lipgloss.NewStyle().Bold(true).Render(matches[1])
	})

	result = mdEmRe.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdEmRe.FindStringSubmatch(m)
		if len(matches) < 2 {
			return m
		}
		return lipgloss.NewStyle().Italic(true).Render(matches[1])
	})

	result = mdLinkRe.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdLinkRe.FindStringSubmatch(m)
		if len(matches) < 3 {
			return m
		}
		return lipgloss.NewStyle().
			Foreground(r.theme.Accent).
			Underline(true).
			Render(fmt.Sprintf("%s (%s)", matches[2], matches[1]))
	})

	result = mdListRe.ReplaceAllStringFunc(result, func(m string) string {
		matches := mdListRe.FindStringSubmatch(m)
		if len(matches) < 3 {
			return m
		}
		ordered := matches[1] == "ol"
		items := mdItemRe.FindAllStringSubmatch(matches[2], -1)
		var list strings.Builder
		for i, item := range items {
			if len(item) < 2 {
				continue
			}
			marker := "  • "
			if ordered {
				marker = fmt.Sprintf("  %d. ", i+1)
			}
			list.WriteString(lipgloss.NewStyle().Foreground(r.theme.Accent2).Render(marker))
			list.WriteString(mdTagRe.ReplaceAllString(item[1], ""))
			list.WriteString("\n")
		}
		return list.String()
	})

	result = strings.ReplaceAll(result, "<p>", "")
	result = strings.ReplaceAll(result, "</p>", "\n")
	result = strings.ReplaceAll(result, "<br>", "\n")
	result = strings.ReplaceAll(result, "<br/>", "\n")
	result = strings.ReplaceAll(result, "<br />", "\n")

	for i, codeBlock := range codeBlocks {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{CODE_BLOCK_%d}}", i), codeBlock)
	}

	result = mdTagRe.ReplaceAllString(result, "")
	result = decodeHTMLEntities(result)
	result = mdBlankRunRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
	"&#x27;", "'",
	"&#x60;", "`",
	"&nbsp;", " ",
)

func decodeHTMLEntities(s string) string {
	return htmlEntities.Replace(s)
}

func (r *MarkdownRenderer) highlight(code, lang string) string {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
