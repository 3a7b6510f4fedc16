package style

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MarkupParser renders text containing [tag]...[/tag] markup
type MarkupParser struct {
	styles   map[string]lipgloss.Style
	patterns map[string]*regexp.Regexp
	plain    bool
}

// NewMarkupParser creates a parser with the default tags. A plain
// parser removes the tags without styling the content.
func NewMarkupParser(plain bool) *MarkupParser {
	p := &MarkupParser{
		styles:   make(map[string]lipgloss.Style),
		patterns: make(map[string]*regexp.Regexp),
		plain:    plain,
	}
	for tag, st := range tagStyles {
		p.AddStyle(tag, st)
	}
	return p
}

// AddStyle registers a custom tag
func (p *MarkupParser) AddStyle(tag string, st lipgloss.Style) {
	p.styles[tag] = st
	p.patterns[tag] = regexp.MustCompile(`(?s)\[` + regexp.QuoteMeta(tag) + `\](.*?)\[/` + regexp.QuoteMeta(tag) + `\]`)
}

// Render processes markup, innermost tags first
func (p *MarkupParser) Render(text string) string {
	result := text
	for {
		before := result
		for tag, pattern := range p.patterns {
			st := p.styles[tag]
			result = pattern.ReplaceAllStringFunc(result, func(match string) string {
				content := pattern.FindStringSubmatch(match)[1]
				if p.plain {
					return content
				}
				return st.Render(content)
			})
		}
		if result == before {
			return result
		}
	}
}

// RenderTemplate substitutes {{key}} placeholders, then renders markup
func (p *MarkupParser) RenderTemplate(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return p.Render(result)
}

var (
	styledParser = NewMarkupParser(false)
	plainParser  = NewMarkupParser(true)
)

// Render styles markup with the default parser
func Render(text string) string {
	return styledParser.Render(text)
}

// Strip removes markup tags, keeping their content
func Strip(text string) string {
	return plainParser.Render(text)
}

// Parser returns the styled or plain default parser
func Parser(styled bool) *MarkupParser {
	if styled {
		return styledParser
	}
	return plainParser
}

// Viewer is implemented by results that describe themselves in markup
type Viewer interface {
	Markup() string
}
