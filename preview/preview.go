// Package preview renders converted Markdown as a standalone HTML page for
// a quick visual check in a browser. Display math is converted to MathML
// and HTML tables pass through untouched.
package preview

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"sync"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdOnce sync.Once
	md     goldmark.Markdown
)

func engine() goldmark.Markdown {
	mdOnce.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				treeblood.MathML(),
			),
			goldmark.WithRendererOptions(
				ghtml.WithUnsafe(),
			),
		)
	})
	return md
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 60rem; margin: 2rem auto; font-family: sans-serif; line-height: 1.5; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 0.25rem 0.5rem; }
img { max-width: 100%%; }
</style>
</head>
<body>
%s</body>
</html>
`

// Body renders Markdown to an HTML fragment.
func Body(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := engine().Convert([]byte(inlineDisplayMath(markdown)), &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// inlineDisplayMath folds each $$ block spanning several lines onto one line
// as $$...$$, the form the math parser recognizes. Fenced code and blocks
// without a closing $$ are left alone.
func inlineDisplayMath(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if inFence || trimmed != "$$" {
			out = append(out, line)
			continue
		}

		end := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "$$" {
				end = j
				break
			}
		}
		if end < 0 {
			out = append(out, line)
			continue
		}
		var tex []string
		for _, l := range lines[i+1 : end] {
			if l = strings.TrimSpace(l); l != "" {
				tex = append(tex, l)
			}
		}
		out = append(out, "$$"+strings.Join(tex, " ")+"$$")
		i = end
	}
	return strings.Join(out, "\n")
}

// HTML renders Markdown to a complete HTML document with the given title.
func HTML(markdown, title string) ([]byte, error) {
	body, err := Body(markdown)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(pageTemplate, html.EscapeString(title), body)), nil
}
