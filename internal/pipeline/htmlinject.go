package pipeline

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CSSInjector adds stylesheet text to an assembled document.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection appends a <style> element as the last child of <head>, after
// any <link rel="stylesheet">, so the inline rules win on equal specificity.
type CSSInjection struct{}

// InjectCSS returns htmlContent with cssContent inlined. The document is
// parsed as a whole, so a missing <head> is synthesized by the parser.
// Empty CSS or a cancelled context returns the input unchanged.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return styleTag(cssContent) + htmlContent
	}
	head := findElement(doc, atom.Head)
	if head == nil {
		return styleTag(cssContent) + htmlContent
	}

	style := &html.Node{Type: html.ElementNode, DataAtom: atom.Style, Data: "style"}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: sanitizeCSS(cssContent)})
	head.AppendChild(style)

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return styleTag(cssContent) + htmlContent
	}
	return buf.String()
}

func styleTag(css string) string {
	return "<style>" + sanitizeCSS(css) + "</style>"
}

// findElement returns the first element of kind a in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// sanitizeCSS escapes sequences that could close the <style> element early.
// Style content is raw text, so the renderer writes it unescaped.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
