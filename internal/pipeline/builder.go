package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/alnah/go-letter2pdf/internal/assets"
	"github.com/alnah/go-letter2pdf/internal/dateutil"
	"github.com/alnah/go-letter2pdf/internal/fileutil"
)

// ErrSkeletonRender indicates the document skeleton could not be executed.
var ErrSkeletonRender = errors.New("document skeleton rendering failed")

// Message is the part of an archived record that ends up on the page.
type Message struct {
	Subject   string
	Body      string // stored HTML, entities possibly escaped
	CreatedAt string
}

// Document is a fully assembled page for one message.
type Document struct {
	HTML string
	// Unresolved lists image references left as-is because no local copy
	// could be obtained.
	Unresolved []string
}

// ImageResolver maps an image reference to a local file.
type ImageResolver interface {
	Resolve(ctx context.Context, reference string) (assets.LocalAsset, error)
}

var skeleton = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{- if .Stylesheet}}
<link href="{{.Stylesheet}}" rel="stylesheet" type="text/css">
{{- end}}
</head>
<body>
<div id="email-subject"><h1>{{.Subject}}</h1></div>
<div id="email-date"><h2>Sent on {{.CreatedAt}}</h2></div>
<div id="email-content">{{.Content}}</div>
</body>
</html>
`))

type skeletonData struct {
	Stylesheet string
	Subject    string
	CreatedAt  string
	Content    template.HTML
}

// Builder assembles message documents. Safe for concurrent use once built.
type Builder struct {
	resolver   ImageResolver
	stylesheet string
	css        string
	injector   CSSInjector
	dateLayout string
	logger     *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStylesheet links href from every document head and inlines css after
// the link. Either may be empty.
func WithStylesheet(href, css string) BuilderOption {
	return func(b *Builder) {
		b.stylesheet = href
		b.css = css
	}
}

// WithCSSInjector replaces the default <style> injector.
func WithCSSInjector(inj CSSInjector) BuilderOption {
	return func(b *Builder) {
		if inj != nil {
			b.injector = inj
		}
	}
}

// WithDateLayout rewrites each send timestamp with the Go time layout. An
// empty layout keeps the timestamp as exported.
func WithDateLayout(layout string) BuilderOption {
	return func(b *Builder) {
		b.dateLayout = layout
	}
}

// WithBuilderLogger sets the logger for image resolution events.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder. A nil resolver leaves all images untouched.
func NewBuilder(resolver ImageResolver, opts ...BuilderOption) *Builder {
	b := &Builder{
		resolver: resolver,
		injector: &CSSInjection{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the document for msg. Malformed markup never fails the
// build; only cancellation and skeleton errors do.
func (b *Builder) Build(ctx context.Context, msg Message) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	body := html.UnescapeString(msg.Body)

	root, err := parseFragment(body)
	if err != nil {
		// x/net/html only fails on reader errors; keep the text inert.
		b.logger.Warn("body parse failed, rendering as text", "err", err)
		root, _ = parseFragment(html.EscapeString(body))
	}

	var unresolved []string
	if b.resolver != nil {
		unresolved = b.localizeImages(ctx, root)
	}

	content, err := renderFragment(root)
	if err != nil {
		return Document{}, fmt.Errorf("rendering body: %w", err)
	}

	var buf bytes.Buffer
	if err := skeleton.Execute(&buf, skeletonData{
		Stylesheet: b.stylesheet,
		Subject:    msg.Subject,
		CreatedAt:  dateutil.Reformat(msg.CreatedAt, b.dateLayout),
		Content:    template.HTML(content), // #nosec G203 -- archived body is rendered as authored
	}); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrSkeletonRender, err)
	}

	out := b.injector.InjectCSS(ctx, buf.String(), b.css)
	return Document{HTML: out, Unresolved: unresolved}, nil
}

// localizeImages points every resolvable <img> at its local copy and returns
// the references that stayed remote.
func (b *Builder) localizeImages(ctx context.Context, root *xhtml.Node) []string {
	var unresolved []string

	goquery.NewDocumentFromNode(root).Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return
		}

		asset, err := b.resolver.Resolve(ctx, src)
		if err != nil {
			unresolved = append(unresolved, src)
			if errors.Is(err, assets.ErrUnsupportedReference) {
				b.logger.Debug("image left inline", "src", truncateRef(src))
			} else {
				b.logger.Warn("image not resolved", "src", truncateRef(src), "err", err)
			}
			return
		}
		img.SetAttr("src", fileutil.FileURL(asset.Path))
	})

	return unresolved
}

func truncateRef(s string) string {
	const limit = 80
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
