// Package report renders finished decision records into shareable documents:
// markdown assembly, sanitized HTML, and optional PDF/DOCX conversion through
// a pluggable converter.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/decisionflow/pipeline"
)

// Format is a report output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

var (
	// ErrUnknownFormat is returned for an unrecognized format name
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrConverterNotConfigured is returned when PDF or DOCX output is
	// requested without a converter
	ErrConverterNotConfigured = errors.New("document converter not configured")
)

// ParseFormat parses a format name, defaulting to HTML for empty input.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Converter turns rendered HTML into a binary document format. Typically
// backed by an external tool such as wkhtmltopdf or pandoc.
type Converter interface {
	Convert(ctx context.Context, html []byte, format Format) ([]byte, error)
}

// Renderer renders decision records into documents.
type Renderer struct {
	converter Converter
}

// NewRenderer creates a renderer. converter may be nil, which limits output
// to HTML.
func NewRenderer(converter Converter) *Renderer {
	return &Renderer{converter: converter}
}

// Markdown assembles the report body for a finished record.
func (r *Renderer) Markdown(rec *pipeline.DecisionRecord) string {
	var b strings.Builder

	b.WriteString("# Decision Report\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n\n", rec.Question)
	fmt.Fprintf(&b, "**Decision:** %s\n\n", rec.Decision)
	fmt.Fprintf(&b, "**Confidence:** %.2f\n\n", rec.Confidence)
	fmt.Fprintf(&b, "**Attempts:** %d\n\n", rec.Attempts)
	if rec.ForcedTermination {
		b.WriteString("> Maximum attempts were reached; this decision was accepted with low confidence.\n\n")
	}

	if rec.ContextFactors != "" {
		b.WriteString("## Contextual Factors\n\n")
		b.WriteString(rec.ContextFactors)
		b.WriteString("\n\n")
	}

	if rec.Plan != "" {
		b.WriteString("## Decision Plan\n\n")
		b.WriteString(rec.Plan)
		b.WriteString("\n\n")
	}

	if rec.Analysis != "" {
		b.WriteString("## Analysis\n\n")
		b.WriteString(rec.Analysis)
		b.WriteString("\n\n")
	}

	if len(rec.SimilarDecisions) > 0 {
		b.WriteString("## Similar Past Decisions\n\n")
		for _, sim := range rec.SimilarDecisions {
			fmt.Fprintf(&b, "- (similarity %.2f) %s\n", sim.Similarity, firstLine(sim.Content))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\nGenerated %s | Record %s\n",
		rec.CreatedAt.Format("2006-01-02 15:04 UTC"), rec.ID)

	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Decision Report</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
blockquote { border-left: 4px solid #c66; padding-left: 1rem; color: #644; }
h1, h2 { border-bottom: 1px solid #ddd; padding-bottom: 0.3rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders a record to a sanitized standalone HTML page.
func (r *Renderer) HTML(rec *pipeline.DecisionRecord) ([]byte, error) {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(r.Markdown(rec)))

	htmlFlags := mdhtml.CommonFlags
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: htmlFlags})
	body := markdown.Render(doc, renderer)

	sanitizer := bluemonday.UGCPolicy()
	body = sanitizer.SanitizeBytes(body)

	var buf bytes.Buffer
	data := struct{ Body template.HTML }{Body: template.HTML(body)} // #nosec G203
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering report page: %w", err)
	}
	return buf.Bytes(), nil
}

// Render produces the report in the requested format.
func (r *Renderer) Render(ctx context.Context, rec *pipeline.DecisionRecord, format Format) ([]byte, error) {
	html, err := r.HTML(rec)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatHTML:
		return html, nil
	case FormatPDF, FormatDOCX:
		if r.converter == nil {
			return nil, fmt.Errorf("%w: %s output unavailable", ErrConverterNotConfigured, format)
		}
		out, err := r.converter.Convert(ctx, html, format)
		if err != nil {
			return nil, fmt.Errorf("converting report to %s: %w", format, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ContentType returns the MIME type for a format.
func ContentType(format Format) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/html; charset=utf-8"
	}
}
