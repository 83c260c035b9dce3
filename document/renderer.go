package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"video2doc/config"
	"video2doc/errors"
	"video2doc/models"
)

// Renderer serializes a Document into the requested output artifact. Page
// layout for pdf is delegated to an external engine; the renderer only
// produces its input. Render failures indicate a structural problem and
// are surfaced, never retried.
type Renderer struct {
	cfg    config.RenderConfig
	format string

	// RunFunc executes the external layout engine; replaceable in tests.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewRenderer(cfg config.RenderConfig, format string) *Renderer {
	r := &Renderer{cfg: cfg, format: format}
	r.RunFunc = runCommand
	return r
}

// Render writes the document JSON sidecar plus the formatted artifact into
// outDir and returns the artifact path.
func (r *Renderer) Render(ctx context.Context, doc *models.Document, outDir string) (string, error) {
	const op = "Renderer.Render"

	if err := r.writeJSON(doc, outDir); err != nil {
		return "", errors.Render(op, err, "failed to write document sidecar")
	}

	switch r.format {
	case "markdown":
		return r.renderMarkdown(doc, outDir)
	case "pdf":
		return r.renderPDF(ctx, doc, outDir)
	default:
		return "", errors.Render(op, nil, fmt.Sprintf("unsupported output format: %s", r.format))
	}
}

func (r *Renderer) writeJSON(doc *models.Document, outDir string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "document.json"), data, 0644)
}

func (r *Renderer) renderMarkdown(doc *models.Document, outDir string) (string, error) {
	const op = "Renderer.renderMarkdown"

	out := filepath.Join(outDir, "document.md")
	if err := os.WriteFile(out, []byte(RenderMarkdown(doc)), 0644); err != nil {
		return "", errors.Render(op, err, "failed to write markdown artifact")
	}
	return out, nil
}

func (r *Renderer) renderPDF(ctx context.Context, doc *models.Document, outDir string) (string, error) {
	const op = "Renderer.renderPDF"

	htmlPath := filepath.Join(outDir, "document.html")
	if err := os.WriteFile(htmlPath, []byte(RenderHTML(doc)), 0644); err != nil {
		return "", errors.Render(op, err, "failed to write layout input")
	}

	out := filepath.Join(outDir, "document.pdf")
	logrus.WithFields(logrus.Fields{
		"engine": r.cfg.EnginePath,
		"output": out,
	}).Info("Rendering paginated document")

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	stderr, err := r.RunFunc(runCtx, r.cfg.EnginePath, "--quiet", "--encoding", "utf-8", htmlPath, out)
	if err != nil {
		logrus.WithError(err).WithField("stderr", string(stderr)).Error("Layout engine failed")
		return "", errors.Render(op, err, "layout engine failed")
	}

	if _, err := os.Stat(out); err != nil {
		return "", errors.Render(op, err, "layout engine produced no output")
	}

	return out, nil
}

// RenderMarkdown produces the markdown form of a document: a metadata
// header followed by one paragraph per segment in canonical order.
func RenderMarkdown(doc *models.Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	if doc.SourceURI != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", doc.SourceURI)
	}
	if doc.SourceLanguage != "" {
		fmt.Fprintf(&b, "- Language: %s → %s\n", doc.SourceLanguage, doc.TargetLanguage)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04"))
	b.WriteString("\n---\n\n")

	if doc.Summary != "" {
		b.WriteString(doc.Summary)
		b.WriteString("\n\n---\n\n")
	}

	for i, paragraph := range doc.Paragraphs() {
		if chapter, ok := doc.ChapterAt(i); ok {
			fmt.Fprintf(&b, "## %s\n\n", chapter.Title)
		}
		b.WriteString(paragraph)
		b.WriteString("\n\n")
	}

	return b.String()
}

// RenderHTML produces the layout engine's input. Pagination is the
// engine's concern; the HTML only provides paragraph structure.
func RenderHTML(doc *models.Document) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(doc.Title))
	b.WriteString("<style>\nbody { font-family: sans-serif; margin: 2em; line-height: 1.6; }\np { text-align: justify; }\n.meta { color: #666; font-size: 0.85em; }\n.summary { font-style: italic; }\n</style>\n")
	b.WriteString("</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(doc.Title))
	fmt.Fprintf(&b, "<p class=\"meta\">%s → %s · %s</p>\n",
		html.EscapeString(doc.SourceLanguage),
		html.EscapeString(doc.TargetLanguage),
		doc.GeneratedAt.Format("2006-01-02 15:04"))

	if doc.Summary != "" {
		fmt.Fprintf(&b, "<p class=\"summary\">%s</p>\n", html.EscapeString(doc.Summary))
	}

	for i, paragraph := range doc.Paragraphs() {
		if chapter, ok := doc.ChapterAt(i); ok {
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(chapter.Title))
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(paragraph))
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
