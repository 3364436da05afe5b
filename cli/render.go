package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/levelsai/levels/api/muna"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"gopkg.in/yaml.v3"
)

var (
	tagStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noneStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
)

// isTerminal reports whether w writes to a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML writes v as YAML using the field names of its JSON encoding
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return failure.Wrap(err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return failure.Wrap(err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return failure.Wrap(err)
	}
	return enc.Close()
}

func printPredictors(w io.Writer, predictors []muna.Predictor, format outputFormat, styled bool) error {
	switch format {
	case formatJSON:
		return writeJSON(w, predictors)
	case formatYAML:
		return writeYAML(w, predictors)
	}

	if len(predictors) == 0 {
		fmt.Fprintln(w, noneStyle.Render("No predictors found"))
		return nil
	}
	for i, p := range predictors {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if !styled {
			fmt.Fprint(w, predictorMarkdown(p))
			continue
		}
		fmt.Fprintln(w, tagStyle.Render(p.Tag)+" "+dimStyle.Render(predictorURL(p.Tag)))
		out, err := renderMarkdown(signatureMarkdown(p))
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	}
	return nil
}

// predictorMarkdown describes a predictor and its signature
func predictorMarkdown(p muna.Predictor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", p.Tag)
	b.WriteString(signatureMarkdown(p))
	return b.String()
}

func signatureMarkdown(p muna.Predictor) string {
	var b strings.Builder
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}
	writeParameters(&b, "Inputs", p.Signature.Inputs)
	writeParameters(&b, "Outputs", p.Signature.Outputs)
	return b.String()
}

func writeParameters(b *strings.Builder, title string, params []muna.Parameter) {
	if len(params) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", title)
	for _, p := range params {
		fmt.Fprintf(b, "- `%s`", p.Name)
		if p.Type != "" {
			fmt.Fprintf(b, " (%s", p.Type)
			if p.Optional {
				b.WriteString(", optional")
			}
			b.WriteString(")")
		}
		if p.Description != "" {
			fmt.Fprintf(b, ": %s", p.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// renderMarkdown renders md for the terminal
func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", failure.Wrap(err)
	}

	out, err := renderer.Render(md)
	if err != nil {
		return "", failure.Wrap(err)
	}
	return out, nil
}

// predictorURL is the predictor page on the Muna website
func predictorURL(tag string) string {
	return "https://muna.ai/" + strings.TrimPrefix(tag, "/")
}
