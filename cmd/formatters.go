package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"pgbuild/pkg/actions"

	atottoclipboard "github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatTable is the default human-readable format
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// OutputWriter handles structured output formatting
type OutputWriter struct {
	format OutputFormat
	writer io.Writer
}

// NewOutputWriter creates a new output writer with the specified format
func NewOutputWriter(format string) *OutputWriter {
	f := OutputFormat(strings.ToLower(format))
	if f != FormatJSON && f != FormatYAML {
		f = FormatTable
	}
	return &OutputWriter{
		format: f,
		writer: os.Stdout,
	}
}

// SetWriter sets a custom writer (used in tests)
func (w *OutputWriter) SetWriter(writer io.Writer) {
	w.writer = writer
}

func (w *OutputWriter) GetFormat() OutputFormat {
	return w.format
}

// IsStructured returns true if the format is JSON or YAML
func (w *OutputWriter) IsStructured() bool {
	return w.format == FormatJSON || w.format == FormatYAML
}

// Render encodes data in the configured format. The table format renders
// response documents as indented JSON, the closest plain-text view of an
// arbitrary API document.
func (w *OutputWriter) Render(data interface{}) ([]byte, error) {
	switch w.format {
	case FormatYAML:
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		if s, ok := data.(string); ok && w.format == FormatTable {
			return []byte(s + "\n"), nil
		}
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
}

// Write outputs the data in the configured format
func (w *OutputWriter) Write(data interface{}) error {
	b, err := w.Render(data)
	if err != nil {
		return err
	}
	return w.WriteBytes(b)
}

// WriteBytes writes raw bytes to output
func (w *OutputWriter) WriteBytes(data []byte) error {
	_, err := w.writer.Write(data)
	return err
}

// ValidFormats returns a list of valid output formats
func ValidFormats() []string {
	return []string{string(FormatTable), string(FormatJSON), string(FormatYAML)}
}

// Table writes headers and rows aligned with a tabwriter. The header is
// coloured after alignment so escape codes do not skew column widths.
func Table(w io.Writer, headers []string, rows [][]string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	header, rest, _ := strings.Cut(buf.String(), "\n")
	if _, err := color.New(color.Bold).Fprintln(w, header); err != nil {
		return err
	}
	_, err := io.WriteString(w, rest)
	return err
}

func printActions(w io.Writer, list []actions.Action) error {
	output := NewOutputWriter(outputFormat)
	output.SetWriter(w)
	if output.IsStructured() {
		return output.Write(list)
	}

	rows := make([][]string, 0, len(list))
	for _, a := range list {
		rows = append(rows, []string{a.Name, a.Description, a.URL})
	}

	fmt.Fprintln(w, "List of actions:")
	fmt.Fprintln(w)
	return Table(w, []string{"Name", "Description", "Url"}, rows)
}

func printValidations(w io.Writer, vs []actions.Validation) {
	output := NewOutputWriter(outputFormat)
	output.SetWriter(w)
	if output.IsStructured() {
		_ = output.Write(map[string]interface{}{"validation_errors": vs})
		return
	}

	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, []string{v.Action, v.Message})
	}

	color.New(color.FgRed, color.Bold).Fprintln(w, "Validation errors occurred:")
	fmt.Fprintln(w)
	_ = Table(w, []string{"Action", "Message"}, rows)
}

// PrintDryRunAction prints a dry-run action with details in key order
func PrintDryRunAction(w io.Writer, action string, details map[string]string) {
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = yellow.Fprintf(w, "[DRY-RUN] Would %s:\n", action)
	for _, key := range keys {
		_, _ = cyan.Fprintf(w, "  %s: ", key)
		fmt.Fprintln(w, details[key])
	}
}

// CopyToClipboard writes content to the clipboard as plain text.
func CopyToClipboard(clipboardContent string) error {
	return atottoclipboard.WriteAll(clipboardContent)
}

// ShouldCopyOutput checks if the --copy flag was set on the command.
// It first checks the command's local flags, then falls back to the global flag.
func ShouldCopyOutput(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("copy") {
		copyFlag, _ := cmd.Flags().GetBool("copy")
		return copyFlag
	}
	return copyToClipboardFlag
}
