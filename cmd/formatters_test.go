package cmd

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestTableAlignsColouredHeader(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	err := Table(&buf, []string{"Name", "Description"}, [][]string{
		{"buildAppsByIdByPlatform", "Start a build"},
		{"me", "Get a User's profile"},
	})
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %q", buf.String())
	}
	if !ansi.MatchString(lines[0]) {
		t.Errorf("header should be coloured: %q", lines[0])
	}

	header := ansi.ReplaceAllString(lines[0], "")
	want := strings.Index(lines[2], "Start a build")
	if got := strings.Index(header, "Description"); got != want {
		t.Errorf("header column at %d, rows at %d\n%s", got, want, ansi.ReplaceAllString(buf.String(), ""))
	}
	if ansi.MatchString(strings.Join(lines[1:], "\n")) {
		t.Error("only the header should carry escape codes")
	}
}

func TestRenderFormats(t *testing.T) {
	data := map[string]any{"id": 1}
	tests := []struct {
		format string
		want   string
	}{
		{"table", "{\n  \"id\": 1\n}\n"},
		{"json", "{\n  \"id\": 1\n}\n"},
		{"yaml", "id: 1\n"},
		{"bogus", "{\n  \"id\": 1\n}\n"},
	}
	for _, tt := range tests {
		got, err := NewOutputWriter(tt.format).Render(data)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", tt.format, err)
		}
		if string(got) != tt.want {
			t.Errorf("Render(%s) = %q, want %q", tt.format, got, tt.want)
		}
	}

	if got, _ := NewOutputWriter("table").Render("plain"); string(got) != "plain\n" {
		t.Errorf("table strings should render as text, got %q", got)
	}
}
