package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platelog/platelog/internal/output"
)

// outputSink is stdout or a created file.
type outputSink struct {
	writer io.Writer
	close  func() error
}

var fileExtensions = map[output.Format]string{
	output.FormatJSON:     "json",
	output.FormatMarkdown: "md",
	output.FormatTable:    "txt",
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns a meal description into a file stem, for example
// "2 Eggs, Toast" becomes "2-eggs-toast".
func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// resolveOutputPath reads --out and --out-dir. It returns "" for stdout, the
// --out path as given, or stem plus the format's extension inside --out-dir.
func resolveOutputPath(cmd *cobra.Command, stem string, format output.Format) (string, error) {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return "", err
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return "", err
	}
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return "", errors.New("--out and --out-dir are mutually exclusive")
	case outDir == "":
		return outPath, nil
	}

	ext, ok := fileExtensions[format]
	if !ok {
		ext = "txt"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}
	return filepath.Join(outDir, stem+"."+ext), nil
}

func openSink(path string) (*outputSink, error) {
	if path == "" || path == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close}, nil
}

// writeRendered prints rendered plus a newline to path, or stdout when path
// is empty.
func writeRendered(path, rendered string) error {
	sink, err := openSink(path)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if rendered == "" {
		return nil
	}
	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}

func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().String("output", string(output.FormatTable), "Output format: "+formats)
	cmd.Flags().String("out", "", "Write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "Write output to a directory")
}
