// Package convert runs the full import pipeline: read a bank export,
// detect its format, convert rows to canonical transactions, drop
// duplicates against reference data, and write the output CSV.
package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/dedupe"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/export"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/importer"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// ErrNotCSV is returned when the input path does not name a .csv file.
var ErrNotCSV = errors.New("input must be a .csv file")

// Options control a single pipeline run.
type Options struct {
	// PreviousPath is an earlier output file used as the dedupe
	// reference. Empty means no file-based dedupe.
	PreviousPath string
	// Reference holds remote transactions to dedupe against, in
	// addition to PreviousPath.
	Reference []model.Transaction
	// Policy selects the dedupe matching rule.
	Policy dedupe.Policy
	// OutputDir overrides the input file's directory as the output
	// location.
	OutputDir string
	// ForceToday stamps the output filename with today's date instead
	// of the date embedded in the input filename.
	ForceToday bool
	// NoOutput skips writing the output file; the pipeline still
	// parses, converts, and dedupes.
	NoOutput bool
}

// Result reports what a pipeline run produced.
type Result struct {
	Format       importer.Format
	Converted    int
	Duplicates   int
	Transactions []model.Transaction
	OutputPath   string
}

// Run executes the pipeline on one input file.
func Run(inputPath string, opts Options) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(inputPath), ".csv") {
		return nil, fmt.Errorf("%s: %w", inputPath, ErrNotCSV)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	table, err := importer.ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	format, err := importer.Detect(table.Columns)
	if err != nil {
		return nil, err
	}
	slog.Debug("detected format", "file", filepath.Base(inputPath), "format", format.String())

	txns, err := importer.ConverterFor(format).Convert(table)
	if err != nil {
		return nil, err
	}
	converted := len(txns)

	reference := append([]model.Transaction(nil), opts.Reference...)
	if opts.PreviousPath != "" {
		previous, err := readPrevious(opts.PreviousPath)
		if err != nil {
			return nil, err
		}
		reference = append(reference, previous...)
	}
	if len(reference) > 0 {
		txns = dedupe.ExcludeExisting(txns, reference, opts.Policy)
	}

	result := &Result{
		Format:       format,
		Converted:    converted,
		Duplicates:   converted - len(txns),
		Transactions: txns,
	}
	slog.Info("converted file",
		"file", filepath.Base(inputPath),
		"format", format.String(),
		"rows", converted,
		"duplicates", result.Duplicates)

	if opts.NoOutput {
		return result, nil
	}

	// Revolut exports are cumulative, so their filenames carry no useful
	// statement date; stamp those with today regardless.
	forceToday := opts.ForceToday || format == importer.FormatRevolut
	result.OutputPath = export.OutputPath(inputPath, opts.OutputDir, forceToday)
	out, err := os.Create(result.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	if err := export.Write(out, txns); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return result, nil
}

func readPrevious(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening previous output: %w", err)
	}
	defer f.Close()

	txns, err := export.ReadPrevious(f)
	if err != nil {
		return nil, fmt.Errorf("reading previous output %s: %w", path, err)
	}
	return txns, nil
}
