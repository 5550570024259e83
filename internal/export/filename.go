package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

var (
	isoDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	dmyDatePattern = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`)
	trailingDate   = regexp.MustCompile(`(_)?(\d{4}-\d{2}-\d{2}|\d{2}-\d{2}-\d{4})$`)
)

// DateFromFilename extracts the first YYYY-MM-DD or DD-MM-YYYY date found
// in a filename, normalized to YYYY-MM-DD. Returns "" when none is present.
func DateFromFilename(name string) string {
	if m := isoDatePattern.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := dmyDatePattern.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
	}
	return ""
}

// OutputPath builds the output path "{stem}_{YYYY-MM-DD}_ynab.csv" next to
// the input (or in outputDir when given). The date is lifted from the input
// filename when present unless forceToday is set; any trailing date already
// in the stem is dropped first.
func OutputPath(inputPath, outputDir string, forceToday bool) string {
	return outputPathAt(inputPath, outputDir, forceToday, time.Now())
}

func outputPathAt(inputPath, outputDir string, forceToday bool, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	base := trailingDate.ReplaceAllString(stem, "")

	date := ""
	if !forceToday {
		date = DateFromFilename(stem)
	}
	if date == "" {
		date = now.Format(model.DateFormat)
	}

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_ynab.csv", base, date))
}
