// Package export turns finished documents into files: plain markdown, a
// versioned JSON envelope, and atomic saves under dated filenames. It
// exports artifacts only; sessions live and die with the process.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prdlabs/prdgen"
)

// Markdown renders a document as a plain markdown file. Sections that
// never finished are annotated so a partial export is not mistaken for a
// complete one.
func Markdown(doc *prdgen.Document) string {
	var b strings.Builder

	title := doc.Title
	if title == "" {
		title = doc.Framework.DisplayName()
	}
	fmt.Fprintf(&b, "# %s\n", title)

	for _, sec := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sec.Title)
		switch sec.Status {
		case prdgen.SectionDone:
			b.WriteString(sec.Body)
			b.WriteString("\n")
		case prdgen.SectionFailed:
			if sec.Body != "" {
				b.WriteString(sec.Body)
				b.WriteString("\n\n")
			}
			b.WriteString("*Generation of this section did not finish.*\n")
		default:
			b.WriteString("*Not generated.*\n")
		}
	}
	return b.String()
}

// maxSlugLen bounds the title part of generated filenames.
const maxSlugLen = 60

// Filename derives a dated filename from a document title, e.g.
// "2026-03-14-dark-mode-rollout.md". Characters that do not belong in a
// filename are folded into dashes.
func Filename(title string, now time.Time, ext string) string {
	slug := slugify(title)
	if slug == "" {
		slug = "prd"
	}
	return fmt.Sprintf("%s-%s.%s", now.Format("2006-01-02"), slug, ext)
}

// Save writes data to path atomically: it lands in a temp file that is
// renamed over the target, creating parent directories as needed.
func Save(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case alnum:
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.TrimRight(b.String(), "-")
}
