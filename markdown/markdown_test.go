package markdown_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/markdown"
)

func stripANSI(s string) string {
	// Matches SGR, cursor movement, and other CSI sequences.
	re := regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	return re.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Force ANSI color output so styled elements (headings, links) produce
	// visible escape codes that we can assert against.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()

	theme := prdgen.DefaultTheme()

	t.Run("empty input returns empty string", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", markdown.Render("", 80, theme))
	})

	t.Run("plain paragraph", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("hello world", 80, theme)
		assert.Contains(t, stripANSI(result), "hello world")
	})

	t.Run("heading renders content with distinct styling", func(t *testing.T) {
		t.Parallel()
		heading := markdown.Render("# Title", 80, theme)
		paragraph := markdown.Render("Title", 80, theme)
		assert.Contains(t, stripANSI(heading), "Title")
		assert.NotEqual(t, heading, paragraph)
	})

	t.Run("level two heading is uppercased", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("## Problem Statement", 80, theme)
		assert.Contains(t, stripANSI(result), "PROBLEM STATEMENT")
	})

	t.Run("level three heading keeps its case", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("### Sub topic", 80, theme)
		assert.Contains(t, stripANSI(result), "Sub topic")
	})

	t.Run("bold text", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("**bold**", 80, theme)
		assert.Contains(t, stripANSI(result), "bold")
	})

	t.Run("italic text", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("*italic*", 80, theme)
		assert.Contains(t, stripANSI(result), "italic")
	})

	t.Run("inline code", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("`code`", 80, theme)
		assert.Contains(t, stripANSI(result), "code")
	})

	t.Run("fenced code block preserves content without reflow", func(t *testing.T) {
		t.Parallel()
		src := "```go\nfmt.Println(\"hello world\")\n```"
		result := markdown.Render(src, 20, theme)
		assert.Contains(t, stripANSI(result), `fmt.Println("hello world")`)
	})

	t.Run("fenced code block shows language label", func(t *testing.T) {
		t.Parallel()
		src := "```python\nprint('hi')\n```"
		result := markdown.Render(src, 80, theme)
		assert.Contains(t, stripANSI(result), "python")
		assert.Contains(t, stripANSI(result), "print('hi')")
	})

	t.Run("bullet list uses bullet markers", func(t *testing.T) {
		t.Parallel()
		src := "- one\n- two\n- three"
		result := stripANSI(markdown.Render(src, 80, theme))
		assert.Contains(t, result, "• one")
		assert.Contains(t, result, "• two")
		assert.Contains(t, result, "• three")
	})

	t.Run("ordered list", func(t *testing.T) {
		t.Parallel()
		src := "1. first\n2. second"
		result := stripANSI(markdown.Render(src, 80, theme))
		assert.Contains(t, result, "1. first")
		assert.Contains(t, result, "2. second")
	})

	t.Run("link shows text and URL", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("[click](https://example.com)", 80, theme)
		assert.Contains(t, stripANSI(result), "click")
		assert.Contains(t, stripANSI(result), "example.com")
	})

	t.Run("paragraph wraps to width", func(t *testing.T) {
		t.Parallel()
		long := "word1 word2 word3 word4 word5 word6 word7 word8 word9 word10 word11 word12"
		result := markdown.Render(long, 30, theme)
		assert.Contains(t, stripANSI(result), "word1")
		assert.Contains(t, stripANSI(result), "word12")
		assert.Greater(t, len(strings.Split(result, "\n")), 1)
	})

	t.Run("blockquote is prefixed with a gutter", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(markdown.Render("> quoted wisdom", 80, theme))
		assert.Contains(t, result, "│ ")
		assert.Contains(t, result, "quoted wisdom")
	})

	t.Run("multiple paragraphs separated by blank lines", func(t *testing.T) {
		t.Parallel()
		src := "first paragraph\n\nsecond paragraph"
		result := markdown.Render(src, 80, theme)
		assert.Contains(t, stripANSI(result), "first paragraph")
		assert.Contains(t, stripANSI(result), "second paragraph")
	})

	t.Run("nested list", func(t *testing.T) {
		t.Parallel()
		src := "- outer\n  - inner one\n  - inner two"
		result := markdown.Render(src, 80, theme)
		assert.Contains(t, stripANSI(result), "outer")
		assert.Contains(t, stripANSI(result), "inner one")
		assert.Contains(t, stripANSI(result), "inner two")
	})

	t.Run("list item continuation lines are indented", func(t *testing.T) {
		t.Parallel()
		src := "- this is a very long list item that should wrap and have continuation lines properly indented"
		result := stripANSI(markdown.Render(src, 30, theme))
		lines := strings.Split(result, "\n")
		assert.True(t, strings.HasPrefix(lines[0], "• "))
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				assert.True(t, strings.HasPrefix(line, "  "), "continuation line should be indented: %q", line)
			}
		}
	})

	t.Run("indented code block", func(t *testing.T) {
		t.Parallel()
		src := "paragraph\n\n    indented code\n    more code"
		result := markdown.Render(src, 80, theme)
		assert.Contains(t, stripANSI(result), "indented code")
		assert.Contains(t, stripANSI(result), "more code")
	})

	t.Run("thematic break", func(t *testing.T) {
		t.Parallel()
		src := "above\n\n---\n\nbelow"
		result := stripANSI(markdown.Render(src, 80, theme))
		assert.Contains(t, result, "above")
		assert.Contains(t, result, "---")
		assert.Contains(t, result, "below")
	})

	t.Run("width zero defaults to 80", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("hello world", 0, theme)
		assert.Contains(t, stripANSI(result), "hello world")
	})
}

func TestRenderDocument(t *testing.T) {
	t.Parallel()

	theme := prdgen.DefaultTheme()

	t.Run("complete document", func(t *testing.T) {
		t.Parallel()
		doc := &prdgen.Document{
			Framework: prdgen.FrameworkLeanMVP,
			Title:     "Dark Mode Rollout",
			Sections: []prdgen.Section{
				{Title: "Problem Statement", Body: "Users squint at night.", Status: prdgen.SectionDone},
				{Title: "MVP Scope", Body: "A toggle in **settings**.", Status: prdgen.SectionDone},
			},
			Completeness: prdgen.DocumentComplete,
		}

		result := stripANSI(markdown.RenderDocument(doc, 80, theme))
		assert.Contains(t, result, "Dark Mode Rollout")
		assert.Contains(t, result, "PROBLEM STATEMENT")
		assert.Contains(t, result, "MVP SCOPE")
		assert.Contains(t, result, "Users squint at night.")
		assert.Contains(t, result, "A toggle in settings.")
	})

	t.Run("section order follows the document", func(t *testing.T) {
		t.Parallel()
		doc := &prdgen.Document{
			Framework: prdgen.FrameworkLeanMVP,
			Title:     "T",
			Sections: []prdgen.Section{
				{Title: "First", Body: "a", Status: prdgen.SectionDone},
				{Title: "Second", Body: "b", Status: prdgen.SectionDone},
			},
		}

		result := stripANSI(markdown.RenderDocument(doc, 80, theme))
		assert.Less(t, strings.Index(result, "FIRST"), strings.Index(result, "SECOND"))
	})

	t.Run("pending section shows placeholder", func(t *testing.T) {
		t.Parallel()
		doc := &prdgen.Document{
			Framework: prdgen.FrameworkLeanMVP,
			Title:     "T",
			Sections: []prdgen.Section{
				{Title: "Problem Statement", Status: prdgen.SectionPending},
			},
		}

		result := stripANSI(markdown.RenderDocument(doc, 80, theme))
		assert.Contains(t, result, "…")
	})

	t.Run("streaming section shows partial body", func(t *testing.T) {
		t.Parallel()
		doc := &prdgen.Document{
			Framework: prdgen.FrameworkLeanMVP,
			Title:     "T",
			Sections: []prdgen.Section{
				{Title: "Problem Statement", Body: "So far so", Status: prdgen.SectionStreaming},
			},
		}

		result := stripANSI(markdown.RenderDocument(doc, 80, theme))
		assert.Contains(t, result, "So far so")
	})

	t.Run("failed section keeps partial content and is marked", func(t *testing.T) {
		t.Parallel()
		doc := &prdgen.Document{
			Framework: prdgen.FrameworkLeanMVP,
			Title:     "T",
			Sections: []prdgen.Section{
				{Title: "Problem Statement", Body: "Partial words", Status: prdgen.SectionFailed},
			},
			Completeness: prdgen.DocumentPartial,
		}

		result := stripANSI(markdown.RenderDocument(doc, 80, theme))
		assert.Contains(t, result, "Partial words")
		assert.Contains(t, result, "generation failed")
	})

	t.Run("missing title falls back to the framework name", func(t *testing.T) {
		t.Parallel()
		doc := &prdgen.Document{
			Framework: prdgen.FrameworkBigBet,
			Sections:  []prdgen.Section{{Title: "Press Release", Status: prdgen.SectionPending}},
		}

		result := stripANSI(markdown.RenderDocument(doc, 80, theme))
		assert.Contains(t, result, "Big Bet PR/FAQ")
	})
}
