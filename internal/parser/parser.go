package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
)

// FallbackHint is surfaced instead of an empty title list when no usable
// title survives extraction.
const FallbackHint = "暂无具体命名推荐，请参考总结内容。"

// A title must keep at least this many runes after normalization.
const minTitleRunes = 2

var (
	// Phrases that mark the start of the suggested-title section.
	titleSection = regexp.MustCompile(`(?i)推荐名称|推荐标题|Titles|建议标题|吸引人的视频标题推荐`)

	// Leading label sometimes prepended to the summary region.
	summaryLabel = regexp.MustCompile(`(?i)^(?:总结|概要|Summary)\s*[:：]?\s*`)

	// List items like "1. Title", "2、Title", "* Title" or "- Title".
	listItem   = regexp.MustCompile(`(?m)^\s*(?:\d+[.、]|[*\-•])\s*(.+)$`)
	listMarker = regexp.MustCompile(`^\s*(?:\d+[.、]|[*\-•])\s*`)

	emphasisMarks = strings.NewReplacer("**", "", "*", "", "__", "")

	markdown = goldmark.New()
)

// Result is the structured decomposition of one model answer.
type Result struct {
	SummaryText string
	SummaryHTML string
	Titles      []string

	// Degraded is set when no title-section delimiter was found and the
	// whole answer was treated as summary. Not an error.
	Degraded bool
}

// Parse splits a free-text model answer into a summary region and a list of
// suggested titles. It is total: any input yields a usable Result.
func Parse(text string) Result {
	var res Result

	summaryRegion := text
	titlesRegion := ""
	if loc := titleSection.FindStringIndex(text); loc != nil {
		summaryRegion = text[:loc[0]]
		titlesRegion = text[loc[1]:]
	} else {
		res.Degraded = true
	}

	res.SummaryText = summaryLabel.ReplaceAllString(strings.TrimSpace(summaryRegion), "")
	res.SummaryText = strings.TrimSpace(res.SummaryText)
	res.SummaryHTML = renderMarkdown(res.SummaryText)
	res.Titles = extractTitles(titlesRegion)
	return res
}

// extractTitles pulls candidate titles out of the titles region. List items
// are preferred; when none match, every non-blank line is a candidate.
func extractTitles(region string) []string {
	var candidates []string
	if matches := listItem.FindAllStringSubmatch(region, -1); len(matches) > 0 {
		for _, m := range matches {
			candidates = append(candidates, m[1])
		}
	} else {
		for _, line := range strings.Split(region, "\n") {
			if strings.TrimSpace(line) != "" {
				candidates = append(candidates, line)
			}
		}
	}

	titles := make([]string, 0, len(candidates))
	for _, c := range candidates {
		t := listMarker.ReplaceAllString(c, "")
		t = strings.TrimSpace(emphasisMarks.Replace(t))
		if utf8.RuneCountInString(t) < minTitleRunes {
			continue
		}
		titles = append(titles, t)
	}
	return titles
}

// renderMarkdown converts the summary region into display-ready HTML. On a
// converter failure the raw text is returned unrendered.
func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}
	return strings.TrimSpace(buf.String())
}
