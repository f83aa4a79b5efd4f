package pipeline

import (
	"strconv"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// MaxContentLength is the number of grapheme clusters of content kept in a
// rendered row.
const MaxContentLength = 100

var header = []string{"index", "kol_name", "post_url", "content", "reaction_count", "share_count", "created_time"}

// Project maps joined records to the presentation schema. Indexes start at 1.
func Project(records []domain.JoinedRecord) []domain.EnrichedRecord {
	out := make([]domain.EnrichedRecord, len(records))
	for i, r := range records {
		name := r.KOLID
		if r.Meta != nil && r.Meta.KOLName != "" {
			name = r.Meta.KOLName
		}
		out[i] = domain.EnrichedRecord{
			Index:         i + 1,
			KOLName:       name,
			PostURL:       r.PostURL,
			Content:       r.Content,
			ReactionCount: r.ReactionCount,
			ShareCount:    r.ShareCount,
			CreatedTime:   FormatTime(r.Timestamp),
		}
	}
	return out
}

// Render produces a pipe table with a header row, a separator row and one
// row per record.
func Render(records []domain.EnrichedRecord) string {
	var b strings.Builder
	writeRow(&b, header)

	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)

	for _, r := range records {
		writeRow(&b, []string{
			strconv.Itoa(r.Index),
			cell(r.KOLName),
			cell(r.PostURL),
			cell(Truncate(flatten(r.Content), MaxContentLength)),
			strconv.FormatInt(r.ReactionCount, 10),
			strconv.FormatInt(r.ShareCount, 10),
			r.CreatedTime,
		})
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

var flattenReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flatten(s string) string {
	return strings.TrimSpace(flattenReplacer.Replace(s))
}

func cell(s string) string {
	return strings.ReplaceAll(flatten(s), "|", `\|`)
}

// Truncate cuts s to limit grapheme clusters and marks the cut with "...".
func Truncate(s string, limit int) string {
	if uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < limit && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	b.WriteString("...")
	return b.String()
}
