package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

func ts(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

// 2024-03-10 15:30:00 UTC+8
var testNow = time.Date(2024, 3, 10, 15, 30, 0, 0, Zone)

func TestResolveWindow(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, Zone)

	w, ok := ResolveWindow(domain.SearchQuery{Time: domain.TimeModeYesterday}, testNow)
	require.True(t, ok)
	assert.Equal(t, today.AddDate(0, 0, -1).Unix(), w.Start)
	assert.Equal(t, today.Add(-time.Second).Unix(), w.End)

	w, ok = ResolveWindow(domain.SearchQuery{Time: domain.TimeModeToday}, testNow)
	require.True(t, ok)
	assert.Equal(t, today.Unix(), w.Start)
	assert.Equal(t, testNow.Unix(), w.End)

	w, ok = ResolveWindow(domain.SearchQuery{Time: domain.TimeModeLastDays, N: 3}, testNow)
	require.True(t, ok)
	assert.Equal(t, today.AddDate(0, 0, -2).Unix(), w.Start)

	w, ok = ResolveWindow(domain.SearchQuery{Time: domain.TimeModeLastDays, N: 0}, testNow)
	require.True(t, ok)
	assert.Equal(t, today.Unix(), w.Start, "n below 1 counts as today only")

	_, ok = ResolveWindow(domain.SearchQuery{Time: domain.TimeModeNone}, testNow)
	assert.False(t, ok)

	w, ok = ResolveWindow(domain.SearchQuery{Time: domain.TimeModeRange, Range: &domain.TimeRange{Start: 5, End: 9}}, testNow)
	require.True(t, ok)
	assert.Equal(t, Window{Start: 5, End: 9}, w)
}

func TestResolveWindowUsesUTCPlus8Calendar(t *testing.T) {
	// 17:00 UTC on March 9 is already March 10 in UTC+8.
	now := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	w, ok := ResolveWindow(domain.SearchQuery{Time: domain.TimeModeToday}, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC).Unix(), w.Start)
}

func TestFilterByTimeBoundariesAndIdempotence(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, Zone)
	records := []domain.ContentRecord{
		{DocID: "start", Timestamp: ts(today)},
		{DocID: "before", Timestamp: ts(today.Add(-time.Second))},
		{DocID: "now", Timestamp: ts(testNow)},
		{DocID: "future", Timestamp: ts(testNow.Add(time.Second))},
		{DocID: "missing"},
	}

	w, _ := ResolveWindow(domain.SearchQuery{Time: domain.TimeModeToday}, testNow)
	once := FilterByTime(records, w)
	require.Len(t, once, 2)
	assert.Equal(t, "start", once[0].DocID)
	assert.Equal(t, "now", once[1].DocID)

	twice := FilterByTime(once, w)
	assert.Equal(t, once, twice)
}

func TestFilterByTagsAll(t *testing.T) {
	records := []domain.ContentRecord{{KOLID: "a"}, {KOLID: "b"}}
	meta := []domain.MetadataRecord{{KOLID: "a", Tag: "tech"}}

	assert.Equal(t, records, FilterByTags(records, meta, []string{domain.TagAll}))
	assert.Equal(t, records, FilterByTags(records, meta, []string{"tech", domain.TagAll}))
	assert.Equal(t, records, FilterByTags(records, meta, nil))

	got := FilterByTags(records, meta, []string{"tech"})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].KOLID)

	assert.Empty(t, FilterByTags(records, meta, []string{"food"}))
}

func TestFilterBySourceAndKeyword(t *testing.T) {
	records := []domain.ContentRecord{
		{DocID: "1", Source: "Facebook", Content: "Hello World"},
		{DocID: "2", Source: "threads", Content: "goodbye"},
	}

	got := FilterBySource(records, "facebook")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].DocID)
	assert.Len(t, FilterBySource(records, domain.SourceAll), 2)

	got = FilterByKeyword(records, "WORLD")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].DocID)
	assert.Len(t, FilterByKeyword(records, "  "), 2)
}

func TestJoinAndSort(t *testing.T) {
	records := []domain.ContentRecord{
		{KOLID: "a", DocID: "old", Timestamp: ts(testNow.Add(-time.Hour))},
		{KOLID: "x", DocID: "none"},
		{KOLID: "a", DocID: "new", Timestamp: ts(testNow)},
	}
	meta := []domain.MetadataRecord{{KOLID: "a", KOLName: "Alice"}, {KOLID: "a", KOLName: "Dup"}}

	joined := Join(records, meta)
	SortByTimestamp(joined)

	require.Len(t, joined, 3)
	assert.Equal(t, "new", joined[0].DocID)
	assert.Equal(t, "old", joined[1].DocID)
	assert.Equal(t, "none", joined[2].DocID)
	assert.Equal(t, "Alice", joined[0].Meta.KOLName)
	assert.Nil(t, joined[2].Meta)
}

func TestRunKeywordScenario(t *testing.T) {
	content := []domain.ContentRecord{
		{KOLID: "a", Timestamp: ts(testNow), Content: "hello"},
		{KOLID: "b", Timestamp: ts(testNow), Content: "other"},
	}
	meta := []domain.MetadataRecord{{KOLID: "a", KOLName: "Alice", Tag: "tech"}}

	records, doc := Run(content, meta, domain.SearchQuery{Query: "hell"}, testNow)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0].KOLName)
	assert.Equal(t, 1, records[0].Index)
	assert.Equal(t, "2024-03-10 15:30:00", records[0].CreatedTime)
	assert.Contains(t, doc, "| 1 | Alice |")
}

func TestRunEmptyInputs(t *testing.T) {
	records, doc := Run(nil, nil, domain.DefaultSearchQuery(), testNow)
	assert.Empty(t, records)
	assert.Equal(t, 2, strings.Count(doc, "\n"), "header and separator only")
}

func TestRunKeepsUntimedRecordsWithoutTimeFilter(t *testing.T) {
	content := []domain.ContentRecord{{KOLID: "z", Content: "no time"}}
	records, _ := Run(content, nil, domain.SearchQuery{}, testNow)
	require.Len(t, records, 1)
	assert.Equal(t, "z", records[0].KOLName)
	assert.Empty(t, records[0].CreatedTime)

	records, _ = Run(content, nil, domain.SearchQuery{Time: domain.TimeModeToday}, testNow)
	assert.Empty(t, records)
}

func TestRenderEscapesAndTruncates(t *testing.T) {
	long := strings.Repeat("好", MaxContentLength+5)
	doc := Render([]domain.EnrichedRecord{
		{Index: 1, KOLName: "A|B", Content: "line1\nline2 | pipe"},
		{Index: 2, KOLName: "C", Content: long},
	})
	lines := strings.Split(strings.TrimSuffix(doc, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| index | kol_name | post_url | content | reaction_count | share_count | created_time |", lines[0])
	assert.Contains(t, lines[2], `A\|B`)
	assert.Contains(t, lines[2], `line1 line2 \| pipe`)
	assert.Contains(t, lines[3], strings.Repeat("好", MaxContentLength)+"...")
	assert.NotContains(t, lines[3], strings.Repeat("好", MaxContentLength+1))
}

func TestTruncateGraphemes(t *testing.T) {
	flag := "🇹🇼"
	assert.Equal(t, flag+flag+"...", Truncate(strings.Repeat(flag, 3), 2))
	assert.Equal(t, "abc", Truncate("abc", 3))
}
