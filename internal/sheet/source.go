package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/pipeline"
)

// open returns a reader for a file path or an http(s) URL.
func open(ctx context.Context, client *http.Client, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d", domain.ErrUpstreamUnavailable, location, resp.StatusCode)
	}
	return resp.Body, nil
}

// row is a CSV record keyed by its normalized header.
type row map[string]string

func (r row) str(name string) string {
	return strings.TrimSpace(r[name])
}

func (r row) int(name string) int64 {
	s := strings.ReplaceAll(r.str(name), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// readCSV decodes a CSV export whose first row names the columns.
func readCSV(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}

	var rows []row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		r := make(row, len(header))
		for i, name := range header {
			if i < len(rec) {
				r[name] = rec[i]
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func parseMetadata(rows []row) []domain.MetadataRecord {
	out := make([]domain.MetadataRecord, 0, len(rows))
	for _, r := range rows {
		id := r.str("kol_id")
		if id == "" {
			continue
		}
		out = append(out, domain.MetadataRecord{
			KOLID:   id,
			KOLName: r.str("kol_name"),
			Tag:     r.str("tag"),
		})
	}
	return out
}

func parseContent(rows []row) []domain.ContentRecord {
	out := make([]domain.ContentRecord, 0, len(rows))
	for _, r := range rows {
		id := r.str("kol_id")
		if id == "" {
			continue
		}
		out = append(out, domain.ContentRecord{
			KOLID:         id,
			DocID:         r.str("doc_id"),
			PostURL:       r.str("post_url"),
			Content:       r["content"],
			ReactionCount: r.int("reaction_count"),
			ShareCount:    r.int("share_count"),
			Timestamp:     parseTimestamp(r.str("timestamp")),
			Source:        r.str("source"),
		})
	}
	return out
}

// parseTimestamp accepts epoch seconds, RFC 3339, or a UTC+8 civil time.
func parseTimestamp(s string) *int64 {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		n := t.Unix()
		return &n
	}
	for _, layout := range []string{time.DateTime, "2006/01/02 15:04:05", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, pipeline.Zone); err == nil {
			n := t.Unix()
			return &n
		}
	}
	return nil
}

func parseSavedSearches(rows []row) []domain.SavedSearch {
	out := make([]domain.SavedSearch, 0, len(rows))
	for _, r := range rows {
		title := r.str("title")
		if title == "" {
			continue
		}
		q := domain.DefaultSearchQuery()
		q.Title = title
		if v := r.str("time"); v != "" {
			q.Time = domain.TimeMode(v)
		}
		if v := r.str("source"); v != "" {
			q.Source = v
		}
		if v := r.str("tags"); v != "" {
			q.Tags = splitTags(v)
		}
		q.Query = r.str("query")
		if v := r.int("n"); v > 0 {
			q.N = int(v)
		}
		out = append(out, domain.SavedSearch{
			ID:        int(r.int("id")),
			Title:     title,
			Account:   r.str("account"),
			Order:     int(r.int("order")),
			Query:     q,
			CreatedAt: r.str("created_at"),
		})
	}
	return out
}

func splitTags(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '、' })
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return domain.NormalizeTags(parts)
}
