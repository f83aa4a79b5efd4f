package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// TimeRange is an explicit closed window in epoch seconds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// SearchQuery is the parameter set of a saved search and the input of the
// enrichment pipeline.
type SearchQuery struct {
	Title  string     `json:"title"`
	Time   TimeMode   `json:"time"`
	Source string     `json:"source"`
	Tags   []string   `json:"tags"`
	Query  string     `json:"query"`
	N      int        `json:"n"`
	Range  *TimeRange `json:"range,omitempty"`
}

// SavedSearch is a named, persisted set of filter parameters.
type SavedSearch struct {
	ID        int         `json:"id"`
	Title     string      `json:"title"`
	Account   string      `json:"account"`
	Order     int         `json:"order"`
	Query     SearchQuery `json:"query"`
	CreatedAt string      `json:"created_at"`
}

// DefaultSearchQuery returns the query used for fields a caller leaves out.
func DefaultSearchQuery() SearchQuery {
	return SearchQuery{
		Time:   TimeModeToday,
		Source: SourceAll,
		Tags:   []string{TagAll},
		N:      1,
	}
}

// Clone returns a deep copy of q.
func (q SearchQuery) Clone() SearchQuery {
	out := q
	if q.Tags != nil {
		out.Tags = append([]string(nil), q.Tags...)
	}
	if q.Range != nil {
		r := *q.Range
		out.Range = &r
	}
	return out
}

// Clone returns a deep copy of s.
func (s SavedSearch) Clone() SavedSearch {
	out := s
	out.Query = s.Query.Clone()
	return out
}

// SearchQueryInput carries a partially filled query. Absent fields take the
// values of DefaultSearchQuery.
type SearchQueryInput struct {
	Title  *string    `json:"title,omitempty"`
	Time   *TimeMode  `json:"time,omitempty"`
	Source *string    `json:"source,omitempty"`
	Tags   []string   `json:"tags,omitempty"`
	Query  *string    `json:"query,omitempty"`
	N      *int       `json:"n,omitempty"`
	Range  *TimeRange `json:"range,omitempty"`
}

// Resolve assembles a full query field by field.
func (in SearchQueryInput) Resolve() SearchQuery {
	q := DefaultSearchQuery()
	if in.Title != nil {
		q.Title = *in.Title
	}
	if in.Time != nil {
		q.Time = *in.Time
	}
	if in.Source != nil {
		q.Source = *in.Source
	}
	if in.Tags != nil {
		q.Tags = NormalizeTags(in.Tags)
	}
	if in.Query != nil {
		q.Query = *in.Query
	}
	if in.N != nil {
		q.N = *in.N
	}
	if in.Range != nil {
		r := *in.Range
		q.Range = &r
	}
	return q
}

// SavedSearchInput is the payload of a saved search creation.
type SavedSearchInput struct {
	Title   *string          `json:"title,omitempty"`
	Account string           `json:"account,omitempty"`
	Params  SearchQueryInput `json:"params"`
}

// SavedSearchUpdate is the closed set of fields a saved search update may
// carry. Query-level fields merge into the stored query one by one, unless
// Query is set, in which case it replaces the stored query as a whole.
type SavedSearchUpdate struct {
	// top-level
	Title     *string
	Account   *string
	Order     *int
	CreatedAt *string

	// wholesale replacement
	Query *SearchQuery

	// query-level merge
	Time      *TimeMode
	Source    *string
	Tags      []string
	TagsSet   bool
	QueryText *string
	N         *int
	Range     *TimeRange
	RangeSet  bool
}

// Empty reports whether the update carries no field at all.
func (u SavedSearchUpdate) Empty() bool {
	return u.Title == nil && u.Account == nil && u.Order == nil && u.CreatedAt == nil &&
		u.Query == nil && u.Time == nil && u.Source == nil && !u.TagsSet &&
		u.QueryText == nil && u.N == nil && !u.RangeSet
}

// Apply merges u into s.
func (s *SavedSearch) Apply(u SavedSearchUpdate) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Account != nil {
		s.Account = *u.Account
	}
	if u.Order != nil {
		s.Order = *u.Order
	}
	if u.CreatedAt != nil {
		s.CreatedAt = *u.CreatedAt
	}

	if u.Query != nil {
		s.Query = u.Query.Clone()
		return
	}

	if u.Title != nil {
		s.Query.Title = *u.Title
	}
	if u.Time != nil {
		s.Query.Time = *u.Time
	}
	if u.Source != nil {
		s.Query.Source = *u.Source
	}
	if u.TagsSet {
		s.Query.Tags = NormalizeTags(u.Tags)
	}
	if u.QueryText != nil {
		s.Query.Query = *u.QueryText
	}
	if u.N != nil {
		s.Query.N = *u.N
	}
	if u.RangeSet {
		if u.Range == nil {
			s.Query.Range = nil
		} else {
			r := *u.Range
			s.Query.Range = &r
		}
	}
}

// ParseSavedSearchUpdate decodes an update payload. Keys outside the
// recognized set are rejected.
func ParseSavedSearchUpdate(raw []byte) (SavedSearchUpdate, error) {
	var upd SavedSearchUpdate
	if !gjson.ValidBytes(raw) {
		return upd, fmt.Errorf("%w: body is not valid JSON", ErrValidation)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return upd, fmt.Errorf("%w: body must be a JSON object", ErrValidation)
	}

	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch name {
		case "title":
			upd.Title, err = stringField(name, value)
		case "account":
			upd.Account, err = stringField(name, value)
		case "created_at":
			upd.CreatedAt, err = stringField(name, value)
		case "order":
			upd.Order, err = intField(name, value)
		case "source":
			upd.Source, err = stringField(name, value)
		case "query":
			switch {
			case value.Type == gjson.String:
				upd.QueryText = new(string)
				*upd.QueryText = value.String()
			case value.IsObject():
				var q SearchQuery
				if uerr := json.Unmarshal([]byte(value.Raw), &q); uerr != nil {
					err = fmt.Errorf("%w: query: %v", ErrValidation, uerr)
					break
				}
				if !q.Time.Valid() {
					err = fmt.Errorf("%w: query.time %q is not a known mode", ErrValidation, q.Time)
					break
				}
				q.Tags = NormalizeTags(q.Tags)
				upd.Query = &q
			default:
				err = fmt.Errorf("%w: query must be a string or an object", ErrValidation)
			}
		case "time":
			var s *string
			if s, err = stringField(name, value); err == nil {
				mode := TimeMode(*s)
				if !mode.Valid() {
					err = fmt.Errorf("%w: time %q is not a known mode", ErrValidation, *s)
					break
				}
				upd.Time = &mode
			}
		case "n":
			upd.N, err = intField(name, value)
		case "tags":
			if !value.IsArray() {
				err = fmt.Errorf("%w: tags must be an array of strings", ErrValidation)
				break
			}
			tags := []string{}
			for _, t := range value.Array() {
				if t.Type != gjson.String {
					err = fmt.Errorf("%w: tags must be an array of strings", ErrValidation)
					break
				}
				tags = append(tags, t.String())
			}
			upd.Tags, upd.TagsSet = tags, true
		case "range":
			upd.RangeSet = true
			if value.Type == gjson.Null {
				break
			}
			start, end := value.Get("start"), value.Get("end")
			if !value.IsObject() || start.Type != gjson.Number || end.Type != gjson.Number {
				err = fmt.Errorf("%w: range must be {start, end} in epoch seconds", ErrValidation)
				break
			}
			upd.Range = &TimeRange{Start: start.Int(), End: end.Int()}
		default:
			err = fmt.Errorf("%w: unrecognized field %q", ErrValidation, name)
		}
		return err == nil
	})
	if err != nil {
		return SavedSearchUpdate{}, err
	}
	return upd, nil
}

func stringField(name string, v gjson.Result) (*string, error) {
	if v.Type != gjson.String {
		return nil, fmt.Errorf("%w: %s must be a string", ErrValidation, name)
	}
	s := v.String()
	return &s, nil
}

func intField(name string, v gjson.Result) (*int, error) {
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return nil, fmt.Errorf("%w: %s must be an integer", ErrValidation, name)
	}
	n := int(v.Int())
	return &n, nil
}

// NormalizeTags drops empty and duplicate tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// FormatCreatedAt renders a saved-search creation time.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
