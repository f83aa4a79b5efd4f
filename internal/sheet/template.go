package sheet

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

type templateFile struct {
	SavedSearches []templateEntry `yaml:"saved_searches"`
}

type templateEntry struct {
	ID        int           `yaml:"id"`
	Title     string        `yaml:"title"`
	Account   string        `yaml:"account"`
	Order     int           `yaml:"order"`
	CreatedAt string        `yaml:"created_at"`
	Query     templateQuery `yaml:"query"`
}

type templateQuery struct {
	Title  *string           `yaml:"title"`
	Time   *domain.TimeMode  `yaml:"time"`
	Source *string           `yaml:"source"`
	Tags   []string          `yaml:"tags"`
	Query  *string           `yaml:"query"`
	N      *int              `yaml:"n"`
	Range  *domain.TimeRange `yaml:"range"`
}

// loadTemplateFile reads saved searches from a YAML file.
func loadTemplateFile(path string) ([]domain.SavedSearch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	out := make([]domain.SavedSearch, 0, len(f.SavedSearches))
	for _, e := range f.SavedSearches {
		q := domain.SearchQueryInput{
			Title:  e.Query.Title,
			Time:   e.Query.Time,
			Source: e.Query.Source,
			Tags:   e.Query.Tags,
			Query:  e.Query.Query,
			N:      e.Query.N,
			Range:  e.Query.Range,
		}.Resolve()
		title := e.Title
		if title == "" {
			title = q.Title
		}
		if q.Title == "" {
			q.Title = title
		}
		out = append(out, domain.SavedSearch{
			ID:        e.ID,
			Title:     title,
			Account:   e.Account,
			Order:     e.Order,
			Query:     q,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}
