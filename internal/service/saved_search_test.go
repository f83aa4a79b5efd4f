package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/tests/helpers"
)

func ptr[T any](v T) *T { return &v }

func TestCreateSavedSearchDefaults(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	created, err := svc.CreateSavedSearch(ctx, "s1", domain.SavedSearchInput{
		Params: domain.SearchQueryInput{Title: ptr("Tech"), Tags: []string{"tech"}},
	})
	require.NoError(t, err)

	// The seeded template holds id 1.
	assert.Equal(t, 2, created.ID)
	assert.Equal(t, 2, created.Order)
	assert.Equal(t, "Tech", created.Title)
	assert.Equal(t, "user", created.Account)
	assert.Equal(t, domain.TimeModeToday, created.Query.Time)
	assert.Equal(t, domain.SourceAll, created.Query.Source)
	assert.Equal(t, []string{"tech"}, created.Query.Tags)
	assert.Equal(t, 1, created.Query.N)
	assert.Nil(t, created.Query.Range)
	assert.NotEmpty(t, created.CreatedAt)

	untitled, err := svc.CreateSavedSearch(ctx, "s1", domain.SavedSearchInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, untitled.ID)
	assert.Contains(t, untitled.Title, "Search ")
}

func TestCreateSavedSearchStartsAtOne(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, &helpers.StaticSheets{}, nil, nil)

	created, err := svc.CreateSavedSearch(ctx, "s1", domain.SavedSearchInput{Title: ptr("first")})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, 1, created.Order)
}

func TestCreateSavedSearchRejectsBadParams(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	mode := domain.TimeModeLastDays
	_, err := svc.CreateSavedSearch(ctx, "s1", domain.SavedSearchInput{
		Params: domain.SearchQueryInput{Time: &mode, N: ptr(1000)},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateSavedSearchMergesN(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	_, _, err := svc.GetOrCreateSession(ctx, "s1")
	require.NoError(t, err)

	upd, err := domain.ParseSavedSearchUpdate([]byte(`{"n": 5}`))
	require.NoError(t, err)
	updated, err := svc.UpdateSavedSearch(ctx, "s1", 1, upd)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 5, updated.Query.N)
	assert.Equal(t, []string{domain.TagAll}, updated.Query.Tags)

	searches, err := svc.ListSavedSearches(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, searches[0].Query.N)
}

func TestUpdateSavedSearchTitleAndWholesaleQuery(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)
	_, _, err := svc.GetOrCreateSession(ctx, "s1")
	require.NoError(t, err)

	upd, err := domain.ParseSavedSearchUpdate([]byte(`{"title": "Renamed", "order": 4}`))
	require.NoError(t, err)
	updated, err := svc.UpdateSavedSearch(ctx, "s1", 1, upd)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Renamed", updated.Query.Title)
	assert.Equal(t, 4, updated.Order)

	upd, err = domain.ParseSavedSearchUpdate([]byte(`{"query": {"title": "Q", "time": "yesterday", "tags": ["food"], "n": 1}, "n": 9}`))
	require.NoError(t, err)
	updated, err = svc.UpdateSavedSearch(ctx, "s1", 1, upd)
	require.NoError(t, err)
	assert.Equal(t, domain.TimeModeYesterday, updated.Query.Time)
	assert.Equal(t, []string{"food"}, updated.Query.Tags)
	assert.Equal(t, 1, updated.Query.N, "keys beside a full query are not merged into it")
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateSavedSearchNotFoundAndUnknownKeys(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)
	_, _, err := svc.GetOrCreateSession(ctx, "s1")
	require.NoError(t, err)

	upd, err := domain.ParseSavedSearchUpdate([]byte(`{"n": 2}`))
	require.NoError(t, err)
	updated, err := svc.UpdateSavedSearch(ctx, "s1", 42, upd)
	require.NoError(t, err)
	assert.Nil(t, updated)

	_, err = domain.ParseSavedSearchUpdate([]byte(`{"n": 2, "colour": "red"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateSavedSearch(ctx, "s1", 1, domain.SavedSearchUpdate{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteSavedSearchAndReseed(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)
	_, _, err := svc.GetOrCreateSession(ctx, "s1")
	require.NoError(t, err)

	ok, err := svc.DeleteSavedSearch(ctx, "s1", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteSavedSearch(ctx, "s1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// An empty registry heals from the template.
	searches, err := svc.ListSavedSearches(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "Today", searches[0].Title)
}

func TestRunSavedSearch(t *testing.T) {
	ctx := context.Background()
	sheets := &helpers.StaticSheets{
		Template: helpers.SystemTemplate(),
		Content:  []domain.ContentRecord{{KOLID: "a", Content: "hello"}},
		Meta:     []domain.MetadataRecord{{KOLID: "a", KOLName: "Alice"}},
	}
	svc := helpers.NewTestService(t, sheets, nil, nil)

	created, err := svc.CreateSavedSearch(ctx, "s1", domain.SavedSearchInput{
		Params: domain.SearchQueryInput{Time: ptr(domain.TimeModeNone), Query: ptr("hell")},
	})
	require.NoError(t, err)

	result, err := svc.RunSavedSearch(ctx, "s1", "t1", created.ID, true)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Alice", result.Records[0].KOLName)
	require.NotNil(t, result.Message)

	_, err = svc.RunSavedSearch(ctx, "s1", "t1", 99, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSavedSearchOperationsRequireSession(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	_, err := svc.ListSavedSearches(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	upd, err := domain.ParseSavedSearchUpdate([]byte(`{"n":2}`))
	require.NoError(t, err)
	_, err = svc.UpdateSavedSearch(ctx, "", 1, upd)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.DeleteSavedSearch(ctx, "", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateSavedSearch(ctx, "", domain.SavedSearchInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
