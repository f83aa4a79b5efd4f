package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/tests/helpers"
)

func TestEnrichKeywordScenario(t *testing.T) {
	ctx := context.Background()
	t0 := time.Now().Unix()
	sheets := &helpers.StaticSheets{
		Template: helpers.SystemTemplate(),
		Content:  []domain.ContentRecord{{KOLID: "a", Timestamp: &t0, Content: "hello"}},
		Meta:     []domain.MetadataRecord{{KOLID: "a", KOLName: "Alice", Tag: "tech"}},
	}
	notifier := &recordingNotifier{}
	svc := helpers.NewTestService(t, sheets, nil, notifier)

	result, err := svc.Enrich(ctx, "s1", "t1", domain.SearchQuery{Query: "hell"}, false)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Alice", result.Records[0].KOLName)
	assert.Nil(t, result.Message)

	doc, err := svc.GetEnrichedDocument(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, result.Document, doc)
	assert.Equal(t, []domain.ThreadEventType{domain.ThreadEventDocumentEnriched}, notifier.types())
}

func TestEnrichAppendsDocument(t *testing.T) {
	ctx := context.Background()
	sheets := &helpers.StaticSheets{
		Content: []domain.ContentRecord{{KOLID: "a", Content: "x"}, {KOLID: "b", Content: "y"}},
	}
	svc := helpers.NewTestService(t, sheets, nil, nil)

	result, err := svc.Enrich(ctx, "s1", "t1", domain.SearchQuery{}, true)
	require.NoError(t, err)
	require.NotNil(t, result.Message)
	assert.Equal(t, domain.RoleBot, result.Message.Role)
	assert.Equal(t, "enriched_document", result.Message.Metadata["kind"])

	msgs, err := svc.ListMessages(ctx, "s1", "t1", nil, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, result.Document, msgs[0].Content)
	assert.EqualValues(t, 2, msgs[0].Metadata["records"])
}

func TestEnrichErrors(t *testing.T) {
	ctx := context.Background()
	sheets := &helpers.StaticSheets{Err: errors.Join(domain.ErrUpstreamUnavailable, errors.New("boom"))}
	svc := helpers.NewTestService(t, sheets, nil, nil)

	_, err := svc.Enrich(ctx, "s1", "t1", domain.SearchQuery{}, false)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	_, err = svc.Enrich(ctx, "s1", "t1", domain.SearchQuery{Time: domain.TimeModeRange}, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.GetEnrichedDocument(ctx, "s1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnrichCreatesMissingSession(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc := helpers.NewTestService(t, nil, nil, notifier)

	_, err := svc.Enrich(ctx, "fresh", "t1", domain.SearchQuery{}, false)
	require.NoError(t, err)

	session, err := svc.GetSession(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, session, "a cached document always belongs to a live session")

	_, err = svc.GetEnrichedDocument(ctx, "fresh", "t1")
	require.NoError(t, err)

	ok, err := svc.DeleteSession(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = svc.GetEnrichedDocument(ctx, "fresh", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnrichAppendPublishesMessage(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc := helpers.NewTestService(t, nil, nil, notifier)

	_, err := svc.Enrich(ctx, "s1", "t1", domain.SearchQuery{}, true)
	require.NoError(t, err)
	assert.Equal(t, []domain.ThreadEventType{
		domain.ThreadEventMessageCreated,
		domain.ThreadEventDocumentEnriched,
	}, notifier.types())
}
