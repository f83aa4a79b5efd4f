package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/tests/helpers"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.ThreadEvent
}

func (n *recordingNotifier) Publish(event domain.ThreadEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []domain.ThreadEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.ThreadEventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

func TestConcurrentAppendsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AppendMessage(ctx, "s1", "t1", domain.RoleUser, fmt.Sprintf("m%d", i), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := svc.ListMessages(ctx, "s1", "t1", nil, 0)
	require.NoError(t, err)
	require.Len(t, msgs, n)

	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	sort.Ints(ids)
	for i := range ids {
		assert.Equal(t, i, ids[i])
	}
}

func TestAppendUpdateList(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	msg, err := svc.AppendMessage(ctx, "s1", "t1", domain.RoleUser, "hello", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, 0, msg.ID)

	content := "x"
	ok, err := svc.UpdateMessage(ctx, "s1", "t1", 0, domain.MessagePatch{Content: &content})
	require.NoError(t, err)
	assert.True(t, ok)

	msgs, err := svc.ListMessages(ctx, "s1", "t1", nil, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "x", msgs[0].Content)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "v", msgs[0].Metadata["k"])

	ok, err = svc.UpdateMessage(ctx, "s1", "t1", 9, domain.MessagePatch{Content: &content})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.UpdateMessage(ctx, "missing", "t1", 0, domain.MessagePatch{Content: &content})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListSinceThenLimit(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	for i := 0; i < 6; i++ {
		_, err := svc.AppendMessage(ctx, "s1", "t1", domain.RoleUser, fmt.Sprint(i), nil)
		require.NoError(t, err)
	}

	since := 1
	msgs, err := svc.ListMessages(ctx, "s1", "t1", &since, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, 4, msgs[0].ID)
	assert.Equal(t, 5, msgs[1].ID)

	msgs, err = svc.ListMessages(ctx, "s1", "t1", &since, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	msgs, err = svc.ListMessages(ctx, "s1", "t1", nil, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, 3, msgs[0].ID)

	msgs, err = svc.ListMessages(ctx, "nobody", "t1", nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestDeletedIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.AppendMessage(ctx, "s1", "t1", domain.RoleBot, "m", nil)
		require.NoError(t, err)
	}
	ok, err := svc.DeleteMessage(ctx, "s1", "t1", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteMessage(ctx, "s1", "t1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	msg, err := svc.AppendMessage(ctx, "s1", "t1", domain.RoleBot, "m", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, msg.ID)
}

func TestClearThread(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc := helpers.NewTestService(t, nil, nil, notifier)

	ok, err := svc.ClearThread(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.AppendMessage(ctx, "s1", "t1", domain.RoleUser, "m", nil)
	require.NoError(t, err)

	ok, err = svc.ClearThread(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	msgs, err := svc.ListMessages(ctx, "s1", "t1", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.Equal(t, []domain.ThreadEventType{
		domain.ThreadEventMessageCreated,
		domain.ThreadEventThreadCleared,
	}, notifier.types())
}

func TestMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc := helpers.NewTestService(t, nil, nil, nil)

	_, err := svc.AppendMessage(ctx, "s1", "t-1", domain.RoleUser, "m", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.AppendMessage(ctx, "s1", "t1", domain.Role("admin"), "m", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.AppendMessage(ctx, "", "t1", domain.RoleUser, "m", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	role := domain.Role("system")
	_, err = svc.UpdateMessage(ctx, "s1", "t1", 0, domain.MessagePatch{Role: &role})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
