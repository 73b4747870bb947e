package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finprep/finprep/internal/catalog"
	"github.com/finprep/finprep/internal/kv"
)

func newTestService(t *testing.T) (*Service, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	svc := NewService(store, catalog.Default())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, store
}

func results(pairs ...any) []PracticeResult {
	var out []PracticeResult
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, PracticeResult{ProblemID: pairs[i].(string), Correct: pairs[i+1].(bool)})
	}
	return out
}

func TestLoad_FreshUserHasAllTopics(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Load(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", p.UserID)
	for _, topic := range catalog.AllTopics() {
		tp := p.Topics[topic]
		require.NotNil(t, tp, topic)
		assert.Empty(t, tp.Completed)
		assert.Zero(t, tp.Accuracy)
	}
}

func TestUpdateTopicProgress_AccuracyIsReplaced(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	topic := catalog.TopicTimeValue

	tp, err := svc.UpdateTopicProgress(ctx, "u1", topic, results("tvm-1", true, "tvm-2", true, "tvm-3", true, "tvm-4", true))
	require.NoError(t, err)
	assert.Equal(t, 1.0, tp.Accuracy)

	tp, err = svc.UpdateTopicProgress(ctx, "u1", topic, results("tvm-5", false, "tvm-6", false, "tvm-1", false, "tvm-2", false))
	require.NoError(t, err)
	assert.Equal(t, 0.0, tp.Accuracy, "latest batch replaces earlier accuracy")
	assert.ElementsMatch(t, []string{"tvm-1", "tvm-2", "tvm-3", "tvm-4"}, tp.Completed)

	assert.Equal(t, 8, tp.Attempts)
	assert.Equal(t, 4, tp.Correct)
	assert.InDelta(t, 0.5, tp.LifetimeAccuracy(), 1e-9)
}

func TestUpdateTopicProgress_SmallerBatchReplacesAccuracy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	topic := catalog.TopicPortfolio

	tp, err := svc.UpdateTopicProgress(ctx, "u1", topic, results("port-1", true, "port-2", true, "port-3", false))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, tp.Accuracy, 1e-9)
	assert.Equal(t, []string{"port-1", "port-2"}, tp.Completed)

	tp, err = svc.UpdateTopicProgress(ctx, "u1", topic, results("port-4", false))
	require.NoError(t, err)
	assert.Equal(t, 0.0, tp.Accuracy)
	assert.Equal(t, []string{"port-1", "port-2"}, tp.Completed)
}

func TestUpdateTopicProgress_BatchAccuracy(t *testing.T) {
	svc, _ := newTestService(t)
	tp, err := svc.UpdateTopicProgress(context.Background(), "u1", catalog.TopicBonds,
		results("bond-1", true, "bond-2", false, "bond-3", true, "bond-4", false))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tp.Accuracy, 1e-9)
	assert.Equal(t, []string{"bond-1", "bond-3"}, tp.Completed)
}

func TestUpdateTopicProgress_CompletedIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	topic := catalog.TopicPortfolio

	for range 3 {
		_, err := svc.UpdateTopicProgress(ctx, "u1", topic, results("port-1", true, "port-1", true))
		require.NoError(t, err)
	}

	p, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"port-1"}, p.Topics[topic].Completed)
}

func TestUpdateTopicProgress_EmptyBatchNoWrite(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	topic := catalog.TopicDerivatives

	_, err := svc.UpdateTopicProgress(ctx, "u1", topic, results("deriv-1", true, "deriv-2", false))
	require.NoError(t, err)
	before, err := store.Get(ctx, kv.ProgressKey("u1"))
	require.NoError(t, err)

	tp, err := svc.UpdateTopicProgress(ctx, "u1", topic, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tp.Accuracy, 1e-9)
	assert.Equal(t, []string{"deriv-1"}, tp.Completed)

	after, err := store.Get(ctx, kv.ProgressKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateTopicProgress_EmptyBatchForNewUserWritesNothing(t *testing.T) {
	svc, store := newTestService(t)
	tp, err := svc.UpdateTopicProgress(context.Background(), "ghost", catalog.TopicBonds, []PracticeResult{})
	require.NoError(t, err)
	assert.Empty(t, tp.Completed)
	assert.Zero(t, store.Len())
}

func TestUpdateTopicProgress_IgnoresForeignIDs(t *testing.T) {
	svc, _ := newTestService(t)
	tp, err := svc.UpdateTopicProgress(context.Background(), "u1", catalog.TopicBonds,
		results("bond-2", true, "tvm-1", true, "nope-9", true))
	require.NoError(t, err)

	assert.Equal(t, []string{"bond-2"}, tp.Completed)
	assert.Equal(t, 1.0, tp.Accuracy, "foreign ids still count toward accuracy")
}

func TestUpdateTopicProgress_OtherTopicsUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.UpdateTopicProgress(ctx, "u1", catalog.TopicBonds, results("bond-1", true))
	require.NoError(t, err)

	p, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	for _, topic := range catalog.AllTopics() {
		if topic == catalog.TopicBonds {
			continue
		}
		assert.Empty(t, p.Topics[topic].Completed, topic)
		assert.Zero(t, p.Topics[topic].Attempts, topic)
	}
}

func TestUpdateTopicProgress_UnknownTopic(t *testing.T) {
	svc, store := newTestService(t)
	_, err := svc.UpdateTopicProgress(context.Background(), "u1", catalog.Topic("astrology"), results("x", true))
	assert.ErrorIs(t, err, ErrUnknownTopic)
	assert.Zero(t, store.Len())
}

func TestUpdateTopicProgress_StoreUnavailable(t *testing.T) {
	svc, store := newTestService(t)
	require.NoError(t, store.Close())

	_, err := svc.UpdateTopicProgress(context.Background(), "u1", catalog.TopicBonds, results("bond-1", true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, kv.ErrUnavailable), "got %v", err)
}

func TestUpdateTopicProgress_ConcurrentUpdatesLoseNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	topic := catalog.TopicStatements
	ids := catalog.Default().ByTopic(topic)

	var wg sync.WaitGroup
	for _, p := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.UpdateTopicProgress(ctx, "u1", topic, results(id, true))
			assert.NoError(t, err)
		}(p.ID)
	}
	wg.Wait()

	p, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, p.Topics[topic].Completed, len(ids))
	assert.Equal(t, len(ids), p.Topics[topic].Attempts)
}

func TestUpdateTopicProgress_ConcurrentUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for _, id := range []string{"tvm-1", "tvm-2", "tvm-3"} {
				_, err := svc.UpdateTopicProgress(ctx, user, catalog.TopicTimeValue, results(id, true))
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()

	for i := range 8 {
		p, err := svc.Load(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		assert.Len(t, p.Topics[catalog.TopicTimeValue].Completed, 3)
	}
	assert.Empty(t, svc.locks.locks, "locks are released once idle")
}

func TestUpdateTopicProgress_SQLiteBackend(t *testing.T) {
	store, err := kv.OpenSQLite(t.TempDir() + "/progress.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, catalog.Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"fs-1", "fs-2", "fs-3", "fs-4"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateTopicProgress(ctx, "u1", catalog.TopicStatements, results(id, true))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fs-1", "fs-2", "fs-3", "fs-4"}, p.Topics[catalog.TopicStatements].Completed)
}

func TestReset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.UpdateTopicProgress(ctx, "u1", catalog.TopicBonds, results("bond-1", true))
	require.NoError(t, err)

	p, err := svc.Reset(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Topics[catalog.TopicBonds].Completed)

	p, err = svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Topics[catalog.TopicBonds].Completed)
	assert.Zero(t, p.Topics[catalog.TopicBonds].Attempts)
}

func TestDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, err := svc.UpdateTopicProgress(ctx, "u1", catalog.TopicBonds, results("bond-1", true))
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	require.NoError(t, svc.Delete(ctx, "u1"))
	assert.Zero(t, store.Len())
}

func TestLoad_FillsTopicsMissingFromStoredValue(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raw := []byte(`{"userId":"u1","topics":{"bond-valuation":{"completed":["bond-1"],"accuracy":1,"attempts":1,"correct":1}}}`)
	require.NoError(t, store.Set(ctx, kv.ProgressKey("u1"), raw))

	p, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bond-1"}, p.Topics[catalog.TopicBonds].Completed)
	assert.Len(t, p.Topics, len(catalog.AllTopics()))
}

func TestLoad_CorruptValue(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, kv.ProgressKey("u1"), []byte("{not json")))

	_, err := svc.Load(ctx, "u1")
	assert.Error(t, err)
	assert.False(t, kv.IsUnavailable(err))
}

func TestSave_DropsForeignCompletedIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p := NewUserProgress("u1")
	p.Topics[catalog.TopicDerivatives].Completed = []string{"deriv-3", "bond-1", "ghost", "deriv-3"}
	p.Topics[catalog.Topic("astrology")] = &TopicProgress{Completed: []string{"x"}}
	require.NoError(t, svc.Save(ctx, p))

	got, err := svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"deriv-3"}, got.Topics[catalog.TopicDerivatives].Completed)
	assert.NotContains(t, got.Topics, catalog.Topic("astrology"))
}
