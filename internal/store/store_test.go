package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-scheduler/internal/model"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestCreateIgnoresStoreOwnedFields(t *testing.T) {
	s := New()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	created, err := s.Create(model.Message{
		ID:        "caller-id",
		Email:     "a@x.com",
		Body:      strPtr("hello"),
		CreatedAt: timePtr(fixed.Add(-48 * time.Hour)),
		Sent:      true,
	})
	require.NoError(t, err)

	assert.NotEqual(t, "caller-id", created.ID)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Sent)
	require.NotNil(t, created.CreatedAt)
	assert.Equal(t, fixed, *created.CreatedAt)
	assert.Equal(t, "hello", created.BodyText())

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestCreateReportsIDFailure(t *testing.T) {
	s := New()
	s.newID = func() (uuid.UUID, error) { return uuid.Nil, errors.New("entropy exhausted") }

	_, err := s.Create(model.Message{Email: "a@x.com"})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestListPreservesInsertionOrderAndIsolatesCallers(t *testing.T) {
	s := New()
	first, err := s.Create(model.Message{Email: "first@x.com", Body: strPtr("one")})
	require.NoError(t, err)
	second, err := s.Create(model.Message{Email: "second@x.com"})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	*list[0].Body = "mutated"
	list[1].Email = "mutated@x.com"

	got, _ := s.Get(first.ID)
	assert.Equal(t, "one", got.BodyText())
	got, _ = s.Get(second.ID)
	assert.Equal(t, "second@x.com", got.Email)
}

func TestGetUnknownID(t *testing.T) {
	s := New()
	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestUpdateReplacesFieldsAndKeepsPathID(t *testing.T) {
	s := New()
	sendAt := time.Now().Add(time.Hour)
	created, err := s.Create(model.Message{Email: "a@x.com", Body: strPtr("old"), SendAt: &sendAt})
	require.NoError(t, err)

	updated, ok := s.Update(created.ID, model.Message{ID: "other-id", Email: "b@x.com"})
	require.True(t, ok)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "b@x.com", updated.Email)
	// full replace: omitted fields are cleared, not merged
	assert.Nil(t, updated.Body)
	assert.Nil(t, updated.SendAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, updated, got)

	_, ok = s.Get("other-id")
	assert.False(t, ok)
}

func TestUpdateCannotChangeSentFlag(t *testing.T) {
	s := New()
	created, err := s.Create(model.Message{Email: "a@x.com"})
	require.NoError(t, err)

	updated, ok := s.Update(created.ID, model.Message{Email: "a@x.com", Sent: true})
	require.True(t, ok)
	assert.False(t, updated.Sent)

	_, ok = s.MarkSent(created.ID)
	require.True(t, ok)

	updated, ok = s.Update(created.ID, model.Message{Email: "a@x.com", Sent: false})
	require.True(t, ok)
	assert.True(t, updated.Sent)
}

func TestUpdateUnknownID(t *testing.T) {
	s := New()
	_, ok := s.Update("missing", model.Message{Email: "a@x.com"})
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestDeleteTwice(t *testing.T) {
	s := New()
	created, err := s.Create(model.Message{Email: "a@x.com"})
	require.NoError(t, err)

	deleted, ok := s.Delete(created.ID)
	require.True(t, ok)
	assert.Equal(t, created.ID, deleted.ID)

	_, ok = s.Get(created.ID)
	assert.False(t, ok)
	_, ok = s.Delete(created.ID)
	assert.False(t, ok)
}

func TestMarkSentOnlyTouchesFlag(t *testing.T) {
	s := New()
	created, err := s.Create(model.Message{Email: "a@x.com", Body: strPtr("v1")})
	require.NoError(t, err)

	// an update lands between the dispatcher's snapshot and its mark
	_, ok := s.Update(created.ID, model.Message{Email: "a@x.com", Body: strPtr("v2")})
	require.True(t, ok)

	marked, ok := s.MarkSent(created.ID)
	require.True(t, ok)
	assert.True(t, marked.Sent)
	assert.Equal(t, "v2", marked.BodyText())

	_, ok = s.MarkSent("missing")
	assert.False(t, ok)
}

func TestPendingCountsScheduledUnsent(t *testing.T) {
	s := New()
	sendAt := time.Now()
	_, err := s.Create(model.Message{Email: "no-schedule@x.com"})
	require.NoError(t, err)
	scheduled, err := s.Create(model.Message{Email: "a@x.com", SendAt: &sendAt})
	require.NoError(t, err)
	_, err = s.Create(model.Message{Email: "b@x.com", SendAt: &sendAt})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Pending())
	s.MarkSent(scheduled.ID)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 3, s.Len())
}

func TestConcurrentCreate(t *testing.T) {
	s := New()

	const workers = 10
	const perWorker = 10

	var wg sync.WaitGroup
	ids := make(chan string, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m, err := s.Create(model.Message{Email: "a@x.com"})
				if err != nil {
					t.Error(err)
					return
				}
				ids <- m.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Len(t, s.List(), workers*perWorker)
}
