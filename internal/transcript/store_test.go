package transcript

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

func TestNewMessage_TimestampFixedAtCreation(t *testing.T) {
	msg := NewMessage(SenderUser, "hi", fixedNow)

	assert.Equal(t, "14:05", msg.Timestamp)
	assert.True(t, msg.IsUser())
	assert.False(t, NewMessage(SenderAssistant, "yo", fixedNow).IsUser())
}

func TestStore_SeedAndAppendOrder(t *testing.T) {
	seed := NewMessage(SenderAssistant, "hello", fixedNow)
	s := NewStore(seed)
	require.Equal(t, 1, s.Len())

	s.Append(NewMessage(SenderUser, "one", fixedNow))
	s.Append(NewMessage(SenderAssistant, "two", fixedNow))
	s.Append(NewMessage(SenderUser, "one", fixedNow)) // duplicates are kept

	var texts []string
	for _, m := range s.All() {
		texts = append(texts, m.Text)
	}
	if diff := cmp.Diff([]string{"hello", "one", "two", "one"}, texts); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := NewStore(NewMessage(SenderAssistant, "hello", fixedNow))

	all := s.All()
	all[0].Text = "mutated"

	assert.Equal(t, "hello", s.All()[0].Text)
}

func TestStore_Since(t *testing.T) {
	s := NewStore(NewMessage(SenderAssistant, "seed", fixedNow))
	s.Append(NewMessage(SenderUser, "a", fixedNow))
	s.Append(NewMessage(SenderAssistant, "b", fixedNow))

	got := s.Since(1)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Nil(t, s.Since(3))
	assert.Len(t, s.Since(-4), 3)
}

func TestStore_OnAppendObservesEveryEntry(t *testing.T) {
	s := NewStore()
	var seen []string
	s.OnAppend(func(m Message) { seen = append(seen, m.Text) })
	s.OnAppend(nil)

	s.Append(NewMessage(SenderUser, "x", fixedNow))
	s.Append(NewMessage(SenderUser, "y", fixedNow))

	assert.Equal(t, []string{"x", "y"}, seen)
}

func TestStore_ConcurrentAppendsAreNotLost(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(NewMessage(SenderUser, fmt.Sprint(i), fixedNow))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
