package conversation

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitrome-concierge/internal/relevance"
)

func TestStore_AppendKeepsOrder(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	u := s.Append(RoleUser, "Where should I stay?")
	a := s.Append(RoleAssistant, "Try Trastevere.")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, u, msgs[0])
	assert.Equal(t, a, msgs[1])
	assert.Equal(t, fixed, msgs[0].Timestamp)
	assert.True(t, strings.HasPrefix(u.ID, "1746095400000_"))
	assert.NotEqual(t, u.ID, a.ID)
}

func TestStore_MessagesIsACopy(t *testing.T) {
	s := NewStore()
	s.Append(RoleUser, "hi")

	msgs := s.Messages()
	msgs[0].Content = "tampered"

	assert.Equal(t, "hi", s.Messages()[0].Content)
}

func TestStore_LoadingAndRelevant(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Loading())
	assert.Nil(t, s.Relevant())

	d := &relevance.Data{Hotels: []relevance.Hotel{{ID: "h1"}}, Tours: []relevance.Tour{}}
	s.SetLoading(true)
	s.SetRelevant(d)

	snap := s.Snapshot()
	assert.True(t, snap.Loading)
	assert.Same(t, d, snap.Relevant)

	s.SetRelevant(nil)
	assert.Nil(t, s.Relevant())
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(RoleUser, "ciao")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
