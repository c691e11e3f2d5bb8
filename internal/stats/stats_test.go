package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLoss(t *testing.T) {
	t.Parallel()

	s := PlayerStat{}.Apply(false, 5000)
	assert.Equal(t, PlayerStat{Games: 1}, s)

	best := int64(3000)
	s = PlayerStat{Games: 4, Wins: 2, BestTime: &best}.Apply(false, 1000)
	assert.Equal(t, 5, s.Games)
	assert.Equal(t, 2, s.Wins)
	require.NotNil(t, s.BestTime)
	assert.Equal(t, int64(3000), *s.BestTime, "a loss must never touch best time")
}

func TestApplyWin(t *testing.T) {
	t.Parallel()

	s := PlayerStat{}.Apply(true, 5000)
	require.NotNil(t, s.BestTime)
	assert.Equal(t, int64(5000), *s.BestTime)
	assert.Equal(t, 1, s.Games)
	assert.Equal(t, 1, s.Wins)

	s = s.Apply(true, 3000)
	assert.Equal(t, int64(3000), *s.BestTime, "faster win lowers best time")

	s = s.Apply(true, 3000)
	assert.Equal(t, int64(3000), *s.BestTime, "equal time is not strictly faster")

	s = s.Apply(true, 9000)
	assert.Equal(t, int64(3000), *s.BestTime, "slower win keeps best time")
	assert.Equal(t, 4, s.Games)
	assert.Equal(t, 4, s.Wins)
}

type recordCall struct {
	username string
	mode     string
	won      bool
	elapsed  int64
}

type fakeStore struct {
	mu    sync.Mutex
	calls []recordCall
	done  chan struct{}
	want  int
}

func (f *fakeStore) RecordGameResult(
	ctx context.Context, username, mode string, won bool, elapsedMs int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordCall{username, mode, won, elapsedMs})
	if len(f.calls) == f.want {
		close(f.done)
	}
	return nil
}

func TestRecorderBooksEveryMember(t *testing.T) {
	t.Parallel()

	fake := &fakeStore{done: make(chan struct{}), want: 3}
	rec := NewRecorder(logrus.New(), fake)

	rec.Record([]string{"ann", "bob", "cat"}, "medium", true, 42*time.Second)

	select {
	case <-fake.done:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder never reached the store")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.calls, 3)
	for i, username := range []string{"ann", "bob", "cat"} {
		assert.Equal(t, recordCall{username, "medium", true, 42000}, fake.calls[i])
	}
}
