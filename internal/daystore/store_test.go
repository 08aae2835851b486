package daystore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdays/internal/model"
)

func sampleDays() []*model.Day {
	return []*model.Day{
		{
			ID:   "d1",
			Date: model.NewDate(2024, time.January, 1),
			Newsletters: []model.Newsletter{
				{ID: "n1", Subject: "A", Author: "X", ReceivedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
			},
		},
		{
			ID:      "d2",
			Date:    model.NewDate(2024, time.January, 2),
			Summary: model.NewSummary("old"),
			Newsletters: []model.Newsletter{
				{ID: "n2", Subject: "B", Author: "Y", ReceivedAt: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)},
				{ID: "n3", Subject: "C", Author: "Z", ReceivedAt: time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)},
			},
		},
	}
}

func loaded(t *testing.T) *Store {
	t.Helper()
	s := New()
	_, err := s.ReplaceAll(sampleDays())
	require.NoError(t, err)
	return s
}

func TestPatchDaySummary_OnlyTargetChanges(t *testing.T) {
	s := loaded(t)
	before := s.Snapshot()

	after, err := s.PatchDaySummary("d1", model.NewSummary("Daily digest"))
	require.NoError(t, err)

	require.Len(t, after.Days, 2)
	assert.Equal(t, "Daily digest", after.Days[0].Summary.Text())
	assert.Same(t, before.Days[1], after.Days[1], "unrelated day must keep its identity")
	assert.NotSame(t, before.Days[0], after.Days[0])
	assert.Same(t, &before.Days[0].Newsletters[0], &after.Days[0].Newsletters[0], "newsletters must be shared")
	assert.Equal(t, before.Days[0].Date, after.Days[0].Date)

	// Copy-on-write: the earlier snapshot is untouched.
	assert.False(t, before.Days[0].Summary.Generated())
	assert.Equal(t, before.Epoch, after.Epoch)
}

func TestPatchDaySummary_Absent(t *testing.T) {
	s := loaded(t)
	before := s.Snapshot()

	after, err := s.PatchDaySummary("d99", model.NewSummary("x"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, after)
	assert.Equal(t, before, s.Snapshot())
}

func TestReplaceAll_Idempotent(t *testing.T) {
	s := New()
	days := sampleDays()

	first, err := s.ReplaceAll(days)
	require.NoError(t, err)
	second, err := s.ReplaceAll(days)
	require.NoError(t, err)

	assert.Equal(t, first.Days, second.Days)
	assert.Equal(t, first.Epoch+1, second.Epoch)
}

func TestReplaceAll_DuplicateDateRejected(t *testing.T) {
	s := loaded(t)
	before := s.Snapshot()

	dup := sampleDays()
	dup[1].Date = dup[0].Date
	_, err := s.ReplaceAll(dup)
	require.ErrorIs(t, err, ErrDuplicateDate)
	assert.Equal(t, before, s.Snapshot())
}

func TestReplaceAll_CopiesInputSlice(t *testing.T) {
	s := New()
	days := sampleDays()
	_, err := s.ReplaceAll(days)
	require.NoError(t, err)

	days[0] = &model.Day{ID: "other"}
	assert.Equal(t, model.ID("d1"), s.Snapshot().Days[0].ID)
}

func TestPatchDaySummaryAt_StaleAfterReplace(t *testing.T) {
	s := loaded(t)
	issued := s.Epoch()

	_, err := s.ReplaceAll(sampleDays())
	require.NoError(t, err)

	_, err = s.PatchDaySummaryAt(issued, "d1", model.NewSummary("late"))
	require.ErrorIs(t, err, ErrStale)
	d, ok := s.Snapshot().Find("d1")
	require.True(t, ok)
	assert.False(t, d.Summary.Generated())

	_, err = s.PatchDaySummaryAt(s.Epoch(), "d1", model.NewSummary("fresh"))
	require.NoError(t, err)
	d, _ = s.Snapshot().Find("d1")
	assert.Equal(t, "fresh", d.Summary.Text())
}

func TestPatchDaySummaryAt_DistinctDaysDoNotConflict(t *testing.T) {
	s := loaded(t)
	epoch := s.Epoch()

	_, err := s.PatchDaySummaryAt(epoch, "d2", model.NewSummary("two"))
	require.NoError(t, err)
	_, err = s.PatchDaySummaryAt(epoch, "d1", model.NewSummary("one"))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "one", snap.Days[0].Summary.Text())
	assert.Equal(t, "two", snap.Days[1].Summary.Text())
}

func TestReplaceDay(t *testing.T) {
	s := loaded(t)
	before := s.Snapshot()

	fresh := &model.Day{
		ID:   "d2",
		Date: model.NewDate(2024, time.January, 2),
		Newsletters: []model.Newsletter{
			{ID: "n2"}, {ID: "n3"}, {ID: "n4"},
		},
	}
	after, err := s.ReplaceDay(fresh)
	require.NoError(t, err)
	assert.Same(t, before.Days[0], after.Days[0])
	assert.Same(t, fresh, after.Days[1])
	assert.Equal(t, before.Epoch, after.Epoch)

	_, err = s.ReplaceDay(&model.Day{ID: "d99"})
	assert.True(t, errors.Is(err, ErrNotFound))

	clash := &model.Day{ID: "d2", Date: model.NewDate(2024, time.January, 1)}
	_, err = s.ReplaceDay(clash)
	assert.ErrorIs(t, err, ErrDuplicateDate)
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := loaded(t)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				if snap.Len() != 2 {
					t.Errorf("reader saw %d days", snap.Len())
					return
				}
				for _, d := range snap.Days {
					if d == nil {
						t.Error("reader saw nil day")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%10 == 0 {
			_, _ = s.ReplaceAll(sampleDays())
			continue
		}
		_, _ = s.PatchDaySummary("d1", model.NewSummary("v"))
	}
	close(stop)
	wg.Wait()
}
