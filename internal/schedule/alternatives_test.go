package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// fakeOracle marks specific starts as busy or failing; everything else is free.
type fakeOracle struct {
	busy    map[string]bool
	failing map[string]bool
	calls   []time.Time
}

func (f *fakeOracle) IsFree(_ context.Context, start, _ time.Time) (bool, error) {
	f.calls = append(f.calls, start)
	key := start.Format("15:04")
	if f.failing[key] {
		return false, errors.New("calendar timeout")
	}
	return !f.busy[key], nil
}

func altFinder(oracle Oracle) *Finder {
	// Clock well before the working day so no candidate is "in the past".
	return NewFinderAt(oracle, logging.Default(), func() time.Time {
		return time.Date(2025, 8, 25, 0, 0, 0, 0, IST)
	})
}

func TestFindAlternativesScanOrder(t *testing.T) {
	oracle := &fakeOracle{}
	f := altFinder(oracle)

	requested := at(11, 0)
	slots := f.FindAlternatives(context.Background(), requested, SlotDuration, 3)

	require.Len(t, slots, 3)
	// Offsets -2, -1, 1 relative to 11:00.
	assert.Equal(t, at(10, 0), slots[0].Start)
	assert.Equal(t, at(10, 30), slots[1].Start)
	assert.Equal(t, at(11, 30), slots[2].Start)
	for _, s := range slots {
		assert.Equal(t, SlotDuration, s.End.Sub(s.Start))
	}
}

func TestFindAlternativesSkipsLunchAndClose(t *testing.T) {
	oracle := &fakeOracle{}
	f := altFinder(oracle)

	// Requested 12:30 slot; forward candidates land in and around lunch.
	requested := at(12, 30)
	slots := f.FindAlternatives(context.Background(), requested, SlotDuration, 10)

	for _, s := range slots {
		assert.True(t, SlotWithinHours(s.Start, s.End),
			"slot %s violates working hours", s.Start.Format("15:04"))
	}
	// 13:00, 13:30 and the 12:30->13:00-ending candidates must be absent.
	for _, s := range slots {
		assert.NotEqual(t, 13, s.Start.Hour())
	}
}

func TestFindAlternativesSkipsPast(t *testing.T) {
	oracle := &fakeOracle{}
	f := NewFinderAt(oracle, logging.Default(), func() time.Time {
		return at(10, 15)
	})

	slots := f.FindAlternatives(context.Background(), at(11, 0), SlotDuration, 10)

	for _, s := range slots {
		assert.False(t, s.Start.Before(at(10, 15)), "returned past slot %s", s.Start)
	}
	// The -2 offset (10:00) is in the past and must be skipped.
	require.NotEmpty(t, slots)
	assert.Equal(t, at(10, 30), slots[0].Start)
}

func TestFindAlternativesSwallowsOracleErrors(t *testing.T) {
	oracle := &fakeOracle{failing: map[string]bool{"10:00": true}}
	f := altFinder(oracle)

	slots := f.FindAlternatives(context.Background(), at(11, 0), SlotDuration, 2)

	require.Len(t, slots, 2)
	assert.Equal(t, at(10, 30), slots[0].Start)
	assert.Equal(t, at(11, 30), slots[1].Start)
}

func TestFindAlternativesRespectsMaxAndStopsEarly(t *testing.T) {
	oracle := &fakeOracle{}
	f := altFinder(oracle)

	slots := f.FindAlternatives(context.Background(), at(11, 0), SlotDuration, 1)

	require.Len(t, slots, 1)
	// Stops querying once enough slots are found.
	assert.Len(t, oracle.calls, 1)
}

func TestFindAlternativesAllBusy(t *testing.T) {
	busy := map[string]bool{}
	for _, hm := range []string{"10:00", "10:30", "11:30", "12:00", "12:30", "14:00", "14:30", "15:00"} {
		busy[hm] = true
	}
	oracle := &fakeOracle{busy: busy}
	f := altFinder(oracle)

	slots := f.FindAlternatives(context.Background(), at(11, 0), SlotDuration, 5)
	assert.Empty(t, slots)
}

func TestFindAlternativesZeroMax(t *testing.T) {
	oracle := &fakeOracle{}
	f := altFinder(oracle)
	assert.Nil(t, f.FindAlternatives(context.Background(), at(11, 0), SlotDuration, 0))
	assert.Empty(t, oracle.calls)
}
