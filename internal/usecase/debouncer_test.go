package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDebouncer_Threshold(t *testing.T) {
	assert.Equal(t, DefaultConfirmThreshold, NewDebouncer(0).Threshold())
	assert.Equal(t, DefaultConfirmThreshold, NewDebouncer(-2).Threshold())
	assert.Equal(t, 5, NewDebouncer(5).Threshold())
}

func TestDebouncer_ConfirmsAfterCumulativeObservations(t *testing.T) {
	d := NewDebouncer(3)

	for i, code := range []string{"123", "456", "123"} {
		_, ok := d.Observe(code)
		assert.False(t, ok, "observation %d must not confirm", i+1)
	}

	event, ok := d.Observe("123")
	require.True(t, ok)
	assert.Equal(t, "123", event.Barcode)
	assert.Zero(t, d.Pending(), "tally must be empty after a confirmation")
}

func TestDebouncer_RequiresFreshObservationsAfterConfirm(t *testing.T) {
	d := NewDebouncer(3)

	for i := 0; i < 2; i++ {
		_, ok := d.Observe("5449000000996")
		require.False(t, ok)
	}
	_, ok := d.Observe("5449000000996")
	require.True(t, ok)

	for i := 0; i < 2; i++ {
		_, ok := d.Observe("5449000000996")
		assert.False(t, ok, "re-confirmation needs a full new tally")
	}
	event, ok := d.Observe("5449000000996")
	assert.True(t, ok)
	assert.Equal(t, "5449000000996", event.Barcode)
}

func TestDebouncer_ConfirmationClearsCompetitors(t *testing.T) {
	d := NewDebouncer(3)

	d.Observe("111")
	d.Observe("111")
	d.Observe("222")
	d.Observe("222")
	_, ok := d.Observe("222")
	require.True(t, ok)

	// 111 had two counts before; they must not leak into the next round
	_, ok = d.Observe("111")
	assert.False(t, ok)
	assert.Equal(t, 1, d.Pending())
}

func TestDebouncer_IgnoresMalformedCandidates(t *testing.T) {
	d := NewDebouncer(2)

	for _, code := range []string{"", "   ", "12a4", "EAN-13:5449000000996", "-1"} {
		_, ok := d.Observe(code)
		assert.False(t, ok)
	}
	assert.Zero(t, d.Pending())

	_, ok := d.Observe(" 777 ")
	assert.False(t, ok)
	event, ok := d.Observe("777")
	require.True(t, ok)
	assert.Equal(t, "777", event.Barcode)
}

func TestDebouncer_CandidateFilter(t *testing.T) {
	d := NewDebouncer(1, WithCandidateFilter(IsScanCandidate))

	_, ok := d.Observe("123")
	assert.False(t, ok)
	assert.Zero(t, d.Pending())

	event, ok := d.Observe("96385074")
	assert.True(t, ok)
	assert.Equal(t, "96385074", event.Barcode)
}

func TestDebouncer_Reset(t *testing.T) {
	d := NewDebouncer(3)
	d.Observe("123")
	d.Observe("123")
	d.Observe("456")
	assert.Equal(t, 2, d.Pending())

	d.Reset()
	assert.Zero(t, d.Pending())

	_, ok := d.Observe("123")
	assert.False(t, ok)
}
