package detector

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/usecase"
)

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line string
		want string
	}{
		{"EAN-13:5449000000996", "5449000000996"},
		{"  UPC-A: 012345678905 ", "012345678905"},
		{"96385074", "96385074"},
		{"", ""},
		{"EAN-8:", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, ParseLine(tc.line), tc.line)
	}
}

func collect(t *testing.T, ch <-chan domain.Detection) []string {
	t.Helper()
	var codes []string
	timeout := time.After(time.Second)
	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return codes
			}
			codes = append(codes, d.Code)
		case <-timeout:
			t.Fatal("detector channel was not closed")
		}
	}
}

func TestLineDetector_ReadsUntilEOF(t *testing.T) {
	d := NewLineDetector(strings.NewReader("EAN-13:5449000000996\n\nEAN-13:5449000000997\n"))

	ch, err := d.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"5449000000996", "5449000000997"}, collect(t, ch))

	_, err = d.Start(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyStarted))
}

func TestLineDetector_Stop(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	d := NewLineDetector(pr)
	ch, err := d.Start(context.Background())
	require.NoError(t, err)

	go func() { _, _ = pw.Write([]byte("111\n222\n")) }()

	first := <-ch
	assert.Equal(t, "111", first.Code)

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	time.Sleep(20 * time.Millisecond)

	// The pending line is dropped once stopped
	assert.Empty(t, collect(t, ch))
}

func TestLineDetector_StopUnblocksIdleReader(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	d := NewLineDetector(pr)
	ch, err := d.Start(context.Background())
	require.NoError(t, err)

	// Nothing is ever written, so the reader is parked in Read
	require.NoError(t, d.Stop())

	assert.Empty(t, collect(t, ch))

	_, err = pw.Write([]byte("111\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe, "reader is closed by Stop")
}

func TestLineDetector_WithScanSession(t *testing.T) {
	input := strings.Join([]string{
		"EAN-13:5449000000996",
		"EAN-13:5449000000997",
		"EAN-13:5449000000996",
		"EAN-13:5449000000996",
	}, "\n")

	event, err := usecase.RunScanSession(context.Background(), NewLineDetector(strings.NewReader(input)), 3)
	require.NoError(t, err)
	assert.Equal(t, "5449000000996", event.Barcode)
}
