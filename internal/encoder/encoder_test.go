package encoder

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrt/internal/codec"
	"qrt/internal/hasher"
)

func makeChunks(n int) []codec.Chunk {
	chunks := make([]codec.Chunk, n)
	for i := range chunks {
		chunks[i] = codec.Chunk{
			Index:    i + 1,
			Total:    n,
			Filename: "test.txt",
			FileHash: hasher.FileHash("test corpus"),
			Body:     fmt.Sprintf("line %d\n", i+1),
		}
	}
	return chunks
}

func plainEncode(c codec.Chunk) (string, error) {
	return codec.Encode(c, nil, "")
}

func TestEncodeAll_PreservesOrder(t *testing.T) {
	chunks := makeChunks(20)

	records, err := EncodeAll(chunks, plainEncode)
	require.NoError(t, err)
	require.Len(t, records, 20)

	for i, record := range records {
		rec, err := codec.Decode(record)
		require.NoError(t, err)
		assert.Equal(t, i+1, rec.Index)
	}
}

func TestEncodeAll_DeterministicAcrossStrategies(t *testing.T) {
	chunks := makeChunks(25)

	sequential, err := encodeSequential(chunks, plainEncode)
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 8} {
		parallel, err := encodeParallel(chunks, plainEncode, workers)
		require.NoError(t, err)
		assert.Equal(t, sequential, parallel, "workers=%d", workers)
	}
}

func TestEncodeAll_SequentialBelowThreshold(t *testing.T) {
	chunks := makeChunks(ParallelThreshold)

	var concurrent, peak atomic.Int32
	records, err := EncodeAll(chunks, func(c codec.Chunk) (string, error) {
		cur := concurrent.Add(1)
		if cur > peak.Load() {
			peak.Store(cur)
		}
		defer concurrent.Add(-1)
		return plainEncode(c)
	})
	require.NoError(t, err)
	assert.Len(t, records, ParallelThreshold)
	assert.Equal(t, int32(1), peak.Load())
}

func TestEncodeAll_CollectsAllFailures(t *testing.T) {
	chunks := makeChunks(10)
	boom := errors.New("encryption exploded")

	_, err := EncodeAll(chunks, func(c codec.Chunk) (string, error) {
		if c.Index%3 == 0 {
			return "", boom
		}
		return plainEncode(c)
	})
	require.Error(t, err)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []int{3, 6, 9}, partial.Indices())
	assert.ErrorIs(t, partial.Failures[3], boom)
}

func TestEncodeAll_OneFailureDoesNotAbortSiblings(t *testing.T) {
	chunks := makeChunks(12)

	var attempted atomic.Int32
	_, err := EncodeAll(chunks, func(c codec.Chunk) (string, error) {
		attempted.Add(1)
		if c.Index == 1 {
			return "", errors.New("first chunk fails")
		}
		return plainEncode(c)
	})
	require.Error(t, err)
	// Every chunk is still attempted.
	assert.Equal(t, int32(12), attempted.Load())
}

func TestEncodeAll_Empty(t *testing.T) {
	records, err := EncodeAll(nil, plainEncode)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPoolSize_Bounded(t *testing.T) {
	n := PoolSize()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, maxWorkers)
}
