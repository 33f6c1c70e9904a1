package capture

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFromFinalizesChunks(t *testing.T) {
	recorder := NewRecorder(t.TempDir(), 300*time.Millisecond)
	stream := NewChunkStream()

	require.NoError(t, stream.Push([]byte("chunk-one")))
	require.NoError(t, stream.Push([]byte("chunk-two")))
	stream.Release()

	artifact, err := recorder.RecordFrom(context.Background(), "42", stream)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Equal(t, ArtifactMimeType, artifact.MimeType)
	assert.Equal(t, int64(len("chunk-one")+len("chunk-two")), artifact.Size)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, "chunk-onechunk-two", string(data))
}

func TestRecordFromStopsAtMaxDuration(t *testing.T) {
	recorder := NewRecorder(t.TempDir(), 150*time.Millisecond)
	stream := NewChunkStream()

	require.NoError(t, stream.Push([]byte("early-chunk")))

	start := time.Now()
	artifact, err := recorder.RecordFrom(context.Background(), "42", stream)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 1*time.Second)

	// The stream was never released by the client; the recorder finalized
	// on timeout with what it had.
	assert.Equal(t, int64(len("early-chunk")), artifact.Size)
}

func TestRecordFromCancelledContextFinalizesEarly(t *testing.T) {
	recorder := NewRecorder(t.TempDir(), 10*time.Second)
	stream := NewChunkStream()

	require.NoError(t, stream.Push([]byte("partial")))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	artifact, err := recorder.RecordFrom(ctx, "42", stream)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int64(len("partial")), artifact.Size)
}

func TestRecordFromDeniedDevice(t *testing.T) {
	recorder := NewRecorder(t.TempDir(), time.Second)
	stream := NewChunkStream()
	stream.Deny()

	artifact, err := recorder.RecordFrom(context.Background(), "42", stream)
	assert.ErrorIs(t, err, ErrDeviceDenied)
	assert.Nil(t, artifact)
}

func TestRecordFromNilSourceIsADenial(t *testing.T) {
	recorder := NewRecorder(t.TempDir(), time.Second)

	artifact, err := recorder.RecordFrom(context.Background(), "42", nil)
	assert.ErrorIs(t, err, ErrDeviceDenied)
	assert.Nil(t, artifact)
}

func TestRecordFromNoChunksYieldsNoArtifact(t *testing.T) {
	spoolDir := t.TempDir()
	recorder := NewRecorder(spoolDir, time.Second)
	stream := NewChunkStream()
	stream.Release()

	artifact, err := recorder.RecordFrom(context.Background(), "42", stream)
	require.NoError(t, err)
	assert.Nil(t, artifact)

	// No empty spool file left behind.
	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChunkStreamPushAfterCloseErrors(t *testing.T) {
	stream := NewChunkStream()
	stream.Release()

	assert.ErrorIs(t, stream.Push([]byte("late")), ErrStreamClosed)
}

func TestChunkStreamReleaseIsIdempotent(t *testing.T) {
	stream := NewChunkStream()
	stream.Release()
	stream.Release()
	stream.Deny()
}
