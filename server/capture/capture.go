package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/utils"
)

const (
	DefaultMaxDuration = 30 * time.Second
	ArtifactMimeType   = "video/webm"
)

var (
	// ErrDeviceDenied is reported when the client device refused camera/mic
	// access. The emergency proceeds without evidence - the caller surfaces
	// a warning, never a failure.
	ErrDeviceDenied = errors.New("capture device denied")

	ErrStreamClosed = errors.New("capture stream closed")

	logg = logger.NewLogger()
)

// Chunk is one piece of encoded audio/video data, delivered roughly once
// per second while the client records.
type Chunk []byte

// Artifact is the single finalized evidence file produced by one capture
// session.
type Artifact struct {
	Path     string
	MimeType string
	Size     int64
}

// Source is a capture device abstraction. Acquire hands out the chunk
// stream; Release must free the device on every exit path so the hardware
// indicator never stays lit.
type Source interface {
	Acquire(ctx context.Context) (<-chan Chunk, error)
	Release()
}

// Recorder buffers chunks from a source and finalizes them into exactly
// one artifact, either when the max recording duration elapses or when the
// context is cancelled (forced stop on deactivation).
type Recorder struct {
	spoolDir    string
	maxDuration time.Duration
}

func NewRecorder(spoolDir string, maxDuration time.Duration) *Recorder {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}

	return &Recorder{spoolDir: spoolDir, maxDuration: maxDuration}
}

// Record drains the source into a spool file until timeout or cancellation,
// then finalizes. A denied device surfaces as ErrDeviceDenied with no
// artifact.
func (r *Recorder) Record(ctx context.Context, sessionID string) (*Artifact, error) {
	return r.RecordFrom(ctx, sessionID, nil)
}

// RecordFrom is Record with an explicit source; a nil source means the
// client never attached a device stream, treated the same as a denial.
func (r *Recorder) RecordFrom(ctx context.Context, sessionID string, source Source) (*Artifact, error) {
	if source == nil {
		return nil, ErrDeviceDenied
	}

	chunks, err := source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer source.Release()

	err = utils.CreateDirIfNotExist(r.spoolDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(r.spoolDir, fmt.Sprintf("emergency_%v_%v.webm", time.Now().Unix(), sessionID))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	timeout := time.NewTimer(r.maxDuration)
	defer timeout.Stop()

	var size int64
	done := false
	for !done {
		select {
		case <-ctx.Done():
			done = true
		case <-timeout.C:
			done = true
		case chunk, ok := <-chunks:
			if !ok {
				done = true
				break
			}
			n, err := f.Write(chunk)
			if err != nil {
				f.Close()
				os.Remove(path)
				return nil, err
			}
			size += int64(n)
		}
	}

	if err := f.Close(); err != nil {
		return nil, err
	}

	// No chunks ever arrived - nothing to upload.
	if size == 0 {
		os.Remove(path)
		logg.Warnf("capture for session %v produced no data", sessionID)
		return nil, nil
	}

	logg.Infof("capture for session %v finalized (%v bytes)", sessionID, size)

	return &Artifact{Path: path, MimeType: ArtifactMimeType, Size: size}, nil
}

// ChunkStream is a Source fed by the evidence-chunk ingestion endpoint.
// The client device pushes encoded chunks over HTTP as it records.
type ChunkStream struct {
	mu     sync.Mutex
	ch     chan Chunk
	closed bool
	denied bool
}

func NewChunkStream() *ChunkStream {
	return &ChunkStream{ch: make(chan Chunk, 64)}
}

func (cs *ChunkStream) Acquire(ctx context.Context) (<-chan Chunk, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.denied {
		return nil, ErrDeviceDenied
	}

	return cs.ch, nil
}

// Push delivers one chunk from the client. Chunks pushed after the stream
// closed are dropped with an error, not a panic.
func (cs *ChunkStream) Push(chunk Chunk) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.closed || cs.denied {
		return ErrStreamClosed
	}

	select {
	case cs.ch <- chunk:
		return nil
	default:
		return errors.New("capture stream backlogged, chunk dropped")
	}
}

// Deny marks the device as refused before any chunk arrives.
func (cs *ChunkStream) Deny() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.closed {
		cs.denied = true
		cs.closed = true
		close(cs.ch)
	}
}

// Release closes the stream. Safe to call more than once.
func (cs *ChunkStream) Release() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.closed {
		cs.closed = true
		close(cs.ch)
	}
}
