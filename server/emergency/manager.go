package emergency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HARINII2415/femina360/server/capture"
	"github.com/HARINII2415/femina360/server/dispatch"
	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/trigger"
	"github.com/HARINII2415/femina360/shared"
	"github.com/pkg/errors"
)

var logg = logger.NewLogger()

var (
	ErrNotCountingDown = errors.New("no countdown in progress")
	ErrNotActive       = errors.New("no active emergency")
)

const (
	DEFAULT_COUNTDOWN = 10 * time.Second
	DEFAULT_TICK      = 1 * time.Second
)

// AlertDispatcher runs the upload -> notify pipeline once the emergency
// goes active.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, payload shared.AlertPayload, artifact *capture.Artifact) dispatch.Result
}

// EvidenceRecorder drains a capture source into a spooled artifact.
type EvidenceRecorder interface {
	RecordFrom(ctx context.Context, sessionID string, source capture.Source) (*capture.Artifact, error)
}

// Store persists the durable trail of emergency sessions. A nil Store is
// valid and means run in-memory only.
type Store interface {
	Create(session *models.EmergencySession) error
	Update(id uint, data map[string]interface{}) error
}

type Config struct {
	Countdown time.Duration
	Tick      time.Duration
}

func DefaultConfig() Config {
	return Config{Countdown: DEFAULT_COUNTDOWN, Tick: DEFAULT_TICK}
}

// Params are the collaborators for one user's manager.
type Params struct {
	UserID   uint
	UserName string
	Config   Config

	Recorder   EvidenceRecorder
	Dispatcher AlertDispatcher
	Store      Store

	// Contacts is read at activation time so edits made during the
	// countdown still make it into the alert.
	Contacts func() ([]shared.AlertContact, error)

	// OnReset clears trigger counters whenever a countdown is cancelled
	// or the guardian re-arms.
	OnReset func()
}

// Status is a point-in-time view of the manager for the status endpoint.
type Status struct {
	State         string           `json:"state"`
	TriggerSource string           `json:"trigger_source,omitempty"`
	Remaining     int              `json:"countdown_remaining"`
	Location      *shared.Location `json:"location,omitempty"`
}

// Manager owns the emergency lifecycle for a single user:
// armed -> countingDown -> active, with cancel and deactivate both
// returning to armed (the session row is archived as cancelled or
// resolved). At most one workflow is live at a time; triggers that
// arrive while one is in flight are dropped.
type Manager struct {
	params Params

	mu            sync.Mutex
	state         string
	triggerSource string
	remaining     int
	sessionID     uint
	location      *shared.Location

	cancelCountdown chan struct{}
	stopCapture     context.CancelFunc
	stream          *capture.ChunkStream

	// settled is closed when the active pipeline finishes, so tests and
	// Deactivate can wait for dispatch to complete.
	settled chan struct{}
}

func NewManager(params Params) *Manager {
	if params.Config.Countdown <= 0 {
		params.Config.Countdown = DEFAULT_COUNTDOWN
	}
	if params.Config.Tick <= 0 {
		params.Config.Tick = DEFAULT_TICK
	}

	m := &Manager{params: params, state: models.ARMED_SESSION}

	if params.Contacts != nil {
		if contacts, err := params.Contacts(); err == nil && len(contacts) == 0 {
			logg.Warnf("user %v armed guardian with no emergency contacts", params.UserID)
		}
	}

	return m
}

// Trigger starts the countdown. Any trigger that arrives while the manager
// is not armed - a countdown already running, an active emergency - is a
// silent no-op, so repeated sensor fires never open duplicate sessions.
func (m *Manager) Trigger(source trigger.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.ARMED_SESSION {
		logg.Infof("ignoring %v trigger for user %v while %v", source, m.params.UserID, m.state)
		return
	}

	m.state = models.COUNTING_DOWN_SESSION
	m.triggerSource = string(source)
	m.remaining = int(m.params.Config.Countdown / m.params.Config.Tick)
	m.cancelCountdown = make(chan struct{})
	m.sessionID = m.createSession()

	logg.Infof("emergency countdown started for user %v (source=%v)", m.params.UserID, source)
	go m.runCountdown(m.cancelCountdown)
}

// Cancel aborts the countdown and re-arms. It only applies while counting
// down; an active emergency can only be ended via Deactivate.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	if m.state != models.COUNTING_DOWN_SESSION {
		m.mu.Unlock()
		return ErrNotCountingDown
	}

	close(m.cancelCountdown)
	m.cancelCountdown = nil
	m.state = models.ARMED_SESSION
	m.remaining = 0
	sessionID := m.sessionID
	m.mu.Unlock()

	m.updateSession(sessionID, map[string]interface{}{"state": models.CANCELLED_SESSION, "resolved_at": time.Now()})
	m.resetTriggers()

	logg.Infof("emergency cancelled for user %v", m.params.UserID)
	return nil
}

// Deactivate ends the current workflow and puts the guardian back on
// watch. A countdown is aborted and its session archived as cancelled; an
// active capture is finalized (the pipeline settles in the background)
// and its session archived as resolved.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	sessionID := m.sessionID
	var archive map[string]interface{}

	switch m.state {
	case models.COUNTING_DOWN_SESSION:
		close(m.cancelCountdown)
		m.cancelCountdown = nil
		archive = map[string]interface{}{"state": models.CANCELLED_SESSION, "resolved_at": time.Now()}
	case models.ACTIVE_SESSION:
		if m.stopCapture != nil {
			m.stopCapture()
		}
		archive = map[string]interface{}{"state": models.RESOLVED_SESSION, "resolved_at": time.Now()}
	}

	m.state = models.ARMED_SESSION
	m.triggerSource = ""
	m.remaining = 0
	m.mu.Unlock()

	if archive != nil {
		m.updateSession(sessionID, archive)
	}
	m.resetTriggers()
	logg.Infof("guardian deactivated for user %v, re-armed", m.params.UserID)
}

// SetLocation records the latest known position for alert payloads.
func (m *Manager) SetLocation(location shared.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.location = &location
}

// PushEvidence feeds one captured media chunk into the live recording.
func (m *Manager) PushEvidence(chunk []byte) error {
	m.mu.Lock()
	stream := m.stream
	state := m.state
	m.mu.Unlock()

	if state != models.ACTIVE_SESSION || stream == nil {
		return ErrNotActive
	}
	return stream.Push(chunk)
}

// DenyEvidence marks the capture device as unavailable; the pipeline
// proceeds without evidence.
func (m *Manager) DenyEvidence() error {
	m.mu.Lock()
	stream := m.stream
	state := m.state
	m.mu.Unlock()

	if state != models.ACTIVE_SESSION || stream == nil {
		return ErrNotActive
	}
	stream.Deny()
	return nil
}

// CloseEvidence signals end of the client's media stream.
func (m *Manager) CloseEvidence() error {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()

	if stream == nil {
		return ErrNotActive
	}
	stream.Release()
	return nil
}

func (m *Manager) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		State:         m.state,
		TriggerSource: m.triggerSource,
		Remaining:     m.remaining,
		Location:      m.location,
	}
}

// Settled returns a channel closed once the active pipeline has finished
// uploading and notifying. It returns nil when no pipeline is running.
func (m *Manager) Settled() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled
}

// ---------------------------------------------------------------------------------------------//

func (m *Manager) runCountdown(cancel chan struct{}) {
	ticker := time.NewTicker(m.params.Config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.state != models.COUNTING_DOWN_SESSION {
				m.mu.Unlock()
				return
			}
			m.remaining--
			if m.remaining > 0 {
				m.mu.Unlock()
				continue
			}
			m.activateLocked()
			m.mu.Unlock()
			return
		}
	}
}

// activateLocked flips the manager to active and kicks off the capture ->
// upload -> notify pipeline. Callers hold m.mu.
func (m *Manager) activateLocked() {
	m.state = models.ACTIVE_SESSION
	m.cancelCountdown = nil
	m.stream = capture.NewChunkStream()
	m.settled = make(chan struct{})

	ctx, stop := context.WithCancel(context.Background())
	m.stopCapture = stop

	m.updateSession(m.sessionID, map[string]interface{}{"state": models.ACTIVE_SESSION})
	logg.Infof("EMERGENCY ACTIVE for user %v", m.params.UserID)

	go m.runPipeline(ctx, m.sessionID, m.stream, m.settled)
}

func (m *Manager) runPipeline(ctx context.Context, sessionID uint, stream *capture.ChunkStream, settled chan struct{}) {
	defer close(settled)

	artifact, err := m.params.Recorder.RecordFrom(ctx, fmt.Sprintf("%d", sessionID), stream)
	if err != nil {
		logg.Warnf("evidence capture unavailable for user %v: %v", m.params.UserID, err)
		artifact = nil
	}

	m.mu.Lock()
	location := m.location
	m.mu.Unlock()

	payload := shared.AlertPayload{
		UserID:    fmt.Sprintf("%d", m.params.UserID),
		UserName:  m.params.UserName,
		Location:  location,
		Timestamp: time.Now(),
	}
	if m.params.Contacts != nil {
		contacts, err := m.params.Contacts()
		if err != nil {
			logg.Errorf("unable to load contacts for user %v: %v", m.params.UserID, err)
		}
		payload.Contacts = contacts
	}

	// Dispatch gets its own context: tearing down the capture must not
	// abort the alert.
	result := m.params.Dispatcher.Dispatch(context.Background(), payload, artifact)
	if result.NoContacts {
		logg.Warnf("emergency for user %v settled with no contacts to notify", m.params.UserID)
	}

	updates := map[string]interface{}{
		"upload_result": result.UploadResult,
		"evidence_url":  result.EvidenceURL,
		"sms_count":     result.Receipt.SmsCount,
		"calls_count":   result.Receipt.CallsInitiated,
	}
	if location != nil {
		updates["lat"] = location.Lat
		updates["lng"] = location.Lng
	}

	// A deactivation may have re-armed the manager and a fresh trigger may
	// own the stream fields by now; only clear them if they are still ours.
	m.mu.Lock()
	if m.stream == stream {
		m.stream = nil
		m.stopCapture = nil
	}
	m.mu.Unlock()

	m.updateSession(sessionID, updates)
}

func (m *Manager) resetTriggers() {
	if m.params.OnReset != nil {
		m.params.OnReset()
	}
}

func (m *Manager) createSession() uint {
	if m.params.Store == nil {
		return uint(time.Now().UnixNano() / 1e6)
	}

	session := &models.EmergencySession{
		UserID:        m.params.UserID,
		TriggerSource: m.triggerSource,
		State:         models.COUNTING_DOWN_SESSION,
		ArmedAt:       time.Now(),
	}
	if err := m.params.Store.Create(session); err != nil {
		logg.Errorf("unable to persist emergency session for user %v: %v", m.params.UserID, err)
		return uint(time.Now().UnixNano() / 1e6)
	}
	return session.ID
}

func (m *Manager) updateSession(id uint, data map[string]interface{}) {
	if m.params.Store == nil {
		return
	}
	if err := m.params.Store.Update(id, data); err != nil {
		logg.Errorf("unable to update emergency session %v: %v", id, err)
	}
}
