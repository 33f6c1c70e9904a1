package sensor

import (
	"errors"
	"strings"
	"sync"
)

// Kind identifies one of the device input sources.
type Kind string

const (
	LOCATION_SENSOR Kind = "location"
	SPEECH_SENSOR   Kind = "speech"
	MOTION_SENSOR   Kind = "motion"
)

// ErrPositionUnavailable is reported when the device can't produce a GPS
// fix. Downstream treats the location as null rather than failing.
var ErrPositionUnavailable = errors.New("position unavailable")

// Sample is a raw reading from one sensor. Adapters never interpret their
// data; samples are routed to the trigger evaluator as-is.
type Sample interface {
	Kind() Kind
}

// LocationSample is a one-shot GPS fix.
type LocationSample struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (LocationSample) Kind() Kind { return LOCATION_SENSOR }

// SpeechFragment is one transcript fragment from the continuous
// speech-recognition stream. The transcript is lowercased on ingest.
type SpeechFragment struct {
	Transcript string `json:"transcript"`
}

func (SpeechFragment) Kind() Kind { return SPEECH_SENSOR }

// MotionSample is a 3-axis acceleration-including-gravity reading.
type MotionSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (MotionSample) Kind() Kind { return MOTION_SENSOR }

// Status describes one sensor as seen by the dashboard: whether the user
// has it switched on, and whether the device reported the capability at
// all. A missing capability degrades that sensor only - it never blocks
// arming, and it is a flag rather than an error.
type Status struct {
	Enabled   bool `json:"enabled"`
	Available bool `json:"available"`
}

// Hub tracks per-sensor enable/availability flags and routes samples from
// the ingestion endpoints to the registered handler.
type Hub struct {
	mu      sync.Mutex
	status  map[Kind]*Status
	handler func(Sample)
}

func NewHub(handler func(Sample)) *Hub {
	return &Hub{
		status: map[Kind]*Status{
			LOCATION_SENSOR: {Enabled: true},
			SPEECH_SENSOR:   {Enabled: true},
			MOTION_SENSOR:   {Enabled: true},
		},
		handler: handler,
	}
}

// Deliver routes a sample to the handler. The first sample from a sensor
// marks it available; samples from a disabled sensor are dropped.
func (hub *Hub) Deliver(sample Sample) {
	if s, ok := sample.(SpeechFragment); ok {
		sample = SpeechFragment{Transcript: strings.ToLower(s.Transcript)}
	}

	hub.mu.Lock()
	status := hub.status[sample.Kind()]
	status.Available = true
	enabled := status.Enabled
	handler := hub.handler
	hub.mu.Unlock()

	if !enabled || handler == nil {
		return
	}

	handler(sample)
}

// ReportUnavailable records that the device lacks the given capability.
func (hub *Hub) ReportUnavailable(kind Kind) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if status, ok := hub.status[kind]; ok {
		status.Available = false
	}
}

// SetEnabled flips the user's toggle for one sensor.
func (hub *Hub) SetEnabled(kind Kind, enabled bool) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if status, ok := hub.status[kind]; ok {
		status.Enabled = enabled
	}
}

// StatusOf returns a snapshot of one sensor's flags.
func (hub *Hub) StatusOf(kind Kind) Status {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if status, ok := hub.status[kind]; ok {
		return *status
	}
	return Status{}
}

// Snapshot returns all sensor flags keyed by sensor kind.
func (hub *Hub) Snapshot() map[Kind]Status {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	snapshot := make(map[Kind]Status, len(hub.status))
	for kind, status := range hub.status {
		snapshot[kind] = *status
	}
	return snapshot
}
