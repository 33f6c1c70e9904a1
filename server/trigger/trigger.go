package trigger

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/HARINII2415/femina360/server/sensor"
)

// Source identifies what fired an emergency trigger.
type Source string

const (
	SHAKE_TRIGGER  Source = "shake"
	VOICE_TRIGGER  Source = "voice"
	MANUAL_TRIGGER Source = "manual"
)

const (
	// Acceleration magnitude (device units, gravity included) above which
	// a motion sample counts as a shake.
	DefaultShakeThreshold = 20.0
	// Minimum spacing between two qualifying shakes.
	DefaultShakeDebounce = 100 * time.Millisecond
	// A gap longer than this resets the shake counter.
	DefaultShakeDecay = 2 * time.Second

	DefaultShakesToFire = 3
	DefaultVoiceKeyword = "help"
	DefaultVoiceToFire  = 5
)

type Config struct {
	ShakeThreshold float64
	ShakeDebounce  time.Duration
	ShakeDecay     time.Duration
	ShakesToFire   int
	VoiceKeyword   string
	VoiceToFire    int
}

func DefaultConfig() Config {
	return Config{
		ShakeThreshold: DefaultShakeThreshold,
		ShakeDebounce:  DefaultShakeDebounce,
		ShakeDecay:     DefaultShakeDecay,
		ShakesToFire:   DefaultShakesToFire,
		VoiceKeyword:   DefaultVoiceKeyword,
		VoiceToFire:    DefaultVoiceToFire,
	}
}

// Counts is a snapshot of the evaluator's running counters, shown on the
// dashboard progress bars.
type Counts struct {
	Shakes int `json:"shakes"`
	Voice  int `json:"voice"`
}

// Evaluator converts raw sensor samples into discrete trigger signals.
// All counter state lives on the instance; the fire callback receives the
// source so the emergency state machine can record what tripped it.
type Evaluator struct {
	mu     sync.Mutex
	config Config
	onFire func(Source)

	shakeCount  int
	lastShakeAt time.Time
	decayTimer  *time.Timer

	voiceCount int
}

func NewEvaluator(config Config, onFire func(Source)) *Evaluator {
	if config.ShakeThreshold == 0 {
		config = DefaultConfig()
	}

	return &Evaluator{config: config, onFire: onFire}
}

// HandleSample feeds one sensor sample through the counters. Location
// samples carry no trigger semantics and pass through untouched.
func (ev *Evaluator) HandleSample(sample sensor.Sample) {
	switch s := sample.(type) {
	case sensor.MotionSample:
		ev.handleMotion(s)
	case sensor.SpeechFragment:
		ev.handleSpeech(s)
	}
}

func (ev *Evaluator) handleMotion(s sensor.MotionSample) {
	magnitude := math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	if magnitude <= ev.config.ShakeThreshold {
		return
	}

	var fire bool

	ev.mu.Lock()
	now := time.Now()
	if !ev.lastShakeAt.IsZero() && now.Sub(ev.lastShakeAt) < ev.config.ShakeDebounce {
		ev.mu.Unlock()
		return
	}

	ev.lastShakeAt = now
	ev.shakeCount++

	if ev.decayTimer != nil {
		ev.decayTimer.Stop()
	}
	ev.decayTimer = time.AfterFunc(ev.config.ShakeDecay, ev.resetShakes)

	if ev.shakeCount >= ev.config.ShakesToFire {
		ev.shakeCount = 0
		ev.decayTimer.Stop()
		fire = true
	}
	ev.mu.Unlock()

	if fire {
		ev.fire(SHAKE_TRIGGER)
	}
}

func (ev *Evaluator) handleSpeech(s sensor.SpeechFragment) {
	if !strings.Contains(strings.ToLower(s.Transcript), ev.config.VoiceKeyword) {
		return
	}

	var fire bool

	ev.mu.Lock()
	ev.voiceCount++
	if ev.voiceCount >= ev.config.VoiceToFire {
		ev.voiceCount = 0
		fire = true
	}
	ev.mu.Unlock()

	if fire {
		ev.fire(VOICE_TRIGGER)
	}
}

// ResetVoiceSession zeroes the voice counter. Called when the client's
// recognition stream restarts - the counter is scoped to one session.
func (ev *Evaluator) ResetVoiceSession() {
	ev.mu.Lock()
	ev.voiceCount = 0
	ev.mu.Unlock()
}

// Reset zeroes all counters, e.g. after a trigger has been handled.
func (ev *Evaluator) Reset() {
	ev.mu.Lock()
	ev.shakeCount = 0
	ev.voiceCount = 0
	ev.lastShakeAt = time.Time{}
	if ev.decayTimer != nil {
		ev.decayTimer.Stop()
	}
	ev.mu.Unlock()
}

// Counts returns the current counter values.
func (ev *Evaluator) Counts() Counts {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	return Counts{Shakes: ev.shakeCount, Voice: ev.voiceCount}
}

func (ev *Evaluator) resetShakes() {
	ev.mu.Lock()
	ev.shakeCount = 0
	ev.lastShakeAt = time.Time{}
	ev.mu.Unlock()
}

func (ev *Evaluator) fire(source Source) {
	if ev.onFire != nil {
		ev.onFire(source)
	}
}
