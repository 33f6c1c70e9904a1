package trigger

import (
	"testing"
	"time"

	"github.com/HARINII2415/femina360/server/sensor"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		ShakeThreshold: 20.0,
		ShakeDebounce:  20 * time.Millisecond,
		ShakeDecay:     250 * time.Millisecond,
		ShakesToFire:   3,
		VoiceKeyword:   "help",
		VoiceToFire:    5,
	}
}

func strongShake() sensor.MotionSample {
	// magnitude = sqrt(15^2 + 15^2 + 15^2) ~= 25.98
	return sensor.MotionSample{X: 15, Y: 15, Z: 15}
}

func TestShakeTriggerFiresAfterThreeShakes(t *testing.T) {
	var fired []Source
	ev := NewEvaluator(testConfig(), func(source Source) { fired = append(fired, source) })

	for i := 0; i < 3; i++ {
		ev.HandleSample(strongShake())
		time.Sleep(30 * time.Millisecond)
	}

	assert.Equal(t, []Source{SHAKE_TRIGGER}, fired)
	assert.Equal(t, 0, ev.Counts().Shakes, "counter resets after firing")
}

func TestWeakMotionDoesNotCount(t *testing.T) {
	ev := NewEvaluator(testConfig(), func(Source) { t.Fatal("should not fire") })

	// magnitude ~= 17.3, below the threshold of 20
	for i := 0; i < 10; i++ {
		ev.HandleSample(sensor.MotionSample{X: 10, Y: 10, Z: 10})
	}

	assert.Equal(t, 0, ev.Counts().Shakes)
}

func TestShakeDebounceAbsorbsRapidSamples(t *testing.T) {
	ev := NewEvaluator(testConfig(), func(Source) { t.Fatal("should not fire") })

	// A burst inside the debounce window counts as a single shake.
	for i := 0; i < 5; i++ {
		ev.HandleSample(strongShake())
	}

	assert.Equal(t, 1, ev.Counts().Shakes)
}

func TestShakeCounterDecays(t *testing.T) {
	ev := NewEvaluator(testConfig(), func(Source) { t.Fatal("should not fire") })

	ev.HandleSample(strongShake())
	time.Sleep(30 * time.Millisecond)
	ev.HandleSample(strongShake())
	assert.Equal(t, 2, ev.Counts().Shakes)

	// Wait past the decay window; the next shake starts over at 1.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, ev.Counts().Shakes)

	ev.HandleSample(strongShake())
	assert.Equal(t, 1, ev.Counts().Shakes)
}

func TestVoiceTriggerFiresAfterFiveKeywords(t *testing.T) {
	var fired []Source
	ev := NewEvaluator(testConfig(), func(source Source) { fired = append(fired, source) })

	for i := 0; i < 4; i++ {
		ev.HandleSample(sensor.SpeechFragment{Transcript: "please help me"})
	}
	assert.Empty(t, fired)
	assert.Equal(t, 4, ev.Counts().Voice)

	ev.HandleSample(sensor.SpeechFragment{Transcript: "HELP"})
	assert.Equal(t, []Source{VOICE_TRIGGER}, fired)
	assert.Equal(t, 0, ev.Counts().Voice, "counter resets after firing")
}

func TestVoiceIgnoresOtherSpeech(t *testing.T) {
	ev := NewEvaluator(testConfig(), func(Source) { t.Fatal("should not fire") })

	for i := 0; i < 10; i++ {
		ev.HandleSample(sensor.SpeechFragment{Transcript: "hello there"})
	}

	assert.Equal(t, 0, ev.Counts().Voice)
}

func TestResetVoiceSession(t *testing.T) {
	ev := NewEvaluator(testConfig(), nil)

	ev.HandleSample(sensor.SpeechFragment{Transcript: "help"})
	ev.HandleSample(sensor.SpeechFragment{Transcript: "help"})
	assert.Equal(t, 2, ev.Counts().Voice)

	ev.ResetVoiceSession()
	assert.Equal(t, 0, ev.Counts().Voice)
}

func TestResetClearsAllCounters(t *testing.T) {
	ev := NewEvaluator(testConfig(), nil)

	ev.HandleSample(strongShake())
	ev.HandleSample(sensor.SpeechFragment{Transcript: "help"})

	ev.Reset()

	counts := ev.Counts()
	assert.Equal(t, 0, counts.Shakes)
	assert.Equal(t, 0, counts.Voice)
}

func TestLocationSamplesCarryNoTriggerSemantics(t *testing.T) {
	ev := NewEvaluator(testConfig(), func(Source) { t.Fatal("should not fire") })

	ev.HandleSample(sensor.LocationSample{Lat: 43.65, Lng: -79.38})

	counts := ev.Counts()
	assert.Equal(t, 0, counts.Shakes)
	assert.Equal(t, 0, counts.Voice)
}
