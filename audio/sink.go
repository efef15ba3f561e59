package audio

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/diffsound/constant"
)

// Sink is the output a Channel plays into
// Lock/Unlock must exclude the goroutine that pulls samples, so Ctrl mutation is race-free
type Sink interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

var (
	speakerOnce sync.Once
	speakerErr  error
)

// speakerSink drives the system audio device through beep/speaker
type speakerSink struct {
	rate beep.SampleRate
}

// NewSpeakerSink initialises the audio device once per process
// A failure leaves the caller to fall back to a silent sink
func NewSpeakerSink() (Sink, error) {
	rate := beep.SampleRate(constant.AudioSampleRate)
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(constant.AudioBufferDuration))
	})
	if speakerErr != nil {
		return nil, speakerErr
	}
	return &speakerSink{rate: rate}, nil
}

func (s *speakerSink) SampleRate() beep.SampleRate { return s.rate }
func (s *speakerSink) Play(st beep.Streamer)       { speaker.Play(st) }
func (s *speakerSink) Lock()                       { speaker.Lock() }
func (s *speakerSink) Unlock()                     { speaker.Unlock() }

// MixerSink is an in-process sink without a device
// Nothing plays until Pull is called; used for silent mode and tests
type MixerSink struct {
	rate  beep.SampleRate
	mu    sync.Mutex
	mixer beep.Mixer
}

// NewMixerSink creates a device-less sink at the given rate
func NewMixerSink(rate beep.SampleRate) *MixerSink {
	return &MixerSink{rate: rate}
}

func (m *MixerSink) SampleRate() beep.SampleRate { return m.rate }

func (m *MixerSink) Play(st beep.Streamer) {
	m.mu.Lock()
	m.mixer.Add(st)
	m.mu.Unlock()
}

func (m *MixerSink) Lock()   { m.mu.Lock() }
func (m *MixerSink) Unlock() { m.mu.Unlock() }

// Pull streams n samples through the mixer, advancing every active streamer
// Finished streamers fire their callbacks and are dropped
func (m *MixerSink) Pull(n int) {
	buf := make([][2]float64, 512)
	m.mu.Lock()
	defer m.mu.Unlock()
	for n > 0 {
		chunk := buf
		if n < len(chunk) {
			chunk = chunk[:n]
		}
		m.mixer.Stream(chunk)
		n -= len(chunk)
	}
}

// Active returns the number of streamers still in the mixer
func (m *MixerSink) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

// Discard drops every streamer without firing callbacks
func (m *MixerSink) Discard() {
	m.mu.Lock()
	m.mixer.Clear()
	m.mu.Unlock()
}
