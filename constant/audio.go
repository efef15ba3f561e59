package constant

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate = 44100
	AudioChannels   = 2
	AudioPrecision  = 2 // Bytes per sample when encoding WAV

	// AudioBufferDuration determines speaker latency
	AudioBufferDuration = 50 * time.Millisecond

	// AudioResampleQuality is passed to beep.Resample for files not at AudioSampleRate
	AudioResampleQuality = 4
)

// Add Cue (rising blip)
const (
	AddSoundDuration = 90 * time.Millisecond
	AddSoundAttack   = 4 * time.Millisecond
	AddSoundRelease  = 50 * time.Millisecond
	AddSoundFreqLow  = 660.0
	AddSoundFreqHigh = 990.0
)

// Remove Cue (falling blip)
const (
	RemoveSoundDuration = 90 * time.Millisecond
	RemoveSoundAttack   = 4 * time.Millisecond
	RemoveSoundRelease  = 50 * time.Millisecond
	RemoveSoundFreqHigh = 520.0
	RemoveSoundFreqLow  = 330.0
)

// Diff Open Cue (two-note chime)
const (
	OpenSoundNote1Duration = 120 * time.Millisecond
	OpenSoundNote2Duration = 260 * time.Millisecond
	OpenSoundAttack        = 5 * time.Millisecond
	OpenSoundNote1Release  = 60 * time.Millisecond
	OpenSoundNote2Release  = 200 * time.Millisecond
)

// Diff Active Loop (soft pad, loops seamlessly)
const (
	ActiveSoundDuration = 2 * time.Second
	ActiveSoundFreq     = 110.0
	ActiveSoundLevel    = 0.12
)

// Diff Close Cue (descending chime)
const (
	CloseSoundNote1Duration = 120 * time.Millisecond
	CloseSoundNote2Duration = 300 * time.Millisecond
	CloseSoundAttack        = 5 * time.Millisecond
	CloseSoundNote1Release  = 60 * time.Millisecond
	CloseSoundNote2Release  = 240 * time.Millisecond
)
