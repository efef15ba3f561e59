package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
)

// Waveform types
const (
	waveSine = iota
	waveTriangle
	waveSquare
)

// floatBuffer is mono float64 samples at unity gain
type floatBuffer []float64

// sweep generates a waveform gliding linearly from freqStart to freqEnd
func sweep(waveType int, freqStart, freqEnd float64, d time.Duration) floatBuffer {
	samples := durationToSamples(d)
	buf := make(floatBuffer, samples)
	phase := 0.0

	for i := 0; i < samples; i++ {
		switch waveType {
		case waveSine:
			buf[i] = math.Sin(2 * math.Pi * phase)
		case waveTriangle:
			buf[i] = 4*math.Abs(phase-0.5) - 1
		case waveSquare:
			if phase < 0.5 {
				buf[i] = 1.0
			} else {
				buf[i] = -1.0
			}
		}

		progress := float64(i) / float64(samples)
		freq := freqStart + (freqEnd-freqStart)*progress
		phase += freq / float64(constant.AudioSampleRate)
		if phase >= 1.0 {
			phase -= 1.0
		}
	}
	return buf
}

// applyEnvelope applies attack/release envelope in place
func applyEnvelope(buf floatBuffer, attack, release time.Duration) {
	total := len(buf)
	attackSamples := durationToSamples(attack)
	releaseSamples := durationToSamples(release)

	releaseStart := total - releaseSamples
	if releaseStart < attackSamples {
		releaseStart = attackSamples
	}

	for i := 0; i < total; i++ {
		vol := 1.0
		if i < attackSamples && attackSamples > 0 {
			vol = float64(i) / float64(attackSamples)
		} else if i >= releaseStart && releaseSamples > 0 {
			vol = float64(total-i) / float64(releaseSamples)
		}
		buf[i] *= vol
	}
}

// scale multiplies buf in place
func scale(buf floatBuffer, gain float64) floatBuffer {
	for i := range buf {
		buf[i] *= gain
	}
	return buf
}

// concatFloatBuffers appends b to a
func concatFloatBuffers(a, b floatBuffer) floatBuffer {
	result := make(floatBuffer, len(a)+len(b))
	copy(result, a)
	copy(result[len(a):], b)
	return result
}

func durationToSamples(d time.Duration) int {
	return int(d.Seconds() * float64(constant.AudioSampleRate))
}

// --- Cue Generators (unity gain, shaped) ---

func generateAddSound() floatBuffer {
	buf := sweep(waveSine, constant.AddSoundFreqLow, constant.AddSoundFreqHigh, constant.AddSoundDuration)
	applyEnvelope(buf, constant.AddSoundAttack, constant.AddSoundRelease)
	return scale(buf, 0.6)
}

func generateRemoveSound() floatBuffer {
	buf := sweep(waveTriangle, constant.RemoveSoundFreqHigh, constant.RemoveSoundFreqLow, constant.RemoveSoundDuration)
	applyEnvelope(buf, constant.RemoveSoundAttack, constant.RemoveSoundRelease)
	return scale(buf, 0.6)
}

func generateOpenSound() floatBuffer {
	// G5 then C6
	n1 := sweep(waveSine, 783.99, 783.99, constant.OpenSoundNote1Duration)
	applyEnvelope(n1, constant.OpenSoundAttack, constant.OpenSoundNote1Release)
	n2 := sweep(waveSine, 1046.50, 1046.50, constant.OpenSoundNote2Duration)
	applyEnvelope(n2, constant.OpenSoundAttack, constant.OpenSoundNote2Release)
	return scale(concatFloatBuffers(n1, n2), 0.5)
}

func generateActiveSound() floatBuffer {
	// Whole number of cycles over the loop so the seam is click-free
	samples := durationToSamples(constant.ActiveSoundDuration)
	buf := make(floatBuffer, samples)
	for i := range buf {
		t := float64(i) / float64(constant.AudioSampleRate)
		swell := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(samples))
		buf[i] = constant.ActiveSoundLevel * (0.6 + 0.4*swell) *
			(math.Sin(2*math.Pi*constant.ActiveSoundFreq*t) + 0.3*math.Sin(2*math.Pi*constant.ActiveSoundFreq*1.5*t))
	}
	return buf
}

func generateCloseSound() floatBuffer {
	// C6 then G5
	n1 := sweep(waveSine, 1046.50, 1046.50, constant.CloseSoundNote1Duration)
	applyEnvelope(n1, constant.CloseSoundAttack, constant.CloseSoundNote1Release)
	n2 := sweep(waveSine, 783.99, 783.99, constant.CloseSoundNote2Duration)
	applyEnvelope(n2, constant.CloseSoundAttack, constant.CloseSoundNote2Release)
	return scale(concatFloatBuffers(n1, n2), 0.5)
}

// generateSound dispatches to the cue generator for role
func generateSound(role core.Role) floatBuffer {
	switch role {
	case core.RoleAdd:
		return generateAddSound()
	case core.RoleRemove:
		return generateRemoveSound()
	case core.RoleDiffOpen:
		return generateOpenSound()
	case core.RoleDiffActive:
		return generateActiveSound()
	case core.RoleDiffClose:
		return generateCloseSound()
	default:
		return nil
	}
}

// streamer exposes a mono buffer as a stereo beep streamer
func (b floatBuffer) streamer() beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(b) {
			return 0, false
		}
		n := copy2(samples, b[pos:])
		pos += n
		return n, true
	})
}

func copy2(dst [][2]float64, src floatBuffer) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}

// SeedDefaults synthesises the five bundled cues as <role>.wav into dir
// Existing files are left alone
func SeedDefaults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(constant.AudioSampleRate),
		NumChannels: constant.AudioChannels,
		Precision:   constant.AudioPrecision,
	}

	for _, r := range core.Roles() {
		path := filepath.Join(dir, r.String()+".wav")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writeWAV(path, generateSound(r).streamer(), format); err != nil {
			return fmt.Errorf("seed %s: %w", r, err)
		}
	}
	return nil
}

func writeWAV(path string, s beep.Streamer, format beep.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wav.Encode(f, s, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
