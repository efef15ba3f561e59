package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
)

// testExec queues callbacks so tests run them on the test goroutine
type testExec chan func()

func (e testExec) exec(f func()) { e <- f }

// drain runs every queued callback without blocking
func (e testExec) drain() int {
	n := 0
	for {
		select {
		case f := <-e:
			f()
			n++
		default:
			return n
		}
	}
}

// wait runs the next queued callback, failing after timeout
func (e testExec) wait(t *testing.T) {
	t.Helper()
	select {
	case f := <-e:
		f()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func newTestChannel(t *testing.T) (*Channel, *MixerSink, testExec, string) {
	t.Helper()
	dir := t.TempDir()
	if err := SeedDefaults(dir); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	sink := NewMixerSink(beep.SampleRate(constant.AudioSampleRate))
	exec := make(testExec, 64)
	return NewChannel(sink, exec.exec), sink, exec, dir
}

func loadRole(t *testing.T, ch *Channel, exec testExec, role core.Role, path string) error {
	t.Helper()
	var result error
	ch.Load(role, path, func(err error) { result = err })
	exec.wait(t)
	return result
}

func cuePath(dir string, role core.Role) string {
	return filepath.Join(dir, role.String()+".wav")
}

// TestSeedDefaultsWritesCues verifies all five cues are written and existing files kept
func TestSeedDefaultsWritesCues(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "add.wav")
	if err := os.WriteFile(custom, []byte("mine"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := SeedDefaults(dir); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}

	for _, r := range core.Roles() {
		info, err := os.Stat(cuePath(dir, r))
		if err != nil {
			t.Fatalf("missing cue for %s: %v", r, err)
		}
		if r != core.RoleAdd && info.Size() < 1000 {
			t.Errorf("cue %s suspiciously small: %d bytes", r, info.Size())
		}
	}

	data, _ := os.ReadFile(custom)
	if string(data) != "mine" {
		t.Error("existing file was overwritten")
	}
}

// TestChannelLoadAndPlay verifies a decoded one-shot plays to completion
func TestChannelLoadAndPlay(t *testing.T) {
	ch, sink, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleAdd, cuePath(dir, core.RoleAdd)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ch.Loaded(core.RoleAdd) {
		t.Fatal("Expected add to be loaded")
	}

	d := ch.Duration(core.RoleAdd)
	if diff := d - constant.AddSoundDuration; diff < -2*time.Millisecond || diff > 2*time.Millisecond {
		t.Errorf("Duration = %v, want ~%v", d, constant.AddSoundDuration)
	}

	if err := ch.Play(core.RoleAdd, 0.5, false); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if ch.Playing(core.RoleAdd) != 1 || sink.Active() != 1 {
		t.Fatalf("Expected one live instance, got %d (mixer %d)", ch.Playing(core.RoleAdd), sink.Active())
	}

	sink.Pull(sink.SampleRate().N(200 * time.Millisecond))
	if ch.Playing(core.RoleAdd) != 0 {
		t.Error("Expected one-shot to complete")
	}
	if sink.Active() != 0 {
		t.Error("Expected mixer to drop finished streamer")
	}
}

// TestChannelOnFinishedOneShot verifies queued callbacks fire once per natural completion
func TestChannelOnFinishedOneShot(t *testing.T) {
	ch, sink, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleDiffOpen, cuePath(dir, core.RoleDiffOpen)); err != nil {
		t.Fatal(err)
	}

	var order []int
	ch.OnFinished(core.RoleDiffOpen, func() { order = append(order, 1) })
	ch.OnFinished(core.RoleDiffOpen, func() { order = append(order, 2) })

	if err := ch.Play(core.RoleDiffOpen, 1, false); err != nil {
		t.Fatal(err)
	}
	sink.Pull(sink.SampleRate().N(time.Second))
	exec.drain()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("callbacks = %v, want [1 2]", order)
	}

	// Callbacks were consumed
	if err := ch.Play(core.RoleDiffOpen, 1, false); err != nil {
		t.Fatal(err)
	}
	sink.Pull(sink.SampleRate().N(time.Second))
	exec.drain()
	if len(order) != 2 {
		t.Errorf("callbacks fired again: %v", order)
	}
}

// TestChannelOverlap verifies one-shots of the same role overlap
func TestChannelOverlap(t *testing.T) {
	ch, sink, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleRemove, cuePath(dir, core.RoleRemove)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := ch.Play(core.RoleRemove, 1, false); err != nil {
			t.Fatal(err)
		}
	}
	if got := ch.Playing(core.RoleRemove); got != 3 {
		t.Errorf("Playing = %d, want 3", got)
	}
	if got := sink.Active(); got != 3 {
		t.Errorf("mixer Active = %d, want 3", got)
	}
}

// TestChannelStopKeepsCallbacks verifies Stop does not fire or clear finished callbacks
func TestChannelStopKeepsCallbacks(t *testing.T) {
	ch, sink, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleDiffClose, cuePath(dir, core.RoleDiffClose)); err != nil {
		t.Fatal(err)
	}

	fired := 0
	ch.OnFinished(core.RoleDiffClose, func() { fired++ })

	if err := ch.Play(core.RoleDiffClose, 1, false); err != nil {
		t.Fatal(err)
	}
	ch.Stop(core.RoleDiffClose)
	sink.Pull(sink.SampleRate().N(time.Second))
	exec.drain()

	if fired != 0 {
		t.Fatal("Stop must not fire finished callbacks")
	}
	if sink.Active() != 0 {
		t.Error("Expected stopped streamer to leave the mixer")
	}

	if err := ch.Play(core.RoleDiffClose, 1, false); err != nil {
		t.Fatal(err)
	}
	sink.Pull(sink.SampleRate().N(time.Second))
	exec.drain()
	if fired != 1 {
		t.Errorf("queued callback fired %d times after natural completion, want 1", fired)
	}
}

// TestChannelClearFinished verifies dropped callbacks never fire
func TestChannelClearFinished(t *testing.T) {
	ch, sink, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleAdd, cuePath(dir, core.RoleAdd)); err != nil {
		t.Fatal(err)
	}

	fired := false
	ch.OnFinished(core.RoleAdd, func() { fired = true })
	ch.ClearFinished(core.RoleAdd)

	if err := ch.Play(core.RoleAdd, 1, false); err != nil {
		t.Fatal(err)
	}
	sink.Pull(sink.SampleRate().N(time.Second))
	exec.drain()
	if fired {
		t.Error("cleared callback fired")
	}
}

// TestChannelLoop verifies looping playback runs until stopped
func TestChannelLoop(t *testing.T) {
	ch, sink, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleDiffActive, cuePath(dir, core.RoleDiffActive)); err != nil {
		t.Fatal(err)
	}

	if err := ch.Play(core.RoleDiffActive, 0.8, true); err != nil {
		t.Fatal(err)
	}
	if !ch.Looping(core.RoleDiffActive) {
		t.Fatal("Expected loop to be running")
	}

	sink.Pull(sink.SampleRate().N(constant.ActiveSoundDuration*2 + 500*time.Millisecond))
	if !ch.Looping(core.RoleDiffActive) || sink.Active() != 1 {
		t.Fatal("Expected loop to survive past its buffer length")
	}

	ch.StopAll()
	if ch.Looping(core.RoleDiffActive) {
		t.Error("Expected loop to stop")
	}
	sink.Pull(512)
	if sink.Active() != 0 {
		t.Error("Expected stopped loop to leave the mixer")
	}
	if exec.drain() != 0 {
		t.Error("Loops must never queue completion callbacks")
	}
}

// TestChannelPlayErrors verifies unloaded and invalid roles are rejected
func TestChannelPlayErrors(t *testing.T) {
	ch, _, _, _ := newTestChannel(t)

	if err := ch.Play(core.RoleAdd, 1, false); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Play unloaded: got %v, want ErrNotLoaded", err)
	}
	if err := ch.Play(core.RoleCount, 1, false); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Play invalid role: got %v, want ErrUnknownRole", err)
	}

	// Invalid roles are inert elsewhere
	ch.Stop(core.RoleCount)
	ch.OnFinished(core.RoleCount, func() {})
	if ch.Loaded(core.RoleCount) || ch.Duration(core.RoleCount) != 0 {
		t.Error("Invalid role reported state")
	}
}

// TestChannelUnsupportedFormat verifies unknown containers fail to load
func TestChannelUnsupportedFormat(t *testing.T) {
	ch, _, exec, dir := newTestChannel(t)
	path := filepath.Join(dir, "add.m4a")
	if err := os.WriteFile(path, []byte("not really aac"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := loadRole(t, ch, exec, core.RoleAdd, path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Load m4a: got %v, want ErrUnsupportedFormat", err)
	}
	if ch.Loaded(core.RoleAdd) {
		t.Error("Failed load must leave role unplayable")
	}
}

// TestChannelCorruptFile verifies decode errors are reported
func TestChannelCorruptFile(t *testing.T) {
	ch, _, exec, dir := newTestChannel(t)
	path := filepath.Join(dir, "broken.wav")
	if err := os.WriteFile(path, []byte("RIFFjunk"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := loadRole(t, ch, exec, core.RoleRemove, path); err == nil {
		t.Fatal("Expected decode error")
	}
	if ch.Loaded(core.RoleRemove) {
		t.Error("Corrupt file must leave role unplayable")
	}
}

// TestChannelEmptyPathUnloads verifies loading "" clears the role
func TestChannelEmptyPathUnloads(t *testing.T) {
	ch, _, exec, dir := newTestChannel(t)
	if err := loadRole(t, ch, exec, core.RoleAdd, cuePath(dir, core.RoleAdd)); err != nil {
		t.Fatal(err)
	}

	if err := loadRole(t, ch, exec, core.RoleAdd, ""); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Load empty: got %v, want ErrNotLoaded", err)
	}
	if ch.Loaded(core.RoleAdd) || ch.Path(core.RoleAdd) != "" {
		t.Error("Expected role to be unloaded")
	}
}

// TestChannelLatestLoadWins verifies a superseded load never replaces a newer one
func TestChannelLatestLoadWins(t *testing.T) {
	ch, _, exec, dir := newTestChannel(t)

	ch.Load(core.RoleAdd, cuePath(dir, core.RoleRemove), nil)
	ch.Load(core.RoleAdd, cuePath(dir, core.RoleDiffClose), func(error) {})

	want := constant.CloseSoundNote1Duration + constant.CloseSoundNote2Duration
	deadline := time.After(5 * time.Second)
	for {
		select {
		case f := <-exec:
			f()
		case <-deadline:
			t.Fatal("newest load never completed")
		}
		if d := ch.Duration(core.RoleAdd); d > want-5*time.Millisecond && d < want+5*time.Millisecond {
			break
		}
	}
	if ch.Path(core.RoleAdd) != cuePath(dir, core.RoleDiffClose) {
		t.Errorf("Path = %s, want newest", ch.Path(core.RoleAdd))
	}
}
