package hook

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/dshills/starhook/internal/event/events"
)

const (
	programmerCause    = "Programmer issued save"
	programmerLocation = "unspecified"
)

// AfterSave adds a callback run after every natural save, whether or not
// the write succeeded.
func (b *Bridge) AfterSave(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.postSave = append(b.postSave, fn)
}

// Saving reports whether a natural save is in progress.
func (b *Bridge) Saving() bool {
	return b.saving.Load()
}

// Save replaces the host's save routine. It publishes GalaxySaving
// strictly, so any listener error vetoes the save before the file is
// touched. Otherwise the galaxy is written to location, GalaxySavingEnd is
// published and the post-save callbacks run.
func (b *Bridge) Save(cause, location string) error {
	b.host.SetStatus("Saving galaxy: " + cause)
	log := b.log.With().Str("location", location).Logger()
	log.Info().Str("cause", cause).Msg("saving state to disk")

	b.saving.Store(true)
	defer b.saving.Store(false)

	if err := b.bus.PublishStrict(events.NewGalaxySaving(cause, location, true)); err != nil {
		log.Warn().Err(err).Msg("save vetoed")
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	err := b.writeFile(location)
	if err != nil {
		log.Error().Err(err).Msg("error while saving the state of the game")
		err = fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	b.bus.Publish(events.NewGalaxySavingEnd(location, true, err))
	b.runPostSave()
	return err
}

func (b *Bridge) writeFile(location string) (err error) {
	f, err := os.Create(location)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return b.saveHost(f)
}

// saveHost runs the host's save routine. A panic comes back as a
// *PanicError so the save events and callbacks still complete.
func (b *Bridge) saveHost(w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: "SaveState", Value: r, Stack: string(debug.Stack())}
		}
	}()
	return b.host.SaveState(w)
}

func (b *Bridge) runPostSave() {
	b.mu.Lock()
	callbacks := append([]func(){}, b.postSave...)
	b.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// SaveState writes the galaxy to w on behalf of an extension. Outside a
// natural save it is reported as an unnatural save; during one, the events
// are suppressed because Save already published them.
func (b *Bridge) SaveState(w io.Writer) error {
	natural := b.saving.Load()
	if !natural {
		b.bus.Publish(events.NewGalaxySaving(programmerCause, programmerLocation, false))
	}
	err := b.saveHost(w)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if !natural {
		b.bus.Publish(events.NewGalaxySavingEnd(programmerLocation, false, err))
	}
	return err
}
