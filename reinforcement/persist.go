package reinforcement

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Model files are a gob-encoded modelFile. The header fields make the container
// self-describing so that shape mismatches are told apart from corrupt data.
const (
	MODEL_MAGIC   = "PKQT"
	MODEL_VERSION = 1
	MODEL_DTYPE   = "float64"
	// DEFAULT_MODEL_PATH is where the drivers look for a trained table.
	DEFAULT_MODEL_PATH = "modelo_parking.gob"
)

type modelFile struct {
	Magic   string
	Version int
	DType   string
	Shape   []int
	Values  []float64
}

var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound error = errors.New("model not found")
	// ErrModelUnreadable is returned when the model file exists but cannot be read.
	ErrModelUnreadable error = errors.New("model unreadable")
	// ErrModelCorrupt is returned when the content is not a well-formed model container.
	ErrModelCorrupt error = errors.New("model corrupt")
	// ErrModelVersion is returned for a well-formed container of an unsupported version.
	ErrModelVersion error = errors.New("unsupported model version")
	// ErrModelShape is returned when the stored table does not match the agent's table.
	ErrModelShape error = errors.New("model shape mismatch")
)

// Save writes the value table to path. The file is replaced atomically, so a crash
// mid-write never leaves a partial model behind.
func (agent *Agent) Save(path string) (err error) {
	model := modelFile{
		Magic:   MODEL_MAGIC,
		Version: MODEL_VERSION,
		DType:   MODEL_DTYPE,
		Shape:   agent.table.Shape(),
		Values:  agent.table.Snapshot(),
	}

	var tmp *os.File
	if tmp, err = os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp"); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = gob.NewEncoder(tmp).Encode(&model); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save encode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("save close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save rename: %w", err)
	}
	return nil
}

// Load restores the value table from path. On any failure the table is left exactly
// as it was. On success exploration is switched off, since a loaded table is assumed
// to be trained.
func (agent *Agent) Load(path string) (err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, ErrModelNotFound)
		}
		return fmt.Errorf("load %s: %w: %v", path, ErrModelUnreadable, err)
	}
	defer f.Close()

	model := modelFile{}
	if err = gob.NewDecoder(f).Decode(&model); err != nil {
		return fmt.Errorf("load %s: %w: %v", path, ErrModelCorrupt, err)
	}
	if err = agent.validate(&model); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err = agent.table.Restore(model.Values); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	agent.epsilon = 0
	return nil
}

func (agent *Agent) validate(model *modelFile) error {
	if model.Magic != MODEL_MAGIC || model.DType != MODEL_DTYPE {
		return fmt.Errorf("%w: header %q/%q", ErrModelCorrupt, model.Magic, model.DType)
	}
	if model.Version != MODEL_VERSION {
		return fmt.Errorf("%w: %d", ErrModelVersion, model.Version)
	}

	size := 1
	for _, dim := range model.Shape {
		size *= dim
	}
	if len(model.Shape) == 0 || size != len(model.Values) {
		return fmt.Errorf("%w: %d values for shape %v", ErrModelCorrupt, len(model.Values), model.Shape)
	}

	want := agent.table.Shape()
	if len(want) != len(model.Shape) {
		return fmt.Errorf("%w: have %v, want %v", ErrModelShape, model.Shape, want)
	}
	for i := range want {
		if want[i] != model.Shape[i] {
			return fmt.Errorf("%w: have %v, want %v", ErrModelShape, model.Shape, want)
		}
	}
	return nil
}

// TryLoad is Load collapsed to a loaded-or-not outcome; the cause is only logged.
// The agent stays usable either way.
func (agent *Agent) TryLoad(path string) bool {
	if err := agent.Load(path); err != nil {
		log.Printf("no model loaded, acting untrained: %v", err)
		return false
	}
	log.Printf("model loaded from %s", path)
	return true
}
