package ml

import (
	"fmt"
	"sync/atomic"
)

// Artifacts is the immutable pair of loaded collaborators the core
// needs: the classifier and its encoder table. A reload swaps the whole
// pair so no request ever sees a half-updated state.
type Artifacts struct {
	Model    Classifier
	Encoders *EncoderTable
}

// ArtifactStore loads and holds the current artifacts. The service must
// not serve requests until Load has succeeded once.
type ArtifactStore struct {
	modelType   string
	modelPath   string
	encoderPath string

	current atomic.Pointer[Artifacts]
}

func NewArtifactStore(modelType, modelPath, encoderPath string) *ArtifactStore {
	return &ArtifactStore{
		modelType:   modelType,
		modelPath:   modelPath,
		encoderPath: encoderPath,
	}
}

// Load reads both artifacts from disk and installs them atomically.
// Either both load or the previously installed pair stays in place.
func (s *ArtifactStore) Load() error {
	model, err := LoadModel(s.modelType, s.modelPath)
	if err != nil {
		return fmt.Errorf("model artifact: %w", err)
	}
	encoders, err := LoadEncoders(s.encoderPath)
	if err != nil {
		return fmt.Errorf("encoder artifact: %w", err)
	}
	s.current.Store(&Artifacts{Model: model, Encoders: encoders})
	return nil
}

// Install replaces the current pair directly, bypassing disk. Used by
// tests and by callers that already hold loaded artifacts.
func (s *ArtifactStore) Install(artifacts *Artifacts) {
	s.current.Store(artifacts)
}

// Current returns the installed artifact pair, or nil before the first
// successful Load.
func (s *ArtifactStore) Current() *Artifacts {
	return s.current.Load()
}

// Paths returns the watched artifact file paths.
func (s *ArtifactStore) Paths() (model, encoders string) {
	return s.modelPath, s.encoderPath
}
