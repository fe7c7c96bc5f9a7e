// Package model provides the shared foundation for predsql estimators.
//
// It contains:
//
//   - StateManager: fitted-state and dimension tracking, held by composition
//     in every estimator
//   - Model persistence: save and load trained models using encoding/gob
//   - scikit-learn compatibility: import linear models exported from Python
//
// Estimators compose a StateManager rather than embedding it, so the
// estimator's own method set stays explicit:
//
//	type MyModel struct {
//		State *model.StateManager
//		// model-specific fields
//	}
//
//	func (m *MyModel) Fit(X, y mat.Matrix) error {
//		// training logic
//		m.State.SetFitted()
//		return nil
//	}
package model

import "sync"

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// StateManager tracks whether an estimator has been fitted and the shape of
// the data it was fitted on. All methods are safe for concurrent use.
// Fields are exported for gob encoding; use the methods for access.
type StateManager struct {
	mu sync.RWMutex

	// State holds the model's learning state. Public for gob encoding.
	State EstimatorState

	// NumFeatures is the feature count seen at fit time.
	NumFeatures int

	// NumSamples is the sample count seen at fit time.
	NumSamples int
}

// NewStateManager creates a StateManager in the NotFitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the estimator has been fitted with training data.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State == Fitted
}

// SetFitted marks the estimator as fitted (trained). Called by model
// implementations after successful training, not by end users.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = NotFitted
	s.NumFeatures = 0
	s.NumSamples = 0
}

// SetDimensions records the shape of the training data.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumFeatures = nFeatures
	s.NumSamples = nSamples
}

// NFeatures returns the feature count recorded at fit time.
func (s *StateManager) NFeatures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NumFeatures
}

// NSamples returns the sample count recorded at fit time.
func (s *StateManager) NSamples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NumSamples
}
