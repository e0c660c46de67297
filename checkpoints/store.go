package checkpoints

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/UNO-CSCI4830/SureSight/layers"
	"github.com/UNO-CSCI4830/SureSight/training"
)

// FileStore writes checkpoints for one model to fixed paths: the best
// checkpoint is rewritten whenever validation improves, and the final
// model is written once when training ends. It satisfies the trainer's
// artifact store interface.
type FileStore struct {
	model     *layers.Sequential
	bestPath  string
	finalPath string
}

// NewFileStore creates the store, making sure the target directories
// exist before training starts rather than failing mid-run.
func NewFileStore(model *layers.Sequential, bestPath, finalPath string) (*FileStore, error) {
	if model == nil {
		return nil, fmt.Errorf("file store requires a model")
	}
	if bestPath == "" || finalPath == "" {
		return nil, fmt.Errorf("file store requires best and final checkpoint paths")
	}
	for _, path := range []string{bestPath, finalPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
	}
	return &FileStore{model: model, bestPath: bestPath, finalPath: finalPath}, nil
}

// BestPath returns where the best checkpoint is written
func (s *FileStore) BestPath() string { return s.bestPath }

// FinalPath returns where the final model is written
func (s *FileStore) FinalPath() string { return s.finalPath }

// SaveBest snapshots the model's current weights as the best checkpoint
func (s *FileStore) SaveBest(state training.State) error {
	return Save(s.snapshot(state), s.bestPath)
}

// SaveFinal snapshots the model as the final artifact
func (s *FileStore) SaveFinal(state training.State) error {
	return Save(s.snapshot(state), s.finalPath)
}

func (s *FileStore) snapshot(state training.State) *Checkpoint {
	return Snapshot(s.model, TrainingState{
		Epoch:       state.Epoch,
		ValLoss:     state.ValLoss,
		ValAccuracy: state.ValAccuracy,
	})
}
