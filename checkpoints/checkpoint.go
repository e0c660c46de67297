// Package checkpoints persists trained models to disk and brings them
// back. A checkpoint is self-describing: it carries the full model
// architecture alongside the weights, so a saved model can be rebuilt
// for inference without the code that configured it.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/UNO-CSCI4830/SureSight/layers"
)

// FormatVersion identifies the checkpoint schema
const FormatVersion = "1.0.0"

// Framework names the producer in checkpoint metadata
const Framework = "suresight"

// WeightTensor is one parameter tensor with its values
type WeightTensor struct {
	Name  string    `json:"name"`
	Layer string    `json:"layer"`
	Type  string    `json:"type"` // "weight" or "bias"
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// TrainingState records where training stood when the checkpoint was
// written.
type TrainingState struct {
	Epoch       int     `json:"epoch"`
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
}

// Metadata describes the checkpoint itself
type Metadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// Checkpoint is a complete persisted model: architecture, weights, and
// training progress.
type Checkpoint struct {
	ModelSpec     layers.ModelSpec `json:"model_spec"`
	Weights       []WeightTensor   `json:"weights"`
	TrainingState TrainingState    `json:"training_state"`
	Metadata      Metadata         `json:"metadata"`
}

// Snapshot captures the model's current architecture and weights
func Snapshot(model *layers.Sequential, state TrainingState) *Checkpoint {
	params := model.Params()
	weights := make([]WeightTensor, 0, len(params))
	for _, p := range params {
		layer, kind := splitParamName(p.Name)
		weights = append(weights, WeightTensor{
			Name:  p.Name,
			Layer: layer,
			Type:  kind,
			Shape: append([]int(nil), p.Value.Shape...),
			Data:  append([]float32(nil), p.Value.Float32s()...),
		})
	}
	return &Checkpoint{
		ModelSpec:     model.Spec(),
		Weights:       weights,
		TrainingState: state,
		Metadata: Metadata{
			Version:   FormatVersion,
			Framework: Framework,
			CreatedAt: time.Now().UTC(),
		},
	}
}

// Save writes the checkpoint as indented JSON. The file appears
// atomically: a partially written checkpoint never replaces a good one.
func Save(cp *Checkpoint, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*.json")
	if err != nil {
		return fmt.Errorf("create checkpoint file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		tmp.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace checkpoint %s: %w", path, err)
	}
	return nil
}

// Load reads a checkpoint back from disk
func Load(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if len(cp.ModelSpec.Layers) == 0 {
		return nil, fmt.Errorf("checkpoint %s contains no model spec", path)
	}
	return &cp, nil
}

// Restore writes the checkpoint's weights into a model with a matching
// architecture. Every parameter must find a weight of the same name and
// shape.
func Restore(cp *Checkpoint, model *layers.Sequential) error {
	byName := make(map[string]*WeightTensor, len(cp.Weights))
	for i := range cp.Weights {
		byName[cp.Weights[i].Name] = &cp.Weights[i]
	}

	for _, p := range model.Params() {
		w, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf("checkpoint has no weights for parameter %s", p.Name)
		}
		if !shapesEqual(w.Shape, p.Value.Shape) {
			return fmt.Errorf("parameter %s: checkpoint shape %v does not match model shape %v", p.Name, w.Shape, p.Value.Shape)
		}
		copy(p.Value.Float32s(), w.Data)
	}
	return nil
}

// Rebuild reconstructs a ready-to-use model from a checkpoint alone
func Rebuild(cp *Checkpoint, seed int64) (*layers.Sequential, error) {
	model, err := layers.FromSpec(cp.ModelSpec, seed)
	if err != nil {
		return nil, err
	}
	if err := Restore(cp, model); err != nil {
		return nil, fmt.Errorf("restore weights: %w", err)
	}
	return model, nil
}

func splitParamName(name string) (layer, kind string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
