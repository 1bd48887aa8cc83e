package anomaly

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ModelFile is the artifact name inside the model directory
const ModelFile = "iforest_pipeline.json"

// Artifact is the persisted fitted pipeline: the optional scaler, the
// forest, and the contamination used at fit time. The typed wrapper means
// the scorer reads contamination directly, never by introspecting the
// model.
type Artifact struct {
	Contamination float64         `json:"contamination"`
	Scaled        bool            `json:"scaled"`
	Scaler        *StandardScaler `json:"scaler,omitempty"`
	Forest        *IsolationForest `json:"forest"`
	TrainedAt     time.Time       `json:"trained_at"`
	TrainingRows  int             `json:"training_rows"`
}

// Score applies the fitted pipeline (scaler, then forest) to the matrix;
// lower = more anomalous
func (a *Artifact) Score(matrix [][]float64) ([]float64, error) {
	if a.Forest == nil {
		return nil, ErrModelNotFitted
	}
	if a.Scaled {
		scaled, err := a.Scaler.Transform(matrix)
		if err != nil {
			return nil, fmt.Errorf("scale matrix: %w", err)
		}
		matrix = scaled
	}
	return a.Forest.Score(matrix)
}

// Predict labels the matrix against the model's own fitted decision boundary
func (a *Artifact) Predict(matrix [][]float64) ([]bool, error) {
	scores, err := a.Score(matrix)
	if err != nil {
		return nil, err
	}
	flags := make([]bool, len(scores))
	for i, s := range scores {
		flags[i] = s < a.Forest.Offset
	}
	return flags, nil
}

// Save persists the artifact as a single JSON blob, written atomically
func (a *Artifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write model artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a persisted model artifact; the loaded model is
// read-only
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if artifact.Forest == nil {
		return nil, fmt.Errorf("model artifact %s carries no fitted forest", path)
	}
	if artifact.Scaled && artifact.Scaler == nil {
		return nil, fmt.Errorf("model artifact %s claims scaling but carries no scaler", path)
	}
	return &artifact, nil
}
