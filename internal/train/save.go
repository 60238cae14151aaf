package train

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/newsprobe/internal/artifact"
	"github.com/ppiankov/newsprobe/internal/corpus"
	"github.com/ppiankov/newsprobe/internal/model"
)

// Save persists the vectorizer and classifier as two independent artifacts under cfg.ArtifactsDir
// and records their paths in the summary.
func Save(res *Result, cfg model.TrainingConfig) error {
	vecPath := filepath.Join(cfg.ArtifactsDir, cfg.VectorizerFile)
	modelPath := filepath.Join(cfg.ArtifactsDir, cfg.ModelFile)

	if err := artifact.Save(vecPath, artifact.KindVectorizer, res.Vectorizer); err != nil {
		return fmt.Errorf("save vectorizer: %w", err)
	}
	if err := artifact.Save(modelPath, artifact.KindClassifier, res.Classifier); err != nil {
		return fmt.Errorf("save classifier: %w", err)
	}

	res.Summary.VectorizerURI = vecPath
	res.Summary.ModelURI = modelPath
	return nil
}

// SaveCleaned writes the cleaned dataset CSV next to the artifacts
func SaveCleaned(res *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cleaned dataset: %w", err)
	}
	if err := corpus.WriteCleaned(f, res.Documents, res.Cleaned); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
