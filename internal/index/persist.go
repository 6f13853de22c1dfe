package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"studymind/internal/models"
)

// Persisted index layout: two companion artifacts per identifier. The .vec
// file holds the similarity structure, the .json file the payload keeping
// search results addressable. Both are required for a load.
const (
	vectorExt  = ".vec"
	payloadExt = ".json"
)

type vectorFile struct {
	Dimension int
	Vectors   [][]float32
}

type payloadFile struct {
	Texts     []string           `json:"texts"`
	Metadatas []models.ChunkMeta `json:"metadatas"`
	Dimension int                `json:"dimension"`
	ModelName string             `json:"model_name"`
}

// Persist writes the index to path's companion artifacts. Each artifact is
// written to a temp file and renamed into place, so a concurrent loader
// never observes a half-written file.
func (idx *Index) Persist(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.texts) == 0 {
		return ErrIndexNotBuilt
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	if err := writeAtomic(path+vectorExt, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(vectorFile{Dimension: idx.dimension, Vectors: idx.vectors})
	}); err != nil {
		return fmt.Errorf("writing vector file: %w", err)
	}

	payload := payloadFile{
		Texts:     idx.texts,
		Metadatas: idx.metas,
		Dimension: idx.dimension,
		ModelName: idx.modelName,
	}
	if err := writeAtomic(path+payloadExt, func(f *os.File) error {
		return json.NewEncoder(f).Encode(payload)
	}); err != nil {
		return fmt.Errorf("writing payload file: %w", err)
	}

	log.Debug().Str("path", path).Int("entries", len(idx.texts)).Msg("Persisted vector index")
	return nil
}

// Load replaces the index contents from path's companion artifacts.
// A missing artifact, or artifacts that disagree on entry count or
// dimension, yields ErrCorruptIndex.
func (idx *Index) Load(path string) error {
	vf, err := os.Open(path + vectorExt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	defer vf.Close()
	var vectors vectorFile
	if err := gob.NewDecoder(vf).Decode(&vectors); err != nil {
		return fmt.Errorf("%w: decoding vector file: %v", ErrCorruptIndex, err)
	}

	pf, err := os.Open(path + payloadExt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	defer pf.Close()
	var payload payloadFile
	if err := json.NewDecoder(pf).Decode(&payload); err != nil {
		return fmt.Errorf("%w: decoding payload file: %v", ErrCorruptIndex, err)
	}

	if len(vectors.Vectors) != len(payload.Texts) || len(payload.Texts) != len(payload.Metadatas) {
		return fmt.Errorf("%w: %d vectors, %d texts, %d metadatas", ErrCorruptIndex,
			len(vectors.Vectors), len(payload.Texts), len(payload.Metadatas))
	}
	if vectors.Dimension != payload.Dimension {
		return fmt.Errorf("%w: dimension %d in vector file, %d in payload", ErrCorruptIndex,
			vectors.Dimension, payload.Dimension)
	}
	if len(payload.Texts) == 0 {
		return fmt.Errorf("%w: empty index", ErrCorruptIndex)
	}

	idx.mu.Lock()
	idx.dimension = vectors.Dimension
	idx.vectors = vectors.Vectors
	idx.texts = payload.Texts
	idx.metas = payload.Metadatas
	idx.modelName = payload.ModelName
	idx.mu.Unlock()

	log.Debug().Str("path", path).Int("entries", len(payload.Texts)).Msg("Loaded vector index")
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
