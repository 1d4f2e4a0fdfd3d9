package repository

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileRepository reads and writes content seed documents as YAML files.
type FileRepository struct {
	log zerolog.Logger
}

func NewFileRepository(log zerolog.Logger) *FileRepository {
	return &FileRepository{
		log: log.With().Str("module", "repository").Logger(),
	}
}

var _ domain.ContentSeedRepository = (*FileRepository)(nil)

// GetSeed decodes the seed at path. Unknown keys are rejected so a misspelt
// section does not silently seed nothing.
func (r *FileRepository) GetSeed(ctx context.Context, path string) (*domain.ContentSeed, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "seed file does not exist: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to stat seed file %s", path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("seed path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open seed file %s", path)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read seed file %s", path)
	}

	seed := &domain.ContentSeed{}
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "failed to unmarshal yaml from %s", path)
	}

	for i, img := range seed.StadiumPaymentImages {
		if err := img.Days.Validate(); err != nil {
			return nil, errors.Wrapf(err, "stadiumPaymentImages[%d] (%s)", i, img.StadiumID)
		}
	}
	for i, st := range seed.Stadiums {
		if err := st.ScheduleDays.Validate(); err != nil {
			return nil, errors.Wrapf(err, "stadiums[%d] (%s)", i, st.StadiumID)
		}
	}

	r.log.Debug().
		Str("path", path).
		Int("stadiums", len(seed.Stadiums)).
		Int("payment_images", len(seed.StadiumPaymentImages)).
		Msg("loaded content seed")

	return seed, nil
}

// StoreSeed writes seed to path, creating parent directories as needed.
func (r *FileRepository) StoreSeed(ctx context.Context, path string, seed *domain.ContentSeed) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seed); err != nil {
		return errors.Wrap(err, "failed to marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "failed to marshal yaml")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write seed file %s", path)
	}

	r.log.Debug().Str("path", path).Msg("stored content seed")
	return nil
}
