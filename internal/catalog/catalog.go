// Package catalog loads the sound library manifest.
//
// The manifest is a single JSON document (sounds.json) in the library
// directory describing every channel: id, display name, icon, initial
// volume and the set of source variants. A broken entry never fails the
// whole load; it is returned with LoadErr set so the player can surface
// that one channel as errored while the rest of the mix keeps working.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rusel95/whitenoise/internal/logger"
)

// Common errors
var (
	ErrManifestNotFound = errors.New("sound manifest not found")
	ErrNoVariants       = errors.New("sound has no variants")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrDuplicateSoundID = errors.New("duplicate sound id")
)

// Variant is one alternate source file for a sound.
type Variant struct {
	ID   string `json:"id"`
	File string `json:"file"`
}

// Sound describes one channel of the mix as declared by the manifest.
type Sound struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Icon           string    `json:"icon"`
	Volume         float64   `json:"volume"`
	DefaultVariant string    `json:"default_variant"`
	Variants       []Variant `json:"variants"`

	// LoadErr is set when this entry failed validation. The sound is still
	// listed so the channel can be shown in its errored state.
	LoadErr error `json:"-"`
}

// VariantIDs returns the ids of all variants in manifest order.
func (s *Sound) VariantIDs() []string {
	ids := make([]string, 0, len(s.Variants))
	for _, v := range s.Variants {
		ids = append(ids, v.ID)
	}
	return ids
}

// VariantPath returns the absolute path of the given variant's source file.
func (s *Sound) VariantPath(variantID string) (string, error) {
	for _, v := range s.Variants {
		if v.ID == variantID {
			return v.File, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrVariantNotFound, s.ID, variantID)
}

// HasVariant reports whether the sound declares the given variant id.
func (s *Sound) HasVariant(variantID string) bool {
	_, err := s.VariantPath(variantID)
	return err == nil
}

type manifest struct {
	Sounds []Sound `json:"sounds"`
}

// Catalog reads sound definitions from a library directory.
type Catalog struct {
	libraryPath  string
	manifestName string
}

// New creates a catalog over the given library directory.
func New(libraryPath, manifestName string) *Catalog {
	return &Catalog{
		libraryPath:  libraryPath,
		manifestName: manifestName,
	}
}

// Load parses the manifest and validates every entry. Only a missing or
// syntactically broken manifest is a fatal error; per-sound problems are
// recorded on the entry itself.
func (c *Catalog) Load() ([]Sound, error) {
	path := filepath.Join(c.libraryPath, c.manifestName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Sounds))
	sounds := make([]Sound, 0, len(m.Sounds))
	for _, s := range m.Sounds {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSoundID, s.ID)
		}
		seen[s.ID] = true

		c.normalize(&s)
		s.LoadErr = c.validate(&s)
		if s.LoadErr != nil {
			logger.Log.Warn().
				Err(s.LoadErr).
				Str("sound_id", s.ID).
				Msg("Sound entry failed validation")
		}
		sounds = append(sounds, s)
	}

	logger.Log.Info().
		Int("sounds", len(sounds)).
		Str("library", c.libraryPath).
		Msg("Sound catalog loaded")

	return sounds, nil
}

// normalize resolves variant files against the library dir and fills in
// defaulted fields.
func (c *Catalog) normalize(s *Sound) {
	for i := range s.Variants {
		if !filepath.IsAbs(s.Variants[i].File) {
			s.Variants[i].File = filepath.Join(c.libraryPath, s.Variants[i].File)
		}
	}
	if s.DefaultVariant == "" && len(s.Variants) > 0 {
		s.DefaultVariant = s.Variants[0].ID
	}
	if s.Volume < 0 {
		s.Volume = 0
	}
	if s.Volume > 1 {
		s.Volume = 1
	}
}

// validate checks a single entry. The returned error becomes the entry's
// LoadErr; it does not abort the load.
func (c *Catalog) validate(s *Sound) error {
	if s.ID == "" {
		return errors.New("sound id must not be empty")
	}
	if len(s.Variants) == 0 {
		return ErrNoVariants
	}
	if !s.HasVariant(s.DefaultVariant) {
		return fmt.Errorf("%w: default %q", ErrVariantNotFound, s.DefaultVariant)
	}
	for _, v := range s.Variants {
		if v.ID == "" {
			return errors.New("variant id must not be empty")
		}
		if _, err := os.Stat(v.File); err != nil {
			return fmt.Errorf("variant %s: source file missing: %w", v.ID, err)
		}
	}
	return nil
}
