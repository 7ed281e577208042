package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
)

//go:embed fixtures.yaml
var defaultFixtureYAML []byte

// Fixture is the data set the seeder creates.
type Fixture struct {
	Pool    PoolFixture     `yaml:"pool"`
	Streams []StreamFixture `yaml:"streams"`
}

// PoolFixture describes the pool.
type PoolFixture struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// StreamFixture describes one stream, its drops and how far the seed user
// has read into it.
type StreamFixture struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Category    string        `yaml:"category"`
	Read        int           `yaml:"read"`
	Drops       []DropFixture `yaml:"drops"`
}

// DropFixture describes one drop.
type DropFixture struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// DefaultFixture returns the built-in frontend test data.
func DefaultFixture() (*Fixture, error) {
	return parseFixture(defaultFixtureYAML, "fixtures.yaml")
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, herrors.IOFileNotFound(path)
		}
		return nil, herrors.IOReadError(path, err)
	}
	return parseFixture(data, path)
}

func parseFixture(data []byte, source string) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, herrors.ConfigInvalidValue("fixture", source, err.Error())
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks that the fixture can be seeded.
func (f *Fixture) Validate() error {
	if f.Pool.Title == "" {
		return herrors.ConfigMissingField("pool.title")
	}
	if len(f.Streams) == 0 {
		return herrors.ConfigMissingField("streams")
	}
	for i, s := range f.Streams {
		field := fmt.Sprintf("streams[%d]", i)
		if s.Title == "" {
			return herrors.ConfigMissingField(field + ".title")
		}
		if len(s.Drops) == 0 {
			return herrors.ConfigMissingField(field + ".drops")
		}
		if s.Read < 0 || s.Read > len(s.Drops) {
			return herrors.ConfigInvalidValue(field+".read", s.Read,
				fmt.Sprintf("must be between 0 and %d", len(s.Drops)))
		}
	}
	return nil
}

// TotalDrops returns the number of drops across all streams.
func (f *Fixture) TotalDrops() int {
	n := 0
	for _, s := range f.Streams {
		n += len(s.Drops)
	}
	return n
}

// TotalReads returns the number of progress updates the fixture records.
func (f *Fixture) TotalReads() int {
	n := 0
	for _, s := range f.Streams {
		n += s.Read
	}
	return n
}
