package topictree

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// Settings holds pipeline parameters and credentials
type Settings struct {
	Seed           int64       `yaml:"seed"`
	NSamples       int         `yaml:"n_samples"`
	TestSize       float64     `yaml:"test_size"`
	CorpusPath     string      `yaml:"corpus_path"`
	OutputsDir     string      `yaml:"outputs_dir"`
	EmbeddingModel string      `yaml:"embedding_model"`
	MinK           int         `yaml:"min_k"`
	MaxK           int         `yaml:"max_k"`
	OpenAIModel    string      `yaml:"openai_model"`
	OpenAIBaseURL  string      `yaml:"openai_base_url"`
	LabelTimeout   ISODuration `yaml:"label_timeout"`

	// Never read from YAML; only the environment carries the credential.
	OpenAIAPIKey string `yaml:"-"`
}

// Config is populated by cmd/topictree before any command runs
var Config = DefaultSettings()

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// DefaultSettings returns the pipeline defaults
func DefaultSettings() Settings {
	return Settings{
		Seed:           42,
		NSamples:       10_000,
		TestSize:       0.2,
		CorpusPath:     "corpus",
		OutputsDir:     "outputs",
		EmbeddingModel: DefaultEmbeddingModel,
		MinK:           2,
		MaxK:           9,
		OpenAIModel:    DefaultOpenAIModel,
		LabelTimeout:   ISODuration(60 * time.Second),
	}
}

// LoadSettings reads a YAML pipeline file on top of the defaults
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// ApplyEnv overrides settings with values from the environment.
// Empty variables leave the current value in place.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	s.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	if v := getenv("OPENAI_MODEL"); v != "" {
		s.OpenAIModel = v
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		s.OpenAIBaseURL = v
	}
	if v := getenv("EMBEDDING_MODEL"); v != "" {
		s.EmbeddingModel = v
	}
	if v := getenv("CORPUS_PATH"); v != "" {
		s.CorpusPath = v
	}
	if v := getenv("LABEL_TIMEOUT"); v != "" {
		d, err := parseISODuration(v)
		if err != nil {
			return fmt.Errorf("%w: LABEL_TIMEOUT: %v", ErrConfiguration, err)
		}
		s.LabelTimeout = d
	}
	return nil
}

// Validate checks parameter ranges
func (s Settings) Validate() error {
	if s.NSamples <= 0 {
		return fmt.Errorf("%w: n_samples must be positive, got %d", ErrConfiguration, s.NSamples)
	}
	if s.TestSize <= 0 || s.TestSize >= 1 {
		return fmt.Errorf("%w: test_size must be in (0, 1), got %g", ErrConfiguration, s.TestSize)
	}
	if s.MinK < 1 || s.MaxK < s.MinK {
		return fmt.Errorf("%w: invalid k range [%d, %d]", ErrConfiguration, s.MinK, s.MaxK)
	}
	return nil
}

// KRange returns the candidate cluster counts for the elbow search
func (s Settings) KRange() []int {
	var ks []int
	for k := s.MinK; k <= s.MaxK; k++ {
		ks = append(ks, k)
	}
	return ks
}

// LabelerConfig extracts the labeling backend settings
func (s Settings) LabelerConfig() LabelerConfig {
	return LabelerConfig{
		APIKey:  s.OpenAIAPIKey,
		Model:   s.OpenAIModel,
		BaseURL: s.OpenAIBaseURL,
		Timeout: time.Duration(s.LabelTimeout),
	}
}

// OutputPath joins name onto the outputs directory
func (s Settings) OutputPath(name string) string {
	return filepath.Join(s.OutputsDir, name)
}

// ISODuration is a time.Duration written as an ISO 8601 duration (PT30S)
type ISODuration time.Duration

func (d ISODuration) String() string {
	return duration.FromTimeDuration(time.Duration(d)).String()
}

func (d *ISODuration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := parseISODuration(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d ISODuration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func parseISODuration(s string) (ISODuration, error) {
	dur, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
	}
	return ISODuration(dur.ToTimeDuration()), nil
}
