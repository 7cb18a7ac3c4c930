// Package config resolves declarative experiment definitions into fully
// merged, validated, typed configurations for the training harness. The
// pipeline is load, merge, validate, build; a run either yields a complete
// ResolvedConfig or a full list of located issues, never a partial result.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PhaseName identifies an execution phase of an experiment.
type PhaseName string

const (
	Training   PhaseName = "training"
	Validation PhaseName = "validation"
	Testing    PhaseName = "testing"
)

// PhaseNames returns the phases in canonical order.
func PhaseNames() []PhaseName {
	return []PhaseName{Training, Validation, Testing}
}

// ProblemConfig describes the data source of one phase.
type ProblemConfig struct {
	Name         string `yaml:"name" validate:"required"`
	BatchSize    int    `yaml:"batch_size" validate:"min=0"`
	DataFolder   string `yaml:"data_folder,omitempty"`
	UseTrainData bool   `yaml:"use_train_data"`
	Resize       []int  `yaml:"resize,omitempty" validate:"omitempty,len=2,dive,min=1"`
	Split        string `yaml:"split,omitempty"`
	DatasetSize  int    `yaml:"dataset_size,omitempty" validate:"min=0"`
	Regenerate   bool   `yaml:"regenerate,omitempty"`
	ImgSize      []int  `yaml:"img_size,omitempty" validate:"omitempty,len=2,dive,min=1"`
	Padding      int    `yaml:"padding,omitempty" validate:"min=0"`
	UpScaling    bool   `yaml:"up_scaling,omitempty"`
}

// IndicesSpec is either a literal [start, end) range or a path to an
// externally stored index list. Externally stored lists are carried through
// unvalidated; the dataset loader resolves them.
type IndicesSpec struct {
	Range []int
	Path  string
}

// IsRange reports whether the spec holds a literal range.
func (s IndicesSpec) IsRange() bool { return len(s.Range) > 0 }

// IsPath reports whether the spec points at an external index list.
func (s IndicesSpec) IsPath() bool { return s.Path != "" }

// IsZero reports whether no indices were specified.
func (s IndicesSpec) IsZero() bool { return !s.IsRange() && !s.IsPath() }

func (s *IndicesSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		return value.Decode(&s.Range)
	case yaml.ScalarNode:
		return value.Decode(&s.Path)
	default:
		return fmt.Errorf("indices must be a numeric range or a file path")
	}
}

func (s IndicesSpec) MarshalYAML() (interface{}, error) {
	if s.IsPath() {
		return s.Path, nil
	}
	if s.IsRange() {
		return s.Range, nil
	}
	return nil, nil
}

// SamplerConfig describes the sampling strategy of one phase.
type SamplerConfig struct {
	Name    string      `yaml:"name" validate:"required"`
	Indices IndicesSpec `yaml:"indices,omitempty"`
}

// OptimizerConfig describes the optimizer of one phase.
type OptimizerConfig struct {
	Name             string  `yaml:"name" validate:"required"`
	LR               float64 `yaml:"lr" validate:"required,gt=0"`
	GradientClipping float64 `yaml:"gradient_clipping,omitempty" validate:"omitempty,gt=0"`
}

// TerminalConditions describe when a phase stops.
type TerminalConditions struct {
	LossStop           float64 `yaml:"loss_stop,omitempty" validate:"omitempty,gt=0"`
	EpisodeLimit       int     `yaml:"episode_limit,omitempty" validate:"min=0"`
	EpochLimit         int     `yaml:"epoch_limit,omitempty" validate:"min=0"`
	ValidationInterval int     `yaml:"validation_interval,omitempty" validate:"min=0"`
}

// LayerConfig holds the parameters of one model layer block. Convolution
// layers use all four fields; pooling layers use kernel_size and stride.
type LayerConfig struct {
	OutChannels int `yaml:"out_channels,omitempty" validate:"omitempty,min=1"`
	KernelSize  int `yaml:"kernel_size,omitempty" validate:"omitempty,min=1"`
	Stride      int `yaml:"stride,omitempty" validate:"omitempty,min=1"`
	Padding     int `yaml:"padding,omitempty" validate:"min=0"`
}

// ModelConfig is the shared model architecture: a registered model name plus
// its model-specific layer blocks.
type ModelConfig struct {
	Name   string                 `yaml:"name" validate:"required"`
	Layers map[string]LayerConfig `yaml:",inline"`
}

// SettingsConfig carries phase-independent run settings.
type SettingsConfig struct {
	Seed          int64 `yaml:"seed,omitempty"`
	Deterministic bool  `yaml:"deterministic,omitempty"`
}

// PhaseConfig is the fully merged, typed configuration of one phase.
// Sections the document omitted stay nil.
type PhaseConfig struct {
	Problem   ProblemConfig       `yaml:"problem"`
	Sampler   *SamplerConfig      `yaml:"sampler,omitempty"`
	Optimizer *OptimizerConfig    `yaml:"optimizer,omitempty"`
	Terminal  *TerminalConditions `yaml:"terminal_conditions,omitempty"`
}

func (p PhaseConfig) copy() PhaseConfig {
	out := p
	out.Problem.Resize = append([]int(nil), p.Problem.Resize...)
	out.Problem.ImgSize = append([]int(nil), p.Problem.ImgSize...)
	if p.Sampler != nil {
		s := *p.Sampler
		s.Indices.Range = append([]int(nil), p.Sampler.Indices.Range...)
		out.Sampler = &s
	}
	if p.Optimizer != nil {
		o := *p.Optimizer
		out.Optimizer = &o
	}
	if p.Terminal != nil {
		tc := *p.Terminal
		out.Terminal = &tc
	}
	return out
}

// ResolvedConfig is the immutable result of a resolution run: one merged
// phase configuration per present phase plus the shared model. Accessors
// return copies; the resolved state itself is never exposed for mutation.
type ResolvedConfig struct {
	runID    string
	phases   map[PhaseName]PhaseConfig
	model    ModelConfig
	settings *SettingsConfig
}

// RunID returns the identifier of the resolution run that produced this
// configuration.
func (c *ResolvedConfig) RunID() string { return c.runID }

// Phases returns the phases present in the source document, in canonical
// order.
func (c *ResolvedConfig) Phases() []PhaseName {
	var out []PhaseName
	for _, name := range PhaseNames() {
		if _, ok := c.phases[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Phase returns a copy of the configuration of one phase.
func (c *ResolvedConfig) Phase(name PhaseName) (PhaseConfig, bool) {
	p, ok := c.phases[name]
	if !ok {
		return PhaseConfig{}, false
	}
	return p.copy(), true
}

// Training returns the training phase, which is always present.
func (c *ResolvedConfig) Training() PhaseConfig {
	p, _ := c.Phase(Training)
	return p
}

// Model returns a copy of the shared model configuration.
func (c *ResolvedConfig) Model() ModelConfig {
	out := c.model
	out.Layers = make(map[string]LayerConfig, len(c.model.Layers))
	for k, v := range c.model.Layers {
		out.Layers[k] = v
	}
	return out
}

// Settings returns the phase-independent settings block, if present.
func (c *ResolvedConfig) Settings() (SettingsConfig, bool) {
	if c.settings == nil {
		return SettingsConfig{}, false
	}
	return *c.settings, true
}

// Export converts the resolved configuration into plain maps, for recording
// or for consumers that want an untyped view.
func (c *ResolvedConfig) Export() (map[string]interface{}, error) {
	doc := make(map[string]interface{}, len(c.phases)+2)
	for name, phase := range c.phases {
		doc[string(name)] = phase
	}
	doc["model"] = c.model
	if c.settings != nil {
		doc["settings"] = *c.settings
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
