package v1

const PresetKind = "Preset"

// Preset is a saved compression configuration loaded from YAML or JSON.
type Preset struct {
	Kind     string     `yaml:"kind" json:"kind" validate:"required,eq=Preset"`
	Metadata Metadata   `yaml:"metadata" json:"metadata"`
	Spec     PresetSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type PresetSpec struct {
	Algorithm *string `yaml:"algorithm,omitempty" json:"algorithm,omitempty" template:""`
	// Flags are forwarded verbatim to the backend, in order.
	Flags      []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	InputPath  string   `yaml:"inputPath,omitempty" json:"inputPath,omitempty" template:""`
	OutputPath string   `yaml:"outputPath,omitempty" json:"outputPath,omitempty" template:""`
}

// Request converts the preset into the wire request.
func (s PresetSpec) Request() CompressionRequest {
	return CompressionRequest{
		Algorithm:  s.Algorithm,
		Flags:      s.Flags,
		InputPath:  s.InputPath,
		OutputPath: s.OutputPath,
	}
}
