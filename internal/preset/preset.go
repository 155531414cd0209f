// Package preset loads saved compression configurations.
package preset

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/spf13/afero"
)

// ISO8601Basic is the compact ISO 8601 format used for DATE_ISO8601.
const ISO8601Basic = "20060102T150405Z"

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Parse decodes a YAML or JSON preset and validates it.
func Parse(data []byte) (v1.Preset, error) {
	var preset v1.Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return v1.Preset{}, fmt.Errorf("failed to unmarshal preset data: %w", err)
	}

	if err := defaultValidator.Struct(preset); err != nil {
		return v1.Preset{}, fmt.Errorf("failed to validate preset: %w", err)
	}

	return preset, nil
}

// Load reads and parses the preset at path.
func Load(fs afero.Fs, path string) (v1.Preset, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return v1.Preset{}, fmt.Errorf("failed to read preset file: %w", err)
	}

	preset, err := Parse(data)
	if err != nil {
		return v1.Preset{}, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	return preset, nil
}

// BuildVariables returns the variables available to ${VAR} references: the
// built-ins plus every allowed environment variable. An allowed variable that
// is not set is an error.
func BuildVariables(preset v1.Preset, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"PRESET_NAME":  preset.Metadata.Name,
		"DATE_ISO8601": date.Format(ISO8601Basic),
		"DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// Resolve expands the templated fields of the preset spec and returns the
// resulting request.
func Resolve(preset v1.Preset, allowedEnv []string) (v1.CompressionRequest, error) {
	variables, err := BuildVariables(preset, allowedEnv)
	if err != nil {
		return v1.CompressionRequest{}, fmt.Errorf("failed to build variables: %w", err)
	}

	spec := preset.Spec
	if err := ExpandTemplates(&spec, variables); err != nil {
		return v1.CompressionRequest{}, fmt.Errorf("failed to expand preset %q: %w", preset.Metadata.Name, err)
	}
	return spec.Request(), nil
}
