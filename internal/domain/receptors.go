package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed receptors.yaml
var receptorsYAML []byte

// ReceptorCategory classifies a sensitive receptor.
type ReceptorCategory string

const (
	ReceptorHospital    ReceptorCategory = "hospital"
	ReceptorChildcare   ReceptorCategory = "childcare"
	ReceptorSchool      ReceptorCategory = "school"
	ReceptorUniversity  ReceptorCategory = "university"
	ReceptorResidential ReceptorCategory = "high_density_residential"
)

// Weight returns the category's proximity weight. Weights are the maximum
// additive contribution a single receptor of that category can make to the
// proximity multiplier.
func (c ReceptorCategory) Weight() float64 {
	switch c {
	case ReceptorHospital, ReceptorChildcare:
		return 1.0
	case ReceptorSchool:
		return 0.8
	case ReceptorUniversity:
		return 0.7
	case ReceptorResidential:
		return 0.6
	default:
		return 0
	}
}

// SensitiveReceptor is a location whose nearby population is considered more
// vulnerable to chemical exposure.
type SensitiveReceptor struct {
	Name      string           `yaml:"name"`
	Category  ReceptorCategory `yaml:"category"`
	Latitude  float64          `yaml:"latitude"`
	Longitude float64          `yaml:"longitude"`
}

type receptorFile struct {
	Receptors []SensitiveReceptor `yaml:"receptors"`
}

// LoadReceptors parses the embedded sensitive-receptor reference list.
func LoadReceptors() ([]SensitiveReceptor, error) {
	return parseReceptors(receptorsYAML)
}

func parseReceptors(raw []byte) ([]SensitiveReceptor, error) {
	var file receptorFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse receptors: %w", err)
	}
	if len(file.Receptors) == 0 {
		return nil, fmt.Errorf("receptor list is empty")
	}
	for _, r := range file.Receptors {
		if r.Category.Weight() == 0 {
			return nil, fmt.Errorf("receptor %q: unknown category %q", r.Name, r.Category)
		}
		if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
			return nil, fmt.Errorf("receptor %q: coordinates out of range", r.Name)
		}
	}
	return file.Receptors, nil
}
