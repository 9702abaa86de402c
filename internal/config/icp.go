package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Market is one target metro in the ICP profile.
type Market struct {
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

// ICPProfile describes the ideal customer profile a run validates
// prospects against. Loaded from a standalone YAML file so profiles can
// be versioned and swapped per campaign without touching config.yaml.
type ICPProfile struct {
	PrimaryIndustries   []string `yaml:"primary_industries"`
	SecondaryIndustries []string `yaml:"secondary_industries"`
	PrimaryMarkets      []Market `yaml:"primary_markets"`
	PrimaryTitles       []string `yaml:"primary_titles"`
	SecondaryTitles     []string `yaml:"secondary_titles"`
}

// DefaultICPProfile targets senior decision makers anywhere, so a run
// without a profile file still scores contact quality.
func DefaultICPProfile() *ICPProfile {
	return &ICPProfile{
		PrimaryTitles:   []string{"CEO", "Founder", "Owner", "President"},
		SecondaryTitles: []string{"VP", "Director", "Partner", "Principal"},
	}
}

// LoadICPProfile reads an ICP profile from a YAML file. An empty path
// returns the default profile.
func LoadICPProfile(path string) (*ICPProfile, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultICPProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read icp profile %s", path)
	}
	var p ICPProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "config: parse icp profile %s", path)
	}
	return &p, nil
}
