package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/dupsweep/internal/similarity"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Built-in profile names
const (
	ProfileStrict     = "strict"
	ProfileModerate   = "moderate"
	ProfileAggressive = "aggressive"

	// DefaultProfileName is used when no profile is requested
	DefaultProfileName = ProfileModerate
)

// Defaults filled into profiles that leave them out
const (
	DefaultDuplicateLabel       = "duplicate"
	DefaultCloseMessageTemplate = "Closing as a duplicate of {primary}."
	PrimaryPlaceholder          = "{primary}"
)

// Profile is a named bundle of threshold and behavior settings for one run
type Profile struct {
	SimilarityThreshold  float64  `yaml:"similarityThreshold" json:"similarityThreshold"`
	AutoClose            bool     `yaml:"autoClose" json:"autoClose"`
	CloseMessageTemplate string   `yaml:"closeMessageTemplate" json:"closeMessageTemplate"`
	DuplicateLabel       string   `yaml:"duplicateLabel" json:"duplicateLabel"`
	ExcludeLabels        []string `yaml:"excludeLabels,omitempty" json:"excludeLabels,omitempty"`
	IncludeOnlyLabels    []string `yaml:"includeOnlyLabels,omitempty" json:"includeOnlyLabels,omitempty"`
	MaxDaysOld           int      `yaml:"maxDaysOld" json:"maxDaysOld"`
	RequireManualReview  bool     `yaml:"requireManualReview" json:"requireManualReview"`
	Reviewers            []string `yaml:"reviewers,omitempty" json:"reviewers,omitempty"`
	NotifyOnClose        bool     `yaml:"notifyOnClose" json:"notifyOnClose"`
	BatchSize            int      `yaml:"batchSize" json:"batchSize"`

	// Algorithm selects the text comparison; empty means combined
	Algorithm types.Algorithm `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`

	// Weights overrides the default field weights
	Weights *similarity.Weights `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// DefaultProfile returns the moderate profile used whenever a lookup fails
func DefaultProfile() Profile {
	return Profile{
		SimilarityThreshold:  0.85,
		AutoClose:            false,
		CloseMessageTemplate: DefaultCloseMessageTemplate,
		DuplicateLabel:       DefaultDuplicateLabel,
		MaxDaysOld:           0,
		RequireManualReview:  true,
		NotifyOnClose:        false,
		BatchSize:            50,
		Algorithm:            types.AlgorithmCombined,
	}
}

// BuiltinProfiles returns the strict, moderate and aggressive presets
func BuiltinProfiles() map[string]Profile {
	strict := DefaultProfile()
	strict.SimilarityThreshold = 0.92
	strict.MaxDaysOld = 90
	strict.BatchSize = 20

	aggressive := DefaultProfile()
	aggressive.SimilarityThreshold = 0.75
	aggressive.AutoClose = true
	aggressive.RequireManualReview = false
	aggressive.NotifyOnClose = true
	aggressive.BatchSize = 100
	aggressive.CloseMessageTemplate = "Closing as a duplicate of {primary} ({similarity} similar). Reopen if this is a different problem."

	return map[string]Profile{
		ProfileStrict:     strict,
		ProfileModerate:   DefaultProfile(),
		ProfileAggressive: aggressive,
	}
}

// WithDefaults fills empty label, template and algorithm fields
func (p Profile) WithDefaults() Profile {
	if strings.TrimSpace(p.DuplicateLabel) == "" {
		p.DuplicateLabel = DefaultDuplicateLabel
	}
	if strings.TrimSpace(p.CloseMessageTemplate) == "" {
		p.CloseMessageTemplate = DefaultCloseMessageTemplate
	}
	if p.Algorithm == "" {
		p.Algorithm = types.AlgorithmCombined
	}
	return p
}

// FieldWeights returns the configured weights or the defaults
func (p Profile) FieldWeights() similarity.Weights {
	if p.Weights != nil {
		return *p.Weights
	}
	return similarity.DefaultWeights()
}

// DryRun reports whether remediation must only be recorded
func (p Profile) DryRun() bool {
	return !p.AutoClose
}

// Validate checks if the profile has valid values
func (p Profile) Validate() error {
	if p.SimilarityThreshold <= 0.0 || p.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarityThreshold must be in (0.0, 1.0] (got %.2f)", p.SimilarityThreshold)
	}
	if p.MaxDaysOld < 0 {
		return fmt.Errorf("maxDaysOld cannot be negative (got %d)", p.MaxDaysOld)
	}
	if p.BatchSize < 0 {
		return fmt.Errorf("batchSize cannot be negative (got %d)", p.BatchSize)
	}
	if !strings.Contains(p.CloseMessageTemplate, PrimaryPlaceholder) {
		return fmt.Errorf("closeMessageTemplate must contain %s", PrimaryPlaceholder)
	}
	if strings.TrimSpace(p.DuplicateLabel) == "" {
		return fmt.Errorf("duplicateLabel is required")
	}
	if p.Algorithm != "" && !p.Algorithm.IsValid() {
		return fmt.Errorf("unknown algorithm: %q", p.Algorithm)
	}
	if p.Weights != nil {
		if err := p.Weights.Validate(); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
	}
	return nil
}

// ProfileSource says which path a lookup took
type ProfileSource string

const (
	// SourceFound means the named profile was loaded and valid
	SourceFound ProfileSource = "found"
	// SourceDefault means the moderate default was substituted
	SourceDefault ProfileSource = "default"
)

// ProfileLookup is the typed result of resolving a profile name
type ProfileLookup struct {
	Name    string
	Profile Profile
	Source  ProfileSource
	// Warning explains why the default was used; empty when found
	Warning string
}

// UsedDefault reports whether the moderate default was substituted
func (l ProfileLookup) UsedDefault() bool {
	return l.Source == SourceDefault
}

// ProfileStore is the profile map loaded from a YAML file
type ProfileStore struct {
	Profiles map[string]Profile `yaml:"profiles"`

	path string
}

// NewProfileStore creates a store from an in-memory map
func NewProfileStore(profiles map[string]Profile) *ProfileStore {
	if profiles == nil {
		profiles = make(map[string]Profile)
	}
	return &ProfileStore{Profiles: profiles}
}

// BuiltinProfileStore returns a store holding BuiltinProfiles
func BuiltinProfileStore() *ProfileStore {
	return NewProfileStore(BuiltinProfiles())
}

// LoadProfileStore reads a YAML profile file. Unknown keys are rejected so
// typos surface as a malformed file instead of silently using zero values.
func LoadProfileStore(path string) (*ProfileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	store := &ProfileStore{path: path}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(store); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if store.Profiles == nil {
		store.Profiles = make(map[string]Profile)
	}
	return store, nil
}

// Path returns the file the store was loaded from, if any
func (s *ProfileStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Names returns the profile names in sorted order
func (s *ProfileStore) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves name. It never fails: a nil store, an unknown name, or a
// profile that does not validate yields DefaultProfile with a warning.
func (s *ProfileStore) Lookup(name string) ProfileLookup {
	if strings.TrimSpace(name) == "" {
		name = DefaultProfileName
	}

	fallback := func(warning string) ProfileLookup {
		return ProfileLookup{
			Name:    name,
			Profile: DefaultProfile(),
			Source:  SourceDefault,
			Warning: warning,
		}
	}

	if s == nil {
		return fallback("no profile store loaded; using moderate defaults")
	}
	p, ok := s.Profiles[name]
	if !ok {
		return fallback(fmt.Sprintf("profile %q not found; using moderate defaults", name))
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return fallback(fmt.Sprintf("profile %q is malformed (%v); using moderate defaults", name, err))
	}
	return ProfileLookup{Name: name, Profile: p, Source: SourceFound}
}

// SaveProfiles writes profiles to path as a profile file
func SaveProfiles(path string, profiles map[string]Profile) error {
	data, err := yaml.Marshal(&ProfileStore{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("marshaling profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing profile file: %w", err)
	}
	return nil
}

// SaveDefaultProfiles writes BuiltinProfiles to path
func SaveDefaultProfiles(path string) error {
	return SaveProfiles(path, BuiltinProfiles())
}
