// Package planstore persists plans as versioned JSON or YAML documents.
package planstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Store is a file-based implementation of domain.PlanStore. The format
// follows the extension: .yaml and .yml are YAML, anything else is JSON.
type Store struct{}

// New creates a plan store.
func New() *Store { return &Store{} }

// Save writes p to path, creating directories as needed.
func (s *Store) Save(path string, p *domain.Plan) error {
	if p.Version == 0 {
		cp := *p
		cp.Version = domain.PlanFormatVersion
		p = &cp
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(p)
	} else {
		data, err = json.MarshalIndent(p, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.Wrap(err, "encoding plan")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a plan from path. Documents of an unknown version are rejected.
func (s *Store) Load(path string) (*domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(domain.ErrNoSavedPlan, "%s", path)
		}
		return nil, err
	}

	var p domain.Plan
	if isYAML(path) {
		err = yaml.Unmarshal(data, &p)
	} else {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	if p.Version != domain.PlanFormatVersion {
		return nil, errors.WithHint(
			fmt.Errorf("plan %s has version %d, expected %d", path, p.Version, domain.PlanFormatVersion),
			"regenerate the plan with this version of reabsorb")
	}
	return &p, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
