package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// FileHistory implements domain.SnapshotStore. Recorded assessments live in
// dir as one JSON document each, named by timestamp and id.
type FileHistory struct {
	dir string
}

// New creates a history rooted at dir, usually <git dir>/reabsorb/assessments.
func New(dir string) *FileHistory {
	return &FileHistory{dir: dir}
}

// Save writes score to path.
func (h *FileHistory) Save(path string, score *domain.AssessmentScore) error {
	data, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Load reads a snapshot written by Save or Record.
func (h *FileHistory) Load(path string) (*domain.AssessmentScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var score domain.AssessmentScore
	if err := json.Unmarshal(data, &score); err != nil {
		return nil, fmt.Errorf("parsing assessment %s: %w", path, err)
	}
	if score.RubricVersion == "" {
		return nil, fmt.Errorf("%s is not an assessment snapshot", path)
	}
	return &score, nil
}

// Record stores score in the history and returns its path.
func (h *FileHistory) Record(score *domain.AssessmentScore) (string, error) {
	name := fmt.Sprintf("%s-%s.json", score.Timestamp.UTC().Format("20060102T150405Z"), shortID(score.ID))
	path := filepath.Join(h.dir, name)
	if err := h.Save(path, score); err != nil {
		return "", err
	}
	return path, nil
}

// History returns every recorded assessment, oldest first.
func (h *FileHistory) History() ([]domain.AssessmentScore, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]domain.AssessmentScore, 0, len(names))
	for _, n := range names {
		s, err := h.Load(filepath.Join(h.dir, n))
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "anon"
	}
	return id
}
