// Package anchors keeps the append-only undo anchor journal, one JSON line
// per entry and one file per branch.
package anchors

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Journal implements domain.AnchorJournal under dir.
type Journal struct {
	dir string
}

// New creates a journal stored in dir, usually <git dir>/reabsorb/anchors.
func New(dir string) *Journal { return &Journal{dir: dir} }

// Append records anchor as the branch's newest entry.
func (j *Journal) Append(anchor domain.UndoAnchor) error {
	if anchor.Branch == "" {
		return errors.New("anchor has no branch")
	}
	if anchor.ID == "" {
		anchor.ID = uuid.NewString()
	}
	line, err := json.Marshal(anchor)
	if err != nil {
		return err
	}

	path := j.path(anchor.Branch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Current returns the newest entry unless it marks a consumed anchor.
func (j *Journal) Current(branch string) (*domain.UndoAnchor, error) {
	entries, err := j.Entries(branch)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	last := entries[len(entries)-1]
	if last.Consumed {
		return nil, nil
	}
	return &last, nil
}

// Entries returns every entry for branch, oldest first.
func (j *Journal) Entries(branch string) ([]domain.UndoAnchor, error) {
	f, err := os.Open(j.path(branch))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []domain.UndoAnchor
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var a domain.UndoAnchor
		if err := json.Unmarshal([]byte(text), &a); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", j.path(branch), n, err)
		}
		out = append(out, a)
	}
	return out, sc.Err()
}

func (j *Journal) path(branch string) string {
	return filepath.Join(j.dir, filepath.FromSlash(branch)+".jsonl")
}
