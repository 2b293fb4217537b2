package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HunkDigest is how a hunk is presented to the language model.
type HunkDigest struct {
	ID       HunkID     `json:"id"`
	Path     string     `json:"path"`
	OldPath  string     `json:"old_path,omitempty"`
	Kind     ChangeKind `json:"kind"`
	OldStart int        `json:"old_start"`
	OldLines int        `json:"old_lines"`
	NewStart int        `json:"new_start"`
	NewLines int        `json:"new_lines"`
	Added    int        `json:"added"`
	Removed  int        `json:"removed"`
	Binary   bool       `json:"binary,omitempty"`
	Content  string     `json:"content,omitempty"`
}

// PhaseInfo tells the model which slice of a larger change it is seeing.
type PhaseInfo struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// GroupingRequest asks the model to group hunks into commits.
type GroupingRequest struct {
	Instructions  string       `json:"instructions"`
	Phase         *PhaseInfo   `json:"phase,omitempty"`
	SourceCommits []string     `json:"source_commits,omitempty"`
	Hunks         []HunkDigest `json:"hunks"`
	Feedback      []string     `json:"feedback,omitempty"`
}

// requestBody is the JSON part of a rendered prompt. Instructions, phase and
// feedback are rendered as prose around it.
type requestBody struct {
	SourceCommits []string     `json:"source_commits,omitempty"`
	Hunks         []HunkDigest `json:"hunks"`
}

// Render is the exact prompt text sent to a model: the instructions, the
// phase and feedback prose, then the request body as compact JSON.
func (r *GroupingRequest) Render() string {
	// plain strings and ints, Marshal cannot fail
	data, _ := json.Marshal(requestBody{SourceCommits: r.SourceCommits, Hunks: r.Hunks})

	var b strings.Builder
	b.WriteString(r.Instructions)
	if r.Phase != nil {
		fmt.Fprintf(&b, "\n\nThis is phase %d of %d; the hunks below are only part of the branch.",
			r.Phase.Index, r.Phase.Count)
	}
	if len(r.Feedback) > 0 {
		b.WriteString("\n\nYour previous answer was rejected. Fix these problems:")
		for _, f := range r.Feedback {
			b.WriteString("\n- ")
			b.WriteString(f)
		}
	}
	b.WriteString("\n\nInput:\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String()
}

// Size is the length in bytes of the rendered prompt.
func (r *GroupingRequest) Size() int { return len(r.Render()) }

// GroupedCommit is one commit proposed by the model.
type GroupedCommit struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body,omitempty"`
	Hunks   []HunkID `json:"hunks"`
}

// GroupingResponse is the model's answer. Raw keeps the unparsed text.
type GroupingResponse struct {
	Commits []GroupedCommit `json:"commits"`
	Raw     string          `json:"-"`
}
