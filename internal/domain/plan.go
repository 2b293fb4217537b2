package domain

import "strings"

// PlanFormatVersion is the persisted plan document version.
const PlanFormatVersion = 1

// CommitSpec is one commit to create: a message and the hunks it stages.
type CommitSpec struct {
	Message string   `json:"message" yaml:"message"`
	Hunks   []HunkID `json:"hunks"   yaml:"hunks,flow"`
}

// Subject is the first line of the message.
func (c CommitSpec) Subject() string { return Subject(c.Message) }

// Plan is an ordered sequence of commit specs targeting Base.
type Plan struct {
	Version     int          `json:"version"               yaml:"version"`
	Strategy    string       `json:"strategy"              yaml:"strategy"`
	Base        RevisionID   `json:"base"                  yaml:"base"`
	Tip         RevisionID   `json:"tip"                   yaml:"tip"`
	Fingerprint string       `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Commits     []CommitSpec `json:"commits"               yaml:"commits"`
	// Progress is set on the copy recorded by an apply.
	Progress *Progress `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Progress lists the commits an apply has created so far, one per spec in
// plan order.
type Progress struct {
	Created []RevisionID `json:"created" yaml:"created,flow"`
}

// Done reports how many specs have been committed.
func (p *Plan) Done() int {
	if p.Progress == nil {
		return 0
	}
	return len(p.Progress.Created)
}

// NewPlan stamps a plan with the model's identity.
func NewPlan(strategy string, cm *ChangeModel, commits []CommitSpec) *Plan {
	return &Plan{
		Version:     PlanFormatVersion,
		Strategy:    strategy,
		Base:        cm.Base,
		Tip:         cm.Tip,
		Fingerprint: cm.Fingerprint(),
		Commits:     commits,
	}
}

// HunkCount is the total number of hunk references across all commits.
func (p *Plan) HunkCount() int {
	n := 0
	for _, c := range p.Commits {
		n += len(c.Hunks)
	}
	return n
}

// Subject returns the first non-blank line of a commit message.
func Subject(message string) string {
	for _, line := range strings.Split(message, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// JoinMessage builds a commit message from a subject and optional body.
func JoinMessage(subject, body string) string {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if body == "" {
		return subject
	}
	return subject + "\n\n" + body
}
