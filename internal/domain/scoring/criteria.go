package scoring

import (
	"math"
	"path"
	"regexp"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

const (
	minSubject = 8
	maxSubject = 72
)

// placeholders are subjects that say nothing about the change.
var placeholders = map[string]bool{
	"wip": true, "fix": true, "fixes": true, "fixed": true,
	"update": true, "updates": true, "updated": true,
	"misc": true, "changes": true, "stuff": true,
	"tmp": true, "temp": true, "test": true, "todo": true,
}

var (
	squashedSubject = regexp.MustCompile(`^squashed( \d+)? (commits|changes)$`)
	autosquash      = regexp.MustCompile(`^(fixup|squash|amend)! `)
)

// atomicity is 1 when every file of the commit sits in one directory.
func atomicity(c domain.CommitStat) float64 {
	dirs := make(map[string]bool)
	for _, f := range c.Files {
		dirs[path.Dir(f.Path)] = true
	}
	if len(dirs) == 1 {
		return 1
	}
	return 0
}

// messageQuality awards a third each for a non-empty message, a subject of
// reasonable length and a subject that is not a placeholder.
func messageQuality(msg string) float64 {
	subject := domain.Subject(msg)
	if subject == "" {
		return 0
	}
	points := 1
	if n := len([]rune(subject)); n >= minSubject && n <= maxSubject {
		points++
	}
	if !IsPlaceholder(subject) {
		points++
	}
	return float64(points) / 3
}

// IsPlaceholder reports whether a subject is generic, like "wip" or
// "Squashed 3 commits".
func IsPlaceholder(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	if autosquash.MatchString(s) {
		return true
	}
	s = strings.TrimRight(s, ".!:; ")
	return placeholders[s] || squashedSubject.MatchString(s)
}

// sizeDeviation is 1 for a commit of average size, falling to 0 at twice
// (or zero times) the mean.
func sizeDeviation(size int, mean float64) float64 {
	if mean == 0 {
		return 1
	}
	return 1 - math.Min(1, math.Abs(float64(size)-mean)/mean)
}

// balance is 1/(1+cv) where cv is the coefficient of variation of sizes.
func balance(sizes []int) float64 {
	mean := meanOf(sizes)
	if mean == 0 {
		return 1
	}
	var sq float64
	for _, s := range sizes {
		d := float64(s) - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(sizes)))
	return 1 / (1 + stddev/mean)
}

func meanOf(sizes []int) float64 {
	if len(sizes) == 0 {
		return 0
	}
	total := 0
	for _, s := range sizes {
		total += s
	}
	return float64(total) / float64(len(sizes))
}
