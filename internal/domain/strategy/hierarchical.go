package strategy

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/camelcase"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// feedbackReserve is the share of the threshold kept free for retry feedback.
const feedbackReserve = 1024

// fileGroup is the unit of partitioning: every hunk of a path, joined with
// the hunks of any path it was renamed from or to. Ordering dependencies
// never cross file groups.
type fileGroup struct {
	paths []string
	ids   []domain.HunkID
}

func (g fileGroup) primary() string { return g.paths[0] }

// partitioner splits file groups into phases whose requests fit a budget.
type partitioner struct {
	cm       *domain.ChangeModel
	sc       Context
	budget   int
	maxDepth int
}

// planHierarchical plans large changes phase by phase. Phases are disjoint
// sets of file groups, planned sequentially and concatenated in order.
func planHierarchical(ctx context.Context, cm *domain.ChangeModel, sc Context) (*domain.Plan, error) {
	log := sc.logger().Named("hierarchical")
	threshold := orDefault(sc.PhaseThreshold, orDefault(sc.RequestBudget, defaultRequestBudget))
	reserve := min(feedbackReserve, threshold/8)
	part := &partitioner{
		cm:       cm,
		sc:       sc,
		budget:   threshold - reserve,
		maxDepth: orDefault(sc.MaxDepth, defaultMaxDepth),
	}

	groups := buildFileGroups(cm)
	if part.fits(groups) {
		log.Debug("change fits in a single request", zap.Int("threshold", threshold))
		return planLLM(ctx, cm, sc, llmOptions{budget: part.budget, limit: threshold})
	}

	leaves, err := part.split(groups, 0)
	if err != nil {
		return nil, err
	}
	phases := part.merge(leaves)
	log.Info("partitioned change",
		zap.Int("phases", len(phases)),
		zap.Int("hunks", cm.Len()),
		zap.Int("threshold", threshold))

	var commits []domain.CommitSpec
	for i, ph := range phases {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "planning cancelled")
		}
		sub := cm.Subset(groupIDs(ph))
		opts := llmOptions{
			budget: part.budget,
			limit:  threshold,
			phase:  &domain.PhaseInfo{Index: i + 1, Count: len(phases)},
		}
		p, err := planLLM(ctx, sub, sc, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "phase %d of %d", i+1, len(phases))
		}
		commits = append(commits, p.Commits...)
	}
	return domain.NewPlan(string(Hierarchical), cm, commits), nil
}

// split builds the phase tree top-down. At depth d groups are clustered by
// their first d+1 directories (by file stem below that); when clustering
// cannot separate them they are cut into contiguous, size-balanced chunks.
func (p *partitioner) split(groups []fileGroup, depth int) ([][]fileGroup, error) {
	if p.fits(groups) {
		return [][]fileGroup{groups}, nil
	}
	if len(groups) == 1 {
		if p.fitsCompact(groups) {
			return [][]fileGroup{groups}, nil
		}
		return nil, p.tooLarge(fmt.Sprintf("%s alone needs %d bytes", groups[0].primary(), p.compactSize(groups)))
	}
	if depth >= p.maxDepth {
		return nil, p.tooLarge(fmt.Sprintf("still over %d bytes after %d levels", p.budget, depth))
	}

	parts := cluster(groups, depth)
	if len(parts) < 2 {
		parts = p.chunk(groups)
	}

	var out [][]fileGroup
	for _, part := range parts {
		leaves, err := p.split(part, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, leaves...)
	}
	return out, nil
}

// merge joins adjacent leaves while the combined request still fits.
func (p *partitioner) merge(leaves [][]fileGroup) [][]fileGroup {
	var out [][]fileGroup
	for _, leaf := range leaves {
		if n := len(out); n > 0 {
			joined := append(append([]fileGroup(nil), out[n-1]...), leaf...)
			if p.fits(joined) {
				out[n-1] = joined
				continue
			}
		}
		out = append(out, leaf)
	}
	return out
}

// chunk cuts groups into at least two contiguous runs of similar size.
func (p *partitioner) chunk(groups []fileGroup) [][]fileGroup {
	total := p.size(groups)
	k := max(2, (total+p.budget-1)/p.budget)
	k = min(k, len(groups))
	target := (total + k - 1) / k

	var (
		out [][]fileGroup
		cur []fileGroup
	)
	for i, g := range groups {
		cur = append(cur, g)
		remainingGroups := len(groups) - i - 1
		remainingChunks := k - len(out) - 1
		if remainingChunks > 0 && (p.size(cur) >= target || remainingGroups == remainingChunks) {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (p *partitioner) size(groups []fileGroup) int {
	return newRequest(p.cm.Subset(groupIDs(groups)), p.sc, p.phaseStub(), true).Size()
}

func (p *partitioner) compactSize(groups []fileGroup) int {
	return newRequest(p.cm.Subset(groupIDs(groups)), p.sc, p.phaseStub(), false).Size()
}

func (p *partitioner) fits(groups []fileGroup) bool { return p.size(groups) <= p.budget }

func (p *partitioner) fitsCompact(groups []fileGroup) bool { return p.compactSize(groups) <= p.budget }

// phaseStub sizes requests as if they carried phase numbering.
func (p *partitioner) phaseStub() *domain.PhaseInfo {
	return &domain.PhaseInfo{Index: 9999, Count: 9999}
}

func (p *partitioner) tooLarge(detail string) error {
	return errors.WithHint(&domain.StrategyError{
		Kind:     domain.StrategyPartitionTooLarge,
		Strategy: string(Hierarchical),
		Detail:   detail,
	}, domain.HintThreshold)
}

// buildFileGroups groups hunks by path, merging the two sides of a rename.
// Groups are ordered by their first hunk.
func buildFileGroups(cm *domain.ChangeModel) []fileGroup {
	parent := make(map[string]string)
	var find func(string) string
	find = func(p string) string {
		if _, ok := parent[p]; !ok {
			parent[p] = p
		}
		if parent[p] != p {
			parent[p] = find(parent[p])
		}
		return parent[p]
	}
	for _, h := range cm.Hunks() {
		root := find(h.Path)
		if h.Kind == domain.ChangeRename && h.OldPath != "" {
			if other := find(h.OldPath); other != root {
				parent[other] = root
			}
		}
	}

	index := make(map[string]int)
	var groups []fileGroup
	seenPath := make(map[string]bool)
	for _, h := range cm.Hunks() {
		root := find(h.Path)
		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, fileGroup{})
		}
		if !seenPath[h.Path] {
			seenPath[h.Path] = true
			groups[i].paths = append(groups[i].paths, h.Path)
		}
		groups[i].ids = append(groups[i].ids, h.ID)
	}
	return groups
}

// cluster buckets groups by clusterKey at depth, in order of first appearance.
func cluster(groups []fileGroup, depth int) [][]fileGroup {
	index := make(map[string]int)
	var out [][]fileGroup
	for _, g := range groups {
		key := clusterKey(g.primary(), depth)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], g)
	}
	return out
}

// clusterKey is the first depth+1 directories of p, or, for shallower paths,
// the directory plus the leading word of the file name so that foo.go,
// foo_test.go and FooHelper.java share a key.
func clusterKey(p string, depth int) string {
	dir := path.Dir(p)
	var parts []string
	if dir != "." {
		parts = strings.Split(dir, "/")
	}
	if len(parts) > depth {
		return strings.Join(parts[:depth+1], "/")
	}
	return dir + "#" + stem(path.Base(p))
}

func stem(name string) string {
	name = strings.TrimPrefix(name, ".")
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	for _, word := range camelcase.Split(name) {
		w := strings.ToLower(strings.Trim(word, "_- "))
		if w != "" {
			return w
		}
	}
	return strings.ToLower(name)
}

func groupIDs(groups []fileGroup) []domain.HunkID {
	var ids []domain.HunkID
	for _, g := range groups {
		ids = append(ids, g.ids...)
	}
	return ids
}
