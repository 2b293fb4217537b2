package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/plan"
)

const instructions = `You reorganize a feature branch into a clean sequence of atomic commits.
Each hunk below is one indivisible change, identified by "id".
Group the hunks into commits so that each commit does one logical thing, and order the commits so that
every commit builds on the ones before it (definitions before uses, implementation before tests that need it).
Rules:
- every hunk id must appear in exactly one commit
- never invent hunk ids
- hunks of the same file that are next to each other must keep their relative order
- subjects are imperative, at most 72 characters; the body explains why
Respond with JSON only: {"commits":[{"subject":"...","body":"...","hunks":[0,1]}]}`

// llmOptions bounds a single llm planning run.
type llmOptions struct {
	// budget is the size the initial request must fit in.
	budget int
	// limit is the size no request, including retries with feedback, may exceed.
	limit int
	phase *domain.PhaseInfo
}

// planLLM asks the model for a grouping and validates it. An invalid grouping
// is repaired locally when that makes it valid; otherwise the request is
// retried once with the validation error as feedback. A timeout is retried
// once on its own.
func planLLM(ctx context.Context, cm *domain.ChangeModel, sc Context, opts llmOptions) (*domain.Plan, error) {
	log := sc.logger().Named("llm")
	req, err := buildRequest(cm, sc, opts)
	if err != nil {
		return nil, err
	}

	var (
		raw     string
		lastErr error
	)
	for attempt := 1; attempt <= 2; attempt++ {
		log.Debug("requesting grouping",
			zap.Int("attempt", attempt),
			zap.Int("hunks", len(req.Hunks)),
			zap.Int("bytes", req.Size()))

		resp, err := group(ctx, sc.LLM, req, log)
		if err != nil {
			return nil, err
		}
		raw = resp.Raw

		p := responsePlan(cm, resp)
		lastErr = plan.Validate(p, cm)
		if lastErr == nil {
			return p, nil
		}
		log.Info("model returned an invalid plan", zap.Int("attempt", attempt), zap.Error(lastErr))
		if !sc.NoRepair {
			if fixed, fixes := plan.Repair(p, cm); len(fixes) > 0 && plan.Validate(fixed, cm) == nil {
				log.Info("repaired model output", zap.Strings("fixes", fixes))
				return fixed, nil
			}
		}
		req = withFeedback(req, lastErr.Error(), opts.limit)
	}

	return nil, errors.WithHint(&domain.StrategyError{
		Kind:     domain.StrategyInvalidLLMOutput,
		Strategy: string(LLM),
		Raw:      raw,
		Err:      lastErr,
	}, "run again, try another model with --llm-model, or fall back to --strategy by-file")
}

// group calls the model, retrying exactly once on timeout. Cancellation is
// returned as the context's error so callers see that no plan was produced.
func group(ctx context.Context, client domain.LLMClient, req *domain.GroupingRequest, log *zap.Logger) (*domain.GroupingResponse, error) {
	resp, err := client.Group(ctx, req)
	if err != nil && ctx.Err() == nil && domain.IsLLMKind(err, domain.LLMTimeout) {
		log.Warn("language model timed out, retrying once")
		resp, err = client.Group(ctx, req)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "planning cancelled")
		}
		return nil, errors.WithHint(err, domain.HintLLMRetry)
	}
	return resp, nil
}

func responsePlan(cm *domain.ChangeModel, resp *domain.GroupingResponse) *domain.Plan {
	specs := make([]domain.CommitSpec, 0, len(resp.Commits))
	for _, c := range resp.Commits {
		specs = append(specs, domain.CommitSpec{
			Message: domain.JoinMessage(c.Subject, c.Body),
			Hunks:   append([]domain.HunkID(nil), c.Hunks...),
		})
	}
	return domain.NewPlan(string(LLM), cm, specs)
}

// buildRequest serializes the model. When the request exceeds the budget,
// hunk content is dropped first, then the source commit subjects.
func buildRequest(cm *domain.ChangeModel, sc Context, opts llmOptions) (*domain.GroupingRequest, error) {
	req := newRequest(cm, sc, opts.phase, true)
	if opts.budget <= 0 || req.Size() <= opts.budget {
		return req, nil
	}
	req.Hunks = digests(cm, 0)
	if req.Size() <= opts.budget {
		return req, nil
	}
	req.SourceCommits = nil
	if size := req.Size(); size > opts.budget {
		return nil, errors.WithHint(&domain.StrategyError{
			Kind:     domain.StrategyOversizedRequest,
			Strategy: string(LLM),
			Detail:   fmt.Sprintf("%d hunks need %d bytes, budget is %d", cm.Len(), size, opts.budget),
		}, "use --strategy hierarchical to split the change into phases")
	}
	return req, nil
}

func newRequest(cm *domain.ChangeModel, sc Context, phase *domain.PhaseInfo, withContent bool) *domain.GroupingRequest {
	threshold := 0
	if withContent {
		threshold = sc.ContentThreshold
	}
	req := &domain.GroupingRequest{
		Instructions: instructions,
		Phase:        phase,
		Hunks:        digests(cm, threshold),
	}
	for _, c := range sc.SourceCommits {
		req.SourceCommits = append(req.SourceCommits, c.Subject())
	}
	return req
}

// digests summarizes hunks, inlining content for hunks up to threshold bytes.
func digests(cm *domain.ChangeModel, threshold int) []domain.HunkDigest {
	out := make([]domain.HunkDigest, 0, cm.Len())
	for _, h := range cm.Hunks() {
		d := domain.HunkDigest{
			ID:       h.ID,
			Path:     h.Path,
			OldPath:  h.OldPath,
			Kind:     h.Kind,
			OldStart: h.OldStart,
			OldLines: h.OldLines,
			NewStart: h.NewStart,
			NewLines: h.NewLines,
			Added:    h.Added(),
			Removed:  h.Removed(),
			Binary:   h.Binary,
		}
		if threshold > 0 && !h.Binary && h.Size() <= threshold {
			d.Content = renderContent(h)
		}
		out = append(out, d)
	}
	return out
}

func renderContent(h domain.Hunk) string {
	var b strings.Builder
	for _, l := range h.Lines {
		b.WriteString(string(l.Op))
		b.WriteString(l.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// withFeedback returns a copy of req carrying msg, truncated so the request
// stays within limit.
func withFeedback(req *domain.GroupingRequest, msg string, limit int) *domain.GroupingRequest {
	next := *req
	next.Feedback = append(append([]string(nil), req.Feedback...), "")
	last := len(next.Feedback) - 1

	text := "Your previous answer was rejected: " + msg
	for {
		next.Feedback[last] = text
		if limit <= 0 || next.Size() <= limit {
			return &next
		}
		if text == "" {
			next.Feedback = next.Feedback[:last]
			return &next
		}
		text = text[:len(text)/2]
	}
}
