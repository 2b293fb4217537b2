package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/scoring"
)

// AssessService scores commit ranges and compares saved scores.
type AssessService struct {
	history   domain.HistoryReader
	snapshots domain.SnapshotStore
	rubric    scoring.Rubric
	logger    *zap.Logger
}

func NewAssessService(history domain.HistoryReader, snapshots domain.SnapshotStore, cfg domain.Config, logger *zap.Logger) *AssessService {
	return &AssessService{
		history:   history,
		snapshots: snapshots,
		rubric:    scoring.NewRubric(cfg),
		logger:    logger.Named("assess"),
	}
}

// Rubric is the rubric new assessments are scored under.
func (s *AssessService) Rubric() scoring.Rubric { return s.rubric }

// Assess scores the commits in base..tip and records the result in the
// assessment history.
func (s *AssessService) Assess(ctx context.Context, base, tip domain.RevisionID) (*domain.AssessmentScore, error) {
	branch, err := s.history.CurrentBranch(ctx)
	if err != nil {
		s.logger.Debug("no current branch", zap.Error(err))
	}

	stats, err := s.history.CommitStats(ctx, base, tip)
	if err != nil {
		return nil, fmt.Errorf("reading commits: %w", err)
	}

	score, err := scoring.Score(stats, s.rubric, scoring.Meta{Branch: branch, Base: base, Tip: tip})
	if err != nil {
		return nil, err
	}

	if path, err := s.snapshots.Record(score); err != nil {
		s.logger.Warn("recording assessment", zap.Error(err))
	} else {
		s.logger.Debug("recorded assessment", zap.String("path", path))
	}
	s.logger.Info("assessed",
		zap.Int("commits", len(score.Commits)),
		zap.Float64("overall", score.Overall),
		zap.String("rubric", score.RubricVersion))
	return score, nil
}

// Save writes a snapshot to path.
func (s *AssessService) Save(path string, score *domain.AssessmentScore) error {
	if err := s.snapshots.Save(path, score); err != nil {
		return fmt.Errorf("saving assessment: %w", err)
	}
	return nil
}

// Load reads a snapshot from path.
func (s *AssessService) Load(path string) (*domain.AssessmentScore, error) {
	score, err := s.snapshots.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading assessment %s: %w", path, err)
	}
	return score, nil
}

// Compare diffs two assessments.
func (s *AssessService) Compare(before, after *domain.AssessmentScore) (*domain.Delta, error) {
	return scoring.Compare(before, after)
}

// CompareFiles loads two snapshots and diffs them.
func (s *AssessService) CompareFiles(beforePath, afterPath string) (*domain.Delta, error) {
	before, err := s.Load(beforePath)
	if err != nil {
		return nil, err
	}
	after, err := s.Load(afterPath)
	if err != nil {
		return nil, err
	}
	return s.Compare(before, after)
}

// History lists recorded assessments, oldest first.
func (s *AssessService) History() ([]domain.AssessmentScore, error) {
	return s.snapshots.History()
}
