package service

import (
	"context"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/internal/models"
	"github.com/noah-isme/qaloader-api/pkg/config"
	appErrors "github.com/noah-isme/qaloader-api/pkg/errors"
	"github.com/noah-isme/qaloader-api/pkg/similarity"
)

const (
	corpusCacheKey = "duplicates:corpus"

	defaultSimilarityThreshold = 0.85
	minSimilarityThreshold     = 0.1
	maxSimilarityThreshold     = 1.0
)

// duplicateQuestionStore is the slice of the question repository needed for
// similarity detection.
type duplicateQuestionStore interface {
	Corpus(ctx context.Context) ([]models.CorpusEntry, error)
	FindSimilar(ctx context.Context, texts, normalized []string, threshold float64) ([]models.SimilarityMatch, error)
	SimilarPairs(ctx context.Context, threshold float64) ([]models.SimilarPair, error)
	SimilarPairsForIDs(ctx context.Context, ids []string, threshold float64) ([]models.SimilarPair, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
}

// DuplicateService flags questions that resemble stored content. Findings are
// advisory; nothing here blocks an upload. Two backends produce the same
// scores: pg_trgm in SQL when the extension is available, otherwise an
// in-process trigram pass over a cached copy of the corpus.
type DuplicateService struct {
	store   duplicateQuestionStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.DuplicateConfig
}

// NewDuplicateService creates a DuplicateService.
func NewDuplicateService(store duplicateQuestionStore, cache *CacheService, metrics *MetricsService, cfg config.DuplicateConfig, logger *zap.Logger) *DuplicateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultSimilarityThreshold
	}
	return &DuplicateService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Check scores candidate texts that are not yet stored against the corpus.
// Only candidates with at least one match at or above the threshold appear in
// the report; Index ties each result back to the request order.
func (s *DuplicateService) Check(ctx context.Context, candidates []dto.DuplicateCandidate, threshold float64) (*dto.DuplicateReport, error) {
	threshold = s.clampThreshold(threshold)

	report := &dto.DuplicateReport{
		Threshold:  threshold,
		Candidates: len(candidates),
		Results:    []dto.CandidateMatches{},
	}
	if len(candidates) == 0 {
		return report, nil
	}

	byCandidate, err := s.matchCandidates(ctx, candidates, threshold)
	if err != nil {
		return nil, appErrors.Wrap(err, "DUPLICATE_CHECK_FAILED", http.StatusInternalServerError, "could not check for duplicate questions")
	}

	for i, candidate := range candidates {
		matches := byCandidate[i]
		if len(matches) == 0 {
			continue
		}
		report.Flagged++
		report.Results = append(report.Results, dto.CandidateMatches{
			Index:    i,
			Question: candidate.Question,
			Topic:    candidate.Topic,
			Matches:  matches,
		})
	}

	s.metrics.RecordDuplicatesFlagged(report.Flagged)

	return report, nil
}

// ScanAll compares every stored question against every other and groups the
// pairs that score at or above the threshold. Count is the number of pairs,
// not groups. The second return reports whether a cached corpus snapshot
// served the scan; trigram scans hit the table directly and always report
// false.
func (s *DuplicateService) ScanAll(ctx context.Context, threshold float64) (*dto.DuplicateScanResult, bool, error) {
	threshold = s.clampThreshold(threshold)

	var (
		pairs    []models.SimilarPair
		cacheHit bool
		err      error
	)
	if s.cfg.UseTrigramIndex {
		pairs, err = s.store.SimilarPairs(ctx, threshold)
	} else {
		pairs, cacheHit, err = s.scanCorpusPairs(ctx, threshold)
	}
	if err != nil {
		return nil, false, appErrors.Wrap(err, "DUPLICATE_SCAN_FAILED", http.StatusInternalServerError, "could not scan for duplicate questions")
	}

	return &dto.DuplicateScanResult{
		Count:     len(pairs),
		Threshold: threshold,
		Groups:    groupPairs(pairs),
	}, cacheHit, nil
}

// CheckByIDs compares the named stored questions against the rest of the
// corpus. Unknown IDs contribute nothing. The second return reports whether a
// cached corpus snapshot served the comparison.
func (s *DuplicateService) CheckByIDs(ctx context.Context, ids []string, threshold float64) (*dto.DuplicateScanResult, bool, error) {
	threshold = s.clampThreshold(threshold)

	result := &dto.DuplicateScanResult{
		Threshold: threshold,
		Groups:    []dto.DuplicateGroup{},
	}
	if len(ids) == 0 {
		return result, false, nil
	}

	var (
		pairs    []models.SimilarPair
		cacheHit bool
		err      error
	)
	if s.cfg.UseTrigramIndex {
		pairs, err = s.store.SimilarPairsForIDs(ctx, ids, threshold)
	} else {
		pairs, cacheHit, err = s.pairsForIDs(ctx, ids, threshold)
	}
	if err != nil {
		return nil, false, appErrors.Wrap(err, "DUPLICATE_CHECK_FAILED", http.StatusInternalServerError, "could not check for duplicate questions")
	}

	result.Count = len(pairs)
	result.Groups = groupPairs(pairs)

	return result, cacheHit, nil
}

// InvalidateCorpus drops the cached corpus snapshot. Called after uploads
// commit new questions so later scans see them.
func (s *DuplicateService) InvalidateCorpus(ctx context.Context) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, corpusCacheKey); err != nil {
		s.logger.Warn("failed to invalidate corpus cache", zap.Error(err))
	}
}

// matchCandidates returns, per candidate index, the stored questions scoring
// at or above threshold, highest first.
func (s *DuplicateService) matchCandidates(ctx context.Context, candidates []dto.DuplicateCandidate, threshold float64) (map[int][]dto.DuplicateEntry, error) {
	byCandidate := make(map[int][]dto.DuplicateEntry, len(candidates))

	if s.cfg.UseTrigramIndex {
		texts := make([]string, len(candidates))
		normalized := make([]string, len(candidates))
		for i, candidate := range candidates {
			texts[i] = candidate.Question
			normalized[i] = similarity.Normalize(candidate.Question)
		}

		matches, err := s.store.FindSimilar(ctx, texts, normalized, threshold)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			byCandidate[match.CandidateIndex] = append(byCandidate[match.CandidateIndex], dto.DuplicateEntry{
				ID:              match.QuestionID,
				Text:            match.Question,
				Topic:           match.Topic,
				SimilarityScore: match.Score,
			})
		}
		return byCandidate, nil
	}

	entries, _, err := s.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}

	norms := make([]string, len(entries))
	for i := range entries {
		norms[i] = similarity.Normalize(entries[i].Question)
	}

	for i, candidate := range candidates {
		candidateNorm := similarity.Normalize(candidate.Question)
		for j, entry := range entries {
			score := similarity.Score(candidate.Question, entry.Question)
			if candidateNorm != "" && candidateNorm == norms[j] {
				score = 1.0
			}
			if score < threshold {
				continue
			}
			byCandidate[i] = append(byCandidate[i], dto.DuplicateEntry{
				ID:              entry.QuestionID,
				Text:            entry.Question,
				Topic:           entry.Topic,
				SimilarityScore: score,
			})
		}
		sortEntries(byCandidate[i])
	}

	return byCandidate, nil
}

// scanCorpusPairs is the in-process fallback for ScanAll. The corpus comes
// back ordered by question_id, so pairing each entry with its successors
// keeps LeftID < RightID.
func (s *DuplicateService) scanCorpusPairs(ctx context.Context, threshold float64) ([]models.SimilarPair, bool, error) {
	entries, cacheHit, err := s.loadCorpus(ctx)
	if err != nil {
		return nil, false, err
	}

	norms := make([]string, len(entries))
	for i := range entries {
		norms[i] = similarity.Normalize(entries[i].Question)
	}

	var pairs []models.SimilarPair
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			score := similarity.Score(entries[i].Question, entries[j].Question)
			if norms[i] != "" && norms[i] == norms[j] {
				score = 1.0
			}
			if score < threshold {
				continue
			}
			pairs = append(pairs, models.SimilarPair{
				LeftID:     entries[i].QuestionID,
				LeftText:   entries[i].Question,
				LeftTopic:  entries[i].Topic,
				RightID:    entries[j].QuestionID,
				RightText:  entries[j].Question,
				RightTopic: entries[j].Topic,
				Score:      score,
			})
		}
	}
	sortPairs(pairs)

	return pairs, cacheHit, nil
}

// pairsForIDs is the in-process fallback for CheckByIDs. Targets are fetched
// fresh so a stale corpus snapshot cannot hide them.
func (s *DuplicateService) pairsForIDs(ctx context.Context, ids []string, threshold float64) ([]models.SimilarPair, bool, error) {
	targets, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, false, err
	}
	if len(targets) == 0 {
		return []models.SimilarPair{}, false, nil
	}

	entries, cacheHit, err := s.loadCorpus(ctx)
	if err != nil {
		return nil, false, err
	}

	norms := make([]string, len(entries))
	for i := range entries {
		norms[i] = similarity.Normalize(entries[i].Question)
	}

	var pairs []models.SimilarPair
	for _, target := range targets {
		targetNorm := similarity.Normalize(target.Question)
		for j, entry := range entries {
			if entry.QuestionID == target.QuestionID {
				continue
			}
			score := similarity.Score(target.Question, entry.Question)
			if targetNorm != "" && targetNorm == norms[j] {
				score = 1.0
			}
			if score < threshold {
				continue
			}
			pairs = append(pairs, models.SimilarPair{
				LeftID:     target.QuestionID,
				LeftText:   target.Question,
				LeftTopic:  target.Topic,
				RightID:    entry.QuestionID,
				RightText:  entry.Question,
				RightTopic: entry.Topic,
				Score:      score,
			})
		}
	}
	sortPairs(pairs)

	return pairs, cacheHit, nil
}

// loadCorpus reads the corpus from cache when possible, falling back to the
// database and repopulating the cache on the way out. The second return is
// true when the snapshot came from cache.
func (s *DuplicateService) loadCorpus(ctx context.Context) ([]models.CorpusEntry, bool, error) {
	cacheable := s.cache != nil && s.cache.Enabled()

	if cacheable {
		var cached []models.CorpusEntry
		hit, err := s.cache.Get(ctx, corpusCacheKey, &cached)
		if err != nil {
			s.logger.Warn("corpus cache read failed", zap.Error(err))
		} else if hit {
			return cached, true, nil
		}
	}

	entries, err := s.store.Corpus(ctx)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, corpusCacheKey, entries, s.cfg.CorpusCacheTTL); err != nil {
			s.logger.Warn("corpus cache write failed", zap.Error(err))
		}
	}

	return entries, false, nil
}

func (s *DuplicateService) clampThreshold(threshold float64) float64 {
	if threshold == 0 {
		threshold = s.cfg.Threshold
	}
	if threshold < minSimilarityThreshold {
		return minSimilarityThreshold
	}
	if threshold > maxSimilarityThreshold {
		return maxSimilarityThreshold
	}
	return threshold
}

// groupPairs clusters score-descending pairs greedily: the left side of the
// first unprocessed pair becomes a group's primary, and the group absorbs
// every later pair sharing that left side.
func groupPairs(pairs []models.SimilarPair) []dto.DuplicateGroup {
	groups := make([]dto.DuplicateGroup, 0)
	processed := make(map[string]struct{}, len(pairs)*2)

	for _, pair := range pairs {
		if _, ok := processed[pair.LeftID]; ok {
			continue
		}
		if _, ok := processed[pair.RightID]; ok {
			continue
		}

		group := dto.DuplicateGroup{
			PrimaryID: pair.LeftID,
			PrimaryQuestion: dto.QuestionRef{
				ID:    pair.LeftID,
				Text:  pair.LeftText,
				Topic: pair.LeftTopic,
			},
			Duplicates: []dto.DuplicateEntry{{
				ID:              pair.RightID,
				Text:            pair.RightText,
				Topic:           pair.RightTopic,
				SimilarityScore: pair.Score,
			}},
		}

		for _, other := range pairs {
			if other.LeftID != pair.LeftID || other.RightID == pair.RightID {
				continue
			}
			if _, ok := processed[other.RightID]; ok {
				continue
			}
			group.Duplicates = append(group.Duplicates, dto.DuplicateEntry{
				ID:              other.RightID,
				Text:            other.RightText,
				Topic:           other.RightTopic,
				SimilarityScore: other.Score,
			})
			processed[other.RightID] = struct{}{}
		}

		groups = append(groups, group)
		processed[pair.LeftID] = struct{}{}
		processed[pair.RightID] = struct{}{}
	}

	return groups
}

func sortPairs(pairs []models.SimilarPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		return pairs[i].LeftID < pairs[j].LeftID
	})
}

func sortEntries(entries []dto.DuplicateEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SimilarityScore != entries[j].SimilarityScore {
			return entries[i].SimilarityScore > entries[j].SimilarityScore
		}
		return entries[i].ID < entries[j].ID
	})
}
