package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/dto"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
)

const searchPageSize = 10

type archiveSearcher interface {
	Search(ctx context.Context, q string) ([]models.ArchiveItem, error)
}

// SearchService runs public full-text lookups over the archive.
type SearchService struct {
	repo    archiveSearcher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(repo archiveSearcher, metrics *MetricsService, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{repo: repo, metrics: metrics, logger: logger}
}

// Search returns one page of items matching q. Matches are ranked before
// paging: title prefix first, then title substring, then the rest, newest
// first within each rank.
func (s *SearchService) Search(ctx context.Context, q string, page int) (*dto.SearchResult, *models.Pagination, error) {
	q = strings.TrimSpace(q)
	page = models.ClampPage(page, searchPageSize)
	if q == "" {
		return &dto.SearchResult{Query: q, Results: []models.ArchiveItem{}}, models.NewPagination(page, searchPageSize, 0), nil
	}

	matches, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search archive")
	}
	s.metrics.ObserveSearch(len(matches))

	rankResults(matches, q)

	start := (page - 1) * searchPageSize
	if start > len(matches) {
		start = len(matches)
	}
	end := start + searchPageSize
	if end > len(matches) {
		end = len(matches)
	}
	results := make([]models.ArchiveItem, 0, end-start)
	for _, item := range matches[start:end] {
		normalizeForRead(&item)
		results = append(results, item)
	}
	return &dto.SearchResult{Query: q, Results: results}, models.NewPagination(page, searchPageSize, len(matches)), nil
}

func rankResults(items []models.ArchiveItem, q string) {
	needle := strings.ToLower(q)
	rank := func(item *models.ArchiveItem) int {
		title := strings.ToLower(item.Title)
		switch {
		case strings.HasPrefix(title, needle):
			return 0
		case strings.Contains(title, needle):
			return 1
		}
		return 2
	}
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := rank(&items[i]), rank(&items[j])
		if ri != rj {
			return ri < rj
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
