package catalog

import (
	"context"
	"sort"
	"sync"
)

type stepKey struct {
	articleNo string
	stepCode  string
}

// MemoryStore is an in-memory catalog ordered by article number.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]Article
	keys     []string // sorted article numbers
	steps    map[string]map[string]PriceStep // article_no -> step_code -> step
}

// NewMemoryStore creates an empty catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]Article),
		steps:    make(map[string]map[string]PriceStep),
	}
}

// UpsertArticle inserts the article or merges it into the stored row.
func (s *MemoryStore) UpsertArticle(_ context.Context, article Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.articles[article.ArticleNo]; ok {
		s.articles[article.ArticleNo] = MergeArticle(existing, article)
		return nil
	}

	s.articles[article.ArticleNo] = article
	i := sort.SearchStrings(s.keys, article.ArticleNo)
	s.keys = append(s.keys, "")
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = article.ArticleNo
	return nil
}

// UpsertPriceStep inserts the step or replaces the stored one wholesale.
func (s *MemoryStore) UpsertPriceStep(_ context.Context, step PriceStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCode, ok := s.steps[step.ArticleNo]
	if !ok {
		byCode = make(map[string]PriceStep)
		s.steps[step.ArticleNo] = byCode
	}
	byCode[step.StepCode] = step
	return nil
}

// LookupArticle returns the article with its ordered steps, or nil.
func (s *MemoryStore) LookupArticle(_ context.Context, articleNo string) (*ArticleView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[articleNo]
	if !ok {
		return nil, nil
	}
	return &ArticleView{
		Article:    article,
		PriceSteps: s.orderedSteps(articleNo),
	}, nil
}

// FirstArticleNo returns the smallest article number.
func (s *MemoryStore) FirstArticleNo(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.keys) == 0 {
		return "", false, nil
	}
	return s.keys[0], true, nil
}

// ListArticles returns articles in article number order.
func (s *MemoryStore) ListArticles(_ context.Context, filter ListFilter) ([]Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.ArticleNo != "" {
		if article, ok := s.articles[filter.ArticleNo]; ok {
			return []Article{article}, nil
		}
		return []Article{}, nil
	}

	n := len(s.keys)
	if filter.Limit != nil && *filter.Limit >= 0 && *filter.Limit < n {
		n = *filter.Limit
	}
	result := make([]Article, 0, n)
	for _, key := range s.keys[:n] {
		result = append(result, s.articles[key])
	}
	return result, nil
}

// PriceSteps returns ordered steps for each requested article that has any.
func (s *MemoryStore) PriceSteps(_ context.Context, articleNos []string) (map[string][]PriceStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]PriceStep, len(articleNos))
	for _, no := range articleNos {
		if steps := s.orderedSteps(no); len(steps) > 0 {
			result[no] = steps
		}
	}
	return result, nil
}

// Counts returns the number of stored articles and price steps.
func (s *MemoryStore) Counts() (articles, steps int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, byCode := range s.steps {
		steps += len(byCode)
	}
	return len(s.articles), steps
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) orderedSteps(articleNo string) []PriceStep {
	byCode := s.steps[articleNo]
	steps := make([]PriceStep, 0, len(byCode))
	for _, step := range byCode {
		steps = append(steps, step)
	}
	SortSteps(steps)
	return steps
}
