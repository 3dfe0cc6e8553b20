package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// FAQ is one persisted question-and-answer record. The answer is canonical;
// suggested questions are offered to the student alongside it.
type FAQ struct {
	ID                 int32
	Question           string
	Answer             string
	SuggestedQuestions []string
	CreatedTs          int64
}

type FindFAQ struct {
	ID *int32
}

type DeleteFAQ struct {
	ID int32
}

const faqListCacheKey = "faq:list"

// CreateFAQ persists a new FAQ entry and invalidates the list cache.
func (s *Store) CreateFAQ(ctx context.Context, create *FAQ) (*FAQ, error) {
	faq, err := s.driver.CreateFAQ(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create faq")
	}
	s.faqCache.Delete(faqListCacheKey)
	return faq, nil
}

// ListFAQs returns all FAQ entries, served from cache when warm.
func (s *Store) ListFAQs(ctx context.Context) ([]*FAQ, error) {
	if raw, ok := s.faqCache.Get(faqListCacheKey); ok {
		var faqs []*FAQ
		if err := json.Unmarshal(raw, &faqs); err == nil {
			return faqs, nil
		}
		s.faqCache.Delete(faqListCacheKey)
	}

	faqs, err := s.driver.ListFAQs(ctx, &FindFAQ{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list faqs")
	}

	if raw, err := json.Marshal(faqs); err == nil {
		s.faqCache.Set(faqListCacheKey, raw, 0)
	}
	return faqs, nil
}

// GetFAQ returns one FAQ entry by id, or nil when absent.
func (s *Store) GetFAQ(ctx context.Context, id int32) (*FAQ, error) {
	list, err := s.driver.ListFAQs(ctx, &FindFAQ{ID: &id})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get faq %d", id)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteFAQ removes an FAQ entry.
func (s *Store) DeleteFAQ(ctx context.Context, id int32) error {
	if err := s.driver.DeleteFAQ(ctx, &DeleteFAQ{ID: id}); err != nil {
		return errors.Wrapf(err, "failed to delete faq %d", id)
	}
	s.faqCache.Delete(faqListCacheKey)
	return nil
}
