// Package memory provides a concurrency-safe in-memory implementation of
// the marketplace repositories. It backs the service tests and local
// development without a MySQL instance.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"auction-marketplace/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	listings   map[string]*domain.Listing
	bids       map[string][]*domain.Bid // listingID -> bids
	categories map[string]*domain.Category
	questions  map[string]*domain.Question
	watchers   map[string]map[string]bool // userID -> listingID -> watching
	jobs       map[string]*domain.CloseJob

	lockMu       sync.Mutex
	listingLocks map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		listings:     make(map[string]*domain.Listing),
		bids:         make(map[string][]*domain.Bid),
		categories:   make(map[string]*domain.Category),
		questions:    make(map[string]*domain.Question),
		watchers:     make(map[string]map[string]bool),
		jobs:         make(map[string]*domain.CloseJob),
		listingLocks: make(map[string]*sync.Mutex),
	}
}

// WithListing runs fn under the mutex owned by listingID, serializing bid
// admission and closing for that listing.
func (s *Store) WithListing(ctx context.Context, listingID string, fn func(ctx context.Context) error) error {
	s.lockMu.Lock()
	lock, ok := s.listingLocks[listingID]
	if !ok {
		lock = &sync.Mutex{}
		s.listingLocks[listingID] = lock
	}
	s.lockMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (s *Store) CreateListing(ctx context.Context, listing *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *listing
	s.listings[listing.ID] = &cp
	return nil
}

func (s *Store) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("get listing %s: %w", listingID, domain.ErrNotFound)
	}
	cp := *listing
	return &cp, nil
}

func (s *Store) UpdateClose(ctx context.Context, listingID string, endedManually bool, winnerID string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("update close for listing %s: %w", listingID, domain.ErrNotFound)
	}
	listing.EndedManually = endedManually
	listing.WinnerID = winnerID
	listing.UpdatedAt = updatedAt
	return nil
}

func (s *Store) UpdateVisibility(ctx context.Context, listingID string, public bool, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("update visibility for listing %s: %w", listingID, domain.ErrNotFound)
	}
	listing.Public = public
	listing.UpdatedAt = updatedAt
	return nil
}

func (s *Store) WonListings(ctx context.Context, userID string) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Listing
	for _, l := range s.listings {
		if l.WinnerID != userID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndTime.After(out[j].EndTime)
	})
	return out, nil
}

// DeleteListing removes a listing and its dependents. Used to exercise the
// vanished-listing path of the scheduled close.
func (s *Store) DeleteListing(listingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listings, listingID)
	delete(s.bids, listingID)
	for id, q := range s.questions {
		if q.ListingID == listingID {
			delete(s.questions, id)
		}
	}
}

func (s *Store) ActiveListings(ctx context.Context, userID string) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterActive(userID, func(*domain.Listing) bool { return true }), nil
}

func (s *Store) SearchListings(ctx context.Context, query, userID string) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	return s.filterActive(userID, func(l *domain.Listing) bool {
		return strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q)
	}), nil
}

func (s *Store) ListingsByCategory(ctx context.Context, categoryName string) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var categoryID string
	for _, c := range s.categories {
		if c.Name == categoryName {
			categoryID = c.ID
			break
		}
	}
	return s.filterActive("", func(l *domain.Listing) bool {
		return l.CategoryID == categoryID
	}), nil
}

// filterActive applies the activity rule (public and not finished, unioned
// with the user's own listings) plus match, ordered by end time ascending.
// Callers must hold s.mu.
func (s *Store) filterActive(userID string, match func(*domain.Listing) bool) []*domain.Listing {
	now := time.Now()
	var out []*domain.Listing
	for _, l := range s.listings {
		own := userID != "" && l.AuthorID == userID
		active := l.Public && !l.Finished(now)
		if !own && !active {
			continue
		}
		if !own && !match(l) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndTime.Before(out[j].EndTime)
	})
	return out
}

func (s *Store) InsertBid(ctx context.Context, bid *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[bid.ListingID]; !ok {
		return fmt.Errorf("insert bid for listing %s: %w", bid.ListingID, domain.ErrNotFound)
	}
	cp := *bid
	s.bids[bid.ListingID] = append(s.bids[bid.ListingID], &cp)
	return nil
}

func (s *Store) HighestBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bids := s.bids[listingID]
	if len(bids) == 0 {
		return nil, fmt.Errorf("highest bid for listing %s: %w", listingID, domain.ErrNoBids)
	}
	highest := bids[0]
	for _, b := range bids[1:] {
		if b.Outbids(highest) {
			highest = b
		}
	}
	cp := *highest
	return &cp, nil
}

func (s *Store) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bids := s.bids[listingID]
	out := make([]*domain.Bid, 0, len(bids))
	for _, b := range bids {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Outbids(out[j])
	})
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Name == category.Name {
			return fmt.Errorf("category %q: %w", category.Name, domain.ErrValidation)
		}
	}
	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
}

func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertQuestion(ctx context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *question
	s.questions[question.ID] = &cp
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("get question %s: %w", questionID, domain.ErrNotFound)
	}
	cp := *q
	if q.Answer != nil {
		a := *q.Answer
		cp.Answer = &a
	}
	return &cp, nil
}

func (s *Store) AttachAnswer(ctx context.Context, questionID string, answer *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return fmt.Errorf("attach answer to question %s: %w", questionID, domain.ErrNotFound)
	}
	if q.Answer != nil {
		return fmt.Errorf("attach answer to question %s: %w", questionID, domain.ErrAlreadyAnswered)
	}
	cp := *answer
	q.Answer = &cp
	return nil
}

func (s *Store) QuestionsForListing(ctx context.Context, listingID string) ([]*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Question
	for _, q := range s.questions {
		if q.ListingID != listingID {
			continue
		}
		cp := *q
		if q.Answer != nil {
			a := *q.Answer
			cp.Answer = &a
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}

func (s *Store) ToggleWatch(ctx context.Context, userID, listingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.watchers[userID]
	if set == nil {
		set = make(map[string]bool)
		s.watchers[userID] = set
	}
	if set[listingID] {
		delete(set, listingID)
		return false, nil
	}
	set[listingID] = true
	return true, nil
}

func (s *Store) WatchedListingIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.watchers[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CreateJob(ctx context.Context, job *domain.CloseJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *Store) DueJobs(ctx context.Context, before time.Time) ([]*domain.CloseJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.CloseJob
	for _, j := range s.jobs {
		if j.Status == domain.JobPending && !j.RunAt.After(before) {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out, nil
}

func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("update job %s: %w", jobID, domain.ErrNotFound)
	}
	j.Status = status
	return nil
}

func (s *Store) CancelJobsForListing(ctx context.Context, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ListingID == listingID && j.Status == domain.JobPending {
			j.Status = domain.JobCancelled
		}
	}
	return nil
}
