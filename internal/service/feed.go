package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"photogram/internal/metrics"
	"photogram/internal/model"
	"photogram/internal/repository"
)

// DefaultFeedFanout bounds concurrent per-account photo reads while building a feed.
const DefaultFeedFanout = 8

type FeedService struct {
	accounts repository.AccountRepository
	graph    repository.GraphRepository
	photos   repository.PhotoRepository
	fanout   int
}

func NewFeedService(
	accounts repository.AccountRepository,
	graph repository.GraphRepository,
	photos repository.PhotoRepository,
	fanout int,
) *FeedService {
	if fanout <= 0 {
		fanout = DefaultFeedFanout
	}
	return &FeedService{
		accounts: accounts,
		graph:    graph,
		photos:   photos,
		fanout:   fanout,
	}
}

// Feed builds the viewer's feed on read.
//
// Flow:
// 1. Read the viewer's following set
// 2. Load each followed account's photos, fanned out with a bounded errgroup
// 3. Resolve owners and comment authors in one batch
// 4. Sort the merged sequence newest first across all accounts
func (s *FeedService) Feed(ctx context.Context, viewerID int64) ([]model.EnrichedPhoto, error) {
	startTime := time.Now()
	defer func() { metrics.FeedBuildDuration.Observe(time.Since(startTime).Seconds()) }()

	following, err := s.graph.GetFollowing(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("read following: %w", err)
	}
	if len(following) == 0 {
		return []model.EnrichedPhoto{}, nil
	}

	perOwner := make([][]model.Photo, len(following))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, ownerID := range following {
		g.Go(func() error {
			photos, err := s.photos.ListByOwner(gctx, ownerID)
			if err != nil {
				return fmt.Errorf("list photos of %d: %w", ownerID, err)
			}
			perOwner[i] = photos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var photos []model.Photo
	ids := append([]int64(nil), following...)
	for _, list := range perOwner {
		for _, p := range list {
			photos = append(photos, p)
			for _, c := range p.Comments {
				ids = append(ids, c.AuthorID)
			}
		}
	}

	people, err := s.accounts.GetSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}

	items := make([]model.EnrichedPhoto, 0, len(photos))
	for _, p := range photos {
		owner, ok := people[p.OwnerID]
		if !ok {
			// Owner removed between the two reads.
			continue
		}
		likes := p.Likes
		if likes == nil {
			likes = []int64{}
		}
		items = append(items, model.EnrichedPhoto{
			ID:        p.ID,
			URI:       p.URI,
			Owner:     owner,
			Likes:     likes,
			Comments:  commentViews(p.Comments, people),
			CreatedAt: p.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})

	log.Printf("[FeedService] Feed OK: viewer=%d following=%d items=%d duration=%v",
		viewerID, len(following), len(items), time.Since(startTime))
	return items, nil
}
