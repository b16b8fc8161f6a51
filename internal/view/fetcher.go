package view

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/jpreston42/warband-campaign/internal/battle"
	"github.com/jpreston42/warband-campaign/internal/session"
)

// Fetcher deduplicates concurrent battle-list fetches per campaign. Several
// triggers firing in the same window (focus regained plus visibility change,
// or two views over one campaign) share a single request and its result.
type Fetcher struct {
	repo  session.Repository
	group singleflight.Group
}

func NewFetcher(repo session.Repository) *Fetcher {
	return &Fetcher{repo: repo}
}

func (f *Fetcher) List(ctx context.Context, campaignID string) ([]battle.Battle, error) {
	// The flight is shared, so it must not die with whichever caller happened
	// to start it; the repository's own timeout still bounds the request.
	v, err, _ := f.group.Do(campaignID, func() (any, error) {
		return f.repo.ListCampaignBattles(context.WithoutCancel(ctx), campaignID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]battle.Battle), nil
}
