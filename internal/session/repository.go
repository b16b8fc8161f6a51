// Package session talks to the remote battle store on behalf of one signed-in
// viewer. It is the only place transport details live; everything above it
// sees domain records and normalized errors.
package session

import (
	"context"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

// Repository is the four operations the coordinator consumes.
type Repository interface {
	// ListCampaignBattles returns the campaign's battles newest-first. An
	// empty campaign yields an empty, non-nil slice.
	ListCampaignBattles(ctx context.Context, campaignID string) ([]battle.Battle, error)

	// CreateBattle proposes a battle with the given invitees.
	CreateBattle(ctx context.Context, campaignID string, in battle.CreateInput) (battle.Battle, error)

	// JoinBattle accepts the viewer's invite and returns the fully updated
	// battle record, which may already reflect an aggregate status change.
	// Idempotent from the caller's perspective.
	JoinBattle(ctx context.Context, campaignID, battleID string) (battle.Battle, error)

	// CancelBattleAsCreator cancels a forming battle. The server re-checks the
	// creator/status precondition; the client's own guard is advisory only.
	CancelBattleAsCreator(ctx context.Context, campaignID, battleID string) (battle.Battle, error)
}
