// Package store is the battle store: the single server-authoritative home of
// Battle and Participant records. Clients never cache its state across
// sessions; they re-list and reconcile.
package store

import (
	"context"
	"errors"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

var ErrNotFound = errors.New("battle not found")
var ErrNoInvitees = errors.New("a battle needs at least one invitee")
var ErrCreatorMissing = errors.New("creator must be among the invitees")

// Store is the four operations the coordinator consumes. Precondition
// failures surface as the guard errors from the battle package; the HTTP
// layer maps them to conflict responses.
type Store interface {
	// ListCampaignBattles returns the campaign's battles newest-first, with
	// participants embedded. An unknown campaign is an empty list, not an error.
	ListCampaignBattles(ctx context.Context, campaignID string) ([]battle.Battle, error)

	// CreateBattle opens a battle in the inviting state. Every invitee gets a
	// participant record; the creator's starts accepted, the rest invited.
	CreateBattle(ctx context.Context, campaignID, creatorID string, in battle.CreateInput) (battle.Battle, error)

	// JoinBattle accepts the caller's invite. Accepting twice is a no-op that
	// returns the current record. When the last invitee accepts, the battle
	// moves to prebattle in the same operation.
	JoinBattle(ctx context.Context, campaignID, battleID, userID string) (battle.Battle, error)

	// CancelBattle cancels a forming battle. The creator/status precondition
	// is re-checked here regardless of what the client believed.
	CancelBattle(ctx context.Context, campaignID, battleID, userID string) (battle.Battle, error)
}

func validateCreate(creatorID string, in battle.CreateInput) error {
	if len(in.Invitees) == 0 {
		return ErrNoInvitees
	}
	for _, inv := range in.Invitees {
		if inv.User.ID == creatorID {
			return nil
		}
	}
	return ErrCreatorMissing
}

func allAccepted(ps []battle.Participant) bool {
	for _, p := range ps {
		if p.Status != battle.Accepted {
			return false
		}
	}
	return len(ps) > 0
}
