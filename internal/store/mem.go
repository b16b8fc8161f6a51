package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

// Mem is an in-memory Store with the same semantics as Postgres. It backs
// handler and coordinator tests and small local setups.
type Mem struct {
	mu      sync.Mutex
	battles map[string]battle.Battle
	order   []string // battle ids, newest first
	now     func() time.Time
}

func NewMem() *Mem {
	return &Mem{
		battles: make(map[string]battle.Battle),
		now:     time.Now,
	}
}

func (m *Mem) ListCampaignBattles(_ context.Context, campaignID string) ([]battle.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []battle.Battle{}
	for _, id := range m.order {
		b := m.battles[id]
		if b.CampaignID == campaignID {
			out = append(out, copyBattle(b))
		}
	}
	return out, nil
}

func (m *Mem) CreateBattle(_ context.Context, campaignID, creatorID string, in battle.CreateInput) (battle.Battle, error) {
	if err := validateCreate(creatorID, in); err != nil {
		return battle.Battle{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := battle.Battle{
		ID:              uuid.NewString(),
		CampaignID:      campaignID,
		CreatedByUserID: creatorID,
		Title:           in.Title,
		Scenario:        in.Scenario,
		Status:          battle.StatusInviting,
		Settings:        in.Settings,
		CreatedAt:       m.now(),
	}
	for _, inv := range in.Invitees {
		status := battle.Invited
		if inv.User.ID == creatorID {
			status = battle.Accepted
		}
		b.Participants = append(b.Participants, battle.Participant{
			ID:             uuid.NewString(),
			BattleID:       b.ID,
			User:           inv.User,
			Warband:        inv.Warband,
			DeclaredRating: inv.DeclaredRating,
			Status:         status,
		})
	}

	m.battles[b.ID] = b
	m.order = append([]string{b.ID}, m.order...)
	return copyBattle(b), nil
}

func (m *Mem) JoinBattle(_ context.Context, campaignID, battleID, userID string) (battle.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.battles[battleID]
	if !ok || b.CampaignID != campaignID {
		return battle.Battle{}, ErrNotFound
	}

	if p, found := b.Participant(userID); found && p.Status == battle.Accepted {
		return copyBattle(b), nil
	}
	if err := battle.CanJoin(b, userID); err != nil {
		return battle.Battle{}, err
	}

	b = copyBattle(b)
	for i := range b.Participants {
		if b.Participants[i].User.ID == userID {
			b.Participants[i].Status = battle.Accepted
		}
	}
	if allAccepted(b.Participants) {
		b.Status = battle.StatusPreBattle
	}

	m.battles[battleID] = b
	return copyBattle(b), nil
}

func (m *Mem) CancelBattle(_ context.Context, campaignID, battleID, userID string) (battle.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.battles[battleID]
	if !ok || b.CampaignID != campaignID {
		return battle.Battle{}, ErrNotFound
	}
	if err := battle.CanCancel(b, userID); err != nil {
		return battle.Battle{}, err
	}

	b = copyBattle(b)
	b.Status = battle.StatusCanceled
	m.battles[battleID] = b
	return copyBattle(b), nil
}

// SetStatus force-sets a battle's status. Gameplay progression (prebattle →
// active → postbattle → ended) happens outside this subsystem's write path;
// tests use this to stage those states.
func (m *Mem) SetStatus(battleID string, status battle.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.battles[battleID]; ok {
		b.Status = status
		m.battles[battleID] = b
	}
}

func copyBattle(b battle.Battle) battle.Battle {
	out := b
	out.Participants = make([]battle.Participant, len(b.Participants))
	copy(out.Participants, b.Participants)
	if b.Settings != nil {
		out.Settings = append([]byte(nil), b.Settings...)
	}
	return out
}
