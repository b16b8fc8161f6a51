package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

func testInput() battle.CreateInput {
	rating := 112
	return battle.CreateInput{
		Title:    "Skirmish at the gate",
		Scenario: "ambush",
		Invitees: []battle.Invitee{
			{User: battle.UserRef{ID: "creator", Name: "Ana"}, Warband: battle.WarbandRef{ID: "w1", Name: "Redcaps", Rating: 98}},
			{User: battle.UserRef{ID: "playerB", Name: "Bo"}, Warband: battle.WarbandRef{ID: "w2", Name: "Moss Eaters", Rating: 120}, DeclaredRating: &rating},
		},
		Settings: []byte(`{"map":"ruins"}`),
	}
}

func TestMem_CreateBattle(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	b, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)
	require.Equal(t, battle.StatusInviting, b.Status)
	require.Equal(t, "creator", b.CreatedByUserID)
	require.Len(t, b.Participants, 2)

	creator, ok := b.Participant("creator")
	require.True(t, ok)
	require.Equal(t, battle.Accepted, creator.Status, "creator is pre-accepted")

	invitee, ok := b.Participant("playerB")
	require.True(t, ok)
	require.Equal(t, battle.Invited, invitee.Status)
	require.NotNil(t, invitee.DeclaredRating)
	require.Equal(t, 112, *invitee.DeclaredRating)
}

func TestMem_CreateBattle_Validation(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	_, err := m.CreateBattle(ctx, "c1", "creator", battle.CreateInput{})
	require.ErrorIs(t, err, ErrNoInvitees)

	in := testInput()
	in.Invitees = in.Invitees[1:]
	_, err = m.CreateBattle(ctx, "c1", "creator", in)
	require.ErrorIs(t, err, ErrCreatorMissing)
}

func TestMem_List_NewestFirstAndScoped(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { tick = tick.Add(time.Minute); return tick }

	first, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)
	second, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)
	_, err = m.CreateBattle(ctx, "other", "creator", testInput())
	require.NoError(t, err)

	got, err := m.ListCampaignBattles(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, second.ID, got[0].ID)
	require.Equal(t, first.ID, got[1].ID)

	empty, err := m.ListCampaignBattles(ctx, "no-such-campaign")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMem_JoinBattle(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	b, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)

	joined, err := m.JoinBattle(ctx, "c1", b.ID, "playerB")
	require.NoError(t, err)

	p, ok := joined.Participant("playerB")
	require.True(t, ok)
	require.Equal(t, battle.Accepted, p.Status)
	// last acceptance flips the battle itself
	require.Equal(t, battle.StatusPreBattle, joined.Status)
}

func TestMem_JoinBattle_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	b, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)

	_, err = m.JoinBattle(ctx, "c1", b.ID, "playerB")
	require.NoError(t, err)

	again, err := m.JoinBattle(ctx, "c1", b.ID, "playerB")
	require.NoError(t, err)
	require.Len(t, again.Participants, 2, "no duplicate participant records")
	require.Equal(t, battle.StatusPreBattle, again.Status)
}

func TestMem_JoinBattle_Preconditions(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	b, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)

	_, err = m.JoinBattle(ctx, "c1", b.ID, "stranger")
	require.ErrorIs(t, err, battle.ErrNotParticipant)

	_, err = m.JoinBattle(ctx, "c1", "no-such-battle", "playerB")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.JoinBattle(ctx, "wrong-campaign", b.ID, "playerB")
	require.ErrorIs(t, err, ErrNotFound)

	m.SetStatus(b.ID, battle.StatusActive)
	_, err = m.JoinBattle(ctx, "c1", b.ID, "playerB")
	require.ErrorIs(t, err, battle.ErrNotInviting)
}

func TestMem_CancelBattle(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	b, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)

	_, err = m.CancelBattle(ctx, "c1", b.ID, "playerB")
	require.ErrorIs(t, err, battle.ErrNotCreator)

	canceled, err := m.CancelBattle(ctx, "c1", b.ID, "creator")
	require.NoError(t, err)
	require.Equal(t, battle.StatusCanceled, canceled.Status)

	// canceled battles leave the resumable set
	list, err := m.ListCampaignBattles(ctx, "c1")
	require.NoError(t, err)
	_, _, ok := battle.PickResumable(list)
	require.False(t, ok)

	// and a canceled battle cannot be canceled again
	_, err = m.CancelBattle(ctx, "c1", b.ID, "creator")
	require.ErrorIs(t, err, battle.ErrBattleClosed)
}

func TestMem_CancelBattle_RejectedOncePlayStarts(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	b, err := m.CreateBattle(ctx, "c1", "creator", testInput())
	require.NoError(t, err)

	for _, s := range []battle.Status{battle.StatusActive, battle.StatusPostBattle, battle.StatusEnded} {
		m.SetStatus(b.ID, s)
		_, err := m.CancelBattle(ctx, "c1", b.ID, "creator")
		require.ErrorIs(t, err, battle.ErrBattleClosed, "status %q", s)
	}
}
