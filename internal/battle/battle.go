package battle

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotInviting = errors.New("battle is not accepting invites")
var ErrNotParticipant = errors.New("viewer is not a participant in this battle")
var ErrInviteDeclined = errors.New("invite was declined")
var ErrNotCreator = errors.New("only the battle creator may cancel")
var ErrBattleClosed = errors.New("battle can no longer be canceled")

type Status string

const (
	StatusInviting   Status = "inviting"
	StatusPreBattle  Status = "prebattle"
	StatusActive     Status = "active"
	StatusPostBattle Status = "postbattle"
	StatusEnded      Status = "ended"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusCanceled
}

func (s Status) Valid() bool {
	switch s {
	case StatusInviting, StatusPreBattle, StatusActive, StatusPostBattle, StatusEnded, StatusCanceled:
		return true
	default:
		return false
	}
}

type ParticipantStatus string

const (
	Invited  ParticipantStatus = "invited"
	Accepted ParticipantStatus = "accepted"
	Declined ParticipantStatus = "declined"
)

// UserRef points at an identity owned by the external identity system.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WarbandRef is the warband a participant fields, referenced by id.
type WarbandRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

type Participant struct {
	ID             string            `json:"id"`
	BattleID       string            `json:"battle_id"`
	User           UserRef           `json:"user"`
	Warband        WarbandRef        `json:"warband"`
	DeclaredRating *int              `json:"declared_rating,omitempty"`
	Status         ParticipantStatus `json:"status"`
}

type Battle struct {
	ID              string          `json:"id"`
	CampaignID      string          `json:"campaign_id"`
	CreatedByUserID string          `json:"created_by_user_id"`
	Title           string          `json:"title"`
	Scenario        string          `json:"scenario"`
	Status          Status          `json:"status"`
	Settings        json.RawMessage `json:"settings,omitempty"`
	Participants    []Participant   `json:"participants"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Participant returns the record for the given user, if any.
func (b Battle) Participant(userID string) (Participant, bool) {
	for _, p := range b.Participants {
		if p.User.ID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Invitee describes one participant slot at battle creation time.
type Invitee struct {
	User           UserRef    `json:"user"`
	Warband        WarbandRef `json:"warband"`
	DeclaredRating *int       `json:"declared_rating,omitempty"`
}

// CreateInput is the payload for proposing a new battle. The creator must
// appear among the invitees; their participant record starts accepted.
type CreateInput struct {
	Title    string          `json:"title"`
	Scenario string          `json:"scenario"`
	Invitees []Invitee       `json:"invitees"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// CanJoin reports whether userID may accept their invite. A participant who
// already accepted gets nil so the caller can treat the action as idempotent;
// the server responds with the current record either way.
func CanJoin(b Battle, userID string) error {
	if b.Status != StatusInviting {
		return ErrNotInviting
	}
	p, ok := b.Participant(userID)
	if !ok {
		return ErrNotParticipant
	}
	if p.Status == Declined {
		return ErrInviteDeclined
	}
	return nil
}

// CanCancel reports whether userID may cancel the battle. Only the creator
// may cancel, and only while the battle is still forming.
func CanCancel(b Battle, userID string) error {
	if b.CreatedByUserID != userID {
		return ErrNotCreator
	}
	if b.Status != StatusInviting && b.Status != StatusPreBattle {
		return ErrBattleClosed
	}
	return nil
}
