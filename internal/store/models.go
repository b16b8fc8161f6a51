package store

import (
	"encoding/json"
	"time"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

// BattleRecord is the persisted shape of a battle. Settings are stored as an
// opaque JSON string; the store never interprets them.
type BattleRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	CampaignID      string `gorm:"index;not null"`
	CreatedByUserID string `gorm:"not null"`
	Title           string
	Scenario        string
	Status          string              `gorm:"index;not null;default:'inviting'"`
	SettingsJSON    string              `gorm:"column:settings_json"`
	Participants    []ParticipantRecord `gorm:"foreignKey:BattleID"`
	CreatedAt       time.Time           `gorm:"index"`
	UpdatedAt       time.Time
}

func (BattleRecord) TableName() string { return "battles" }

type ParticipantRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	BattleID       string `gorm:"index;not null"`
	UserID         string `gorm:"index;not null"`
	UserName       string
	WarbandID      string
	WarbandName    string
	WarbandRating  int
	DeclaredRating *int
	Status         string `gorm:"not null;default:'invited'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ParticipantRecord) TableName() string { return "battle_participants" }

func (r BattleRecord) toDomain() battle.Battle {
	b := battle.Battle{
		ID:              r.ID,
		CampaignID:      r.CampaignID,
		CreatedByUserID: r.CreatedByUserID,
		Title:           r.Title,
		Scenario:        r.Scenario,
		Status:          battle.Status(r.Status),
		Participants:    make([]battle.Participant, 0, len(r.Participants)),
		CreatedAt:       r.CreatedAt,
	}
	if r.SettingsJSON != "" {
		b.Settings = json.RawMessage(r.SettingsJSON)
	}
	for _, p := range r.Participants {
		b.Participants = append(b.Participants, p.toDomain())
	}
	return b
}

func (r ParticipantRecord) toDomain() battle.Participant {
	return battle.Participant{
		ID:             r.ID,
		BattleID:       r.BattleID,
		User:           battle.UserRef{ID: r.UserID, Name: r.UserName},
		Warband:        battle.WarbandRef{ID: r.WarbandID, Name: r.WarbandName, Rating: r.WarbandRating},
		DeclaredRating: r.DeclaredRating,
		Status:         battle.ParticipantStatus(r.Status),
	}
}
