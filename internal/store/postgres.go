package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

// Postgres is the gorm-backed Store.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&BattleRecord{}, &ParticipantRecord{}); err != nil {
		return nil, fmt.Errorf("migrate battle tables: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) ListCampaignBattles(ctx context.Context, campaignID string) ([]battle.Battle, error) {
	var recs []BattleRecord
	err := s.db.WithContext(ctx).
		Preload("Participants").
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}

	out := make([]battle.Battle, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Postgres) CreateBattle(ctx context.Context, campaignID, creatorID string, in battle.CreateInput) (battle.Battle, error) {
	if err := validateCreate(creatorID, in); err != nil {
		return battle.Battle{}, err
	}

	rec := BattleRecord{
		ID:              uuid.NewString(),
		CampaignID:      campaignID,
		CreatedByUserID: creatorID,
		Title:           in.Title,
		Scenario:        in.Scenario,
		Status:          string(battle.StatusInviting),
		SettingsJSON:    string(in.Settings),
	}
	for _, inv := range in.Invitees {
		status := battle.Invited
		if inv.User.ID == creatorID {
			status = battle.Accepted
		}
		rec.Participants = append(rec.Participants, ParticipantRecord{
			ID:             uuid.NewString(),
			BattleID:       rec.ID,
			UserID:         inv.User.ID,
			UserName:       inv.User.Name,
			WarbandID:      inv.Warband.ID,
			WarbandName:    inv.Warband.Name,
			WarbandRating:  inv.Warband.Rating,
			DeclaredRating: inv.DeclaredRating,
			Status:         string(status),
		})
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return battle.Battle{}, fmt.Errorf("create battle: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *Postgres) JoinBattle(ctx context.Context, campaignID, battleID, userID string) (battle.Battle, error) {
	var out battle.Battle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockBattle(tx, campaignID, battleID)
		if err != nil {
			return err
		}

		dom := rec.toDomain()
		if p, ok := dom.Participant(userID); ok && p.Status == battle.Accepted {
			// Already accepted: idempotent, return the current record untouched.
			out = dom
			return nil
		}
		if err := battle.CanJoin(dom, userID); err != nil {
			return err
		}

		err = tx.Model(&ParticipantRecord{}).
			Where("battle_id = ? AND user_id = ?", battleID, userID).
			Update("status", string(battle.Accepted)).Error
		if err != nil {
			return fmt.Errorf("accept invite: %w", err)
		}

		for i := range rec.Participants {
			if rec.Participants[i].UserID == userID {
				rec.Participants[i].Status = string(battle.Accepted)
			}
		}
		// Last acceptance moves the battle into prebattle.
		if allAccepted(rec.toDomain().Participants) {
			rec.Status = string(battle.StatusPreBattle)
			if err := tx.Model(&BattleRecord{}).Where("id = ?", rec.ID).
				Update("status", rec.Status).Error; err != nil {
				return fmt.Errorf("advance battle status: %w", err)
			}
		}

		out = rec.toDomain()
		return nil
	})
	if err != nil {
		return battle.Battle{}, err
	}
	return out, nil
}

func (s *Postgres) CancelBattle(ctx context.Context, campaignID, battleID, userID string) (battle.Battle, error) {
	var out battle.Battle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockBattle(tx, campaignID, battleID)
		if err != nil {
			return err
		}

		if err := battle.CanCancel(rec.toDomain(), userID); err != nil {
			return err
		}

		rec.Status = string(battle.StatusCanceled)
		if err := tx.Model(&BattleRecord{}).Where("id = ?", rec.ID).
			Update("status", rec.Status).Error; err != nil {
			return fmt.Errorf("cancel battle: %w", err)
		}

		out = rec.toDomain()
		return nil
	})
	if err != nil {
		return battle.Battle{}, err
	}
	return out, nil
}

func lockBattle(tx *gorm.DB, campaignID, battleID string) (*BattleRecord, error) {
	var rec BattleRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND campaign_id = ?", battleID, campaignID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load battle: %w", err)
	}
	if err := tx.Where("battle_id = ?", rec.ID).Find(&rec.Participants).Error; err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	return &rec, nil
}
