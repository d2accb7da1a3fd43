package store

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to dsn and migrates the ledger tables.
// The caller is responsible for calling Close() on the store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&Wallet{}, &RewardEntry{}, &MatchRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) PayReward(ctx context.Context, playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&RewardEntry{PlayerID: playerID, Amount: amount}).Error; err != nil {
			return fmt.Errorf("failed to write reward entry: %w", err)
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("wallets.balance + ?", amount),
				"updated_at": gorm.Expr("now()"),
			}),
		}).Create(&Wallet{PlayerID: playerID, Balance: amount}).Error
		if err != nil {
			return fmt.Errorf("failed to credit wallet for player %s: %w", playerID, err)
		}
		return nil
	})
}

func (s *PostgresStore) Balance(ctx context.Context, playerID string) (int64, error) {
	var w Wallet
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Limit(1).Find(&w).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w.Balance, nil
}

func (s *PostgresStore) RecordMatch(ctx context.Context, rec ports.MatchRecord) error {
	m := newMatchRecord(rec)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to record match %s: %w", rec.Token, err)
	}
	return nil
}

func (s *PostgresStore) Matches(ctx context.Context, limit int) ([]MatchRecord, error) {
	var out []MatchRecord
	err := s.db.WithContext(ctx).Order("ended_at desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
