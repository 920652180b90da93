// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormParty 存储整个 Party 文档，按 code 唯一索引
type GormParty struct {
	gorm.Model
	Code string `gorm:"uniqueIndex;not null"`
	Data []byte `gorm:"type:jsonb;not null"`
}

// GormGameRecord 记录每次开局
type GormGameRecord struct {
	gorm.Model
	Code    string `gorm:"index;not null"`
	Host    string `gorm:"not null"`
	Players []byte `gorm:"type:jsonb;not null"`
}

// PartyStats 每个派对的开局统计
type PartyStats struct {
	TotalGames int `json:"total_games"`
	LastRound  int `json:"last_round"`
}

// GameRecord is the storage-agnostic shape of a game-start record.
type GameRecord struct {
	Code    string   `json:"code"`
	Host    string   `json:"host"`
	Players []string `json:"players"`
}
