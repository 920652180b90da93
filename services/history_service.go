// services/history_service.go
package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
)

// HistoryService reads game-start history for a party out of the GORM store.
type HistoryService struct {
	db *persistence.GormPostgreSQL
}

func NewHistoryService(db *persistence.GormPostgreSQL) *HistoryService {
	return &HistoryService{db: db}
}

// GetPartyHistory 获取派对的开局统计和最近记录
func (s *HistoryService) GetPartyHistory(code string, limit int) (map[string]interface{}, error) {
	var result map[string]interface{}

	// 使用事务确保数据一致性
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stats, err := s.db.GetPartyStats(code)
		if err != nil {
			return err
		}

		var rows []models.GormGameRecord
		if err := tx.Where("code = ?", code).
			Order("created_at DESC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}

		records := make([]models.GameRecord, 0, len(rows))
		for _, row := range rows {
			var players []string
			if err := json.Unmarshal(row.Players, &players); err != nil {
				return err
			}
			records = append(records, models.GameRecord{
				Code:    row.Code,
				Host:    row.Host,
				Players: players,
			})
		}

		result = map[string]interface{}{
			"stats":   stats,
			"records": records,
		}
		return nil
	})

	return result, err
}
