// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/partyserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormParty{}, &models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) GetParty(code string) (*models.Party, error) {
	var row models.GormParty
	if err := p.db.Where("code = ?", code).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	var party models.Party
	if err := json.Unmarshal(row.Data, &party); err != nil {
		return nil, err
	}
	return &party, nil
}

func (p *GormPostgreSQL) PutParty(party *models.Party) error {
	raw, err := json.Marshal(party)
	if err != nil {
		return err
	}

	var row models.GormParty
	result := p.db.Where("code = ?", party.Code).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = models.GormParty{
			Code: party.Code,
			Data: raw,
		}
		return p.db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	row.Data = raw
	return p.db.Save(&row).Error
}

func (p *GormPostgreSQL) DeleteParty(code string) error {
	return p.db.Where("code = ?", code).Delete(&models.GormParty{}).Error
}

func (p *GormPostgreSQL) PartyExists(code string) (bool, error) {
	var count int64
	err := p.db.Model(&models.GormParty{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (p *GormPostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	row := models.GormGameRecord{
		Code:    record.Code,
		Host:    record.Host,
		Players: players,
	}
	return p.db.Create(&row).Error
}

func (p *GormPostgreSQL) GetPartyStats(code string) (*models.PartyStats, error) {
	stats := &models.PartyStats{}

	err := p.db.Raw(
		`SELECT COUNT(*) as total_games FROM gorm_game_records WHERE code = ? AND deleted_at IS NULL`,
		code,
	).Scan(stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Transaction 事务支持
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
