// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/partyserver/models"
)

// PostgreSQL 基于 database/sql 的存储实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS parties (
            id SERIAL PRIMARY KEY,
            code VARCHAR(6) UNIQUE NOT NULL,
            data JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            code VARCHAR(6) NOT NULL,
            host TEXT NOT NULL,
            players JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_game_records_code ON game_records (code)`)
	return err
}

func (p *PostgreSQL) GetParty(code string) (*models.Party, error) {
	var raw []byte
	err := p.db.QueryRow(`SELECT data FROM parties WHERE code = $1`, code).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var party models.Party
	if err := json.Unmarshal(raw, &party); err != nil {
		return nil, err
	}
	return &party, nil
}

func (p *PostgreSQL) PutParty(party *models.Party) error {
	raw, err := json.Marshal(party)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
        INSERT INTO parties (code, data) VALUES ($1, $2)
        ON CONFLICT (code) DO UPDATE SET data = $2, updated_at = CURRENT_TIMESTAMP`,
		party.Code, raw)
	return err
}

func (p *PostgreSQL) DeleteParty(code string) error {
	_, err := p.db.Exec(`DELETE FROM parties WHERE code = $1`, code)
	return err
}

func (p *PostgreSQL) PartyExists(code string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM parties WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

func (p *PostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`INSERT INTO game_records (code, host, players) VALUES ($1, $2, $3)`,
		record.Code, record.Host, players)
	return err
}

func (p *PostgreSQL) GetPartyStats(code string) (*models.PartyStats, error) {
	stats := &models.PartyStats{}
	err := p.db.QueryRow(`SELECT COUNT(*) FROM game_records WHERE code = $1`, code).
		Scan(&stats.TotalGames)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
