package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3306, User: "bank", Password: "secret", DBName: "tinybank"}
	assert.Equal(t, "bank:secret@tcp(db:3306)/tinybank?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
	assert.NotContains(t, cfg.Redacted(), "secret")
}

func TestNewLogger(t *testing.T) {
	// 未知等級退回 Error
	assert.NotNil(t, newLogger("nope"))
	assert.NotNil(t, newLogger("info").LogMode(logger.Silent))
}
