package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// SnapshotBlob 快照表记录
type SnapshotBlob struct {
	Key       string    `gorm:"column:blob_key;primaryKey;type:varchar(64)"`
	Data      []byte    `gorm:"column:data;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 表名
func (SnapshotBlob) TableName() string {
	return "snapshot_blobs"
}

// PostgresOptions PostgreSQL 连接参数
type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres 打开 PostgreSQL 连接池
func OpenPostgres(opts PostgresOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

// GormStore 快照存放在 snapshot_blobs 表
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建存储并迁移表结构
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&SnapshotBlob{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Read 读取快照
func (s *GormStore) Read(ctx context.Context, key string) ([]byte, error) {
	var blob SnapshotBlob
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

// Write 按键 upsert
func (s *GormStore) Write(ctx context.Context, key string, data []byte) error {
	blob := &SnapshotBlob{Key: key, Data: data, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(blob).Error
}

// Close 关闭底层连接池
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
