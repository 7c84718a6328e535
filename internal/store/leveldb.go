package store

import (
	"context"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBStore 本地 LevelDB 存储
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore 打开或创建数据库
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Read 读取快照
func (s *LevelDBStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

// Write 同步写入
func (s *LevelDBStore) Write(ctx context.Context, key string, data []byte) error {
	return s.db.Put([]byte(key), data, &opt.WriteOptions{Sync: true})
}

// Close 关闭数据库
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
