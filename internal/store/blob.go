// Package store 快照持久化
package store

import (
	"context"
	"errors"
)

// 快照键名
const (
	MetaverseKey = "metaverse.json"
	StakingKey   = "stakingInfo.json"
)

// ErrBlobNotFound 键不存在
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore 按键读写完整字节内容
type BlobStore interface {
	// Read 读取内容，不存在时返回 ErrBlobNotFound
	Read(ctx context.Context, key string) ([]byte, error)
	// Write 整体覆盖写入
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}
