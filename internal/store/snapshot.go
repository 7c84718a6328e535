package store

import (
	"bytes"
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/metrics"
	"github.com/lawpunks/punk-watcher/internal/model"
	apperrors "github.com/lawpunks/punk-watcher/pkg/errors"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// SaveResult 本次保存实际写入的快照
type SaveResult struct {
	MetaverseWritten bool
	StakingWritten   bool
}

// Written 是否有任一快照被写入
func (r SaveResult) Written() bool {
	return r.MetaverseWritten || r.StakingWritten
}

// SnapshotStore 比较后写入两份快照
type SnapshotStore struct {
	blobs      BlobStore
	maxTokenID int
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(blobs BlobStore, maxTokenID int) *SnapshotStore {
	if maxTokenID <= 0 {
		maxTokenID = model.MaxTokenID
	}
	return &SnapshotStore{blobs: blobs, maxTokenID: maxTokenID}
}

// Load 启动时加载快照
//
// 两份快照互不影响：不存在、读取失败或内容无法解析时该份使用默认值。
// 没有可用的质押快照时返回 nil。
func (s *SnapshotStore) Load(ctx context.Context) (*model.MetaverseSet, *model.StakingSnapshot) {
	log := logger.WithContext(ctx)

	metaverse := model.NewMetaverseSet(s.maxTokenID)
	if data, ok := s.read(ctx, MetaverseKey); ok {
		set, err := model.DecodeMetaverseSet(data, s.maxTokenID)
		if err != nil {
			log.Error("failed to decode snapshot, using default",
				zap.String("blob", MetaverseKey),
				zap.String("code", apperrors.ErrDecode.Code),
				zap.Error(err))
		} else {
			metaverse = set
			log.Info("snapshot loaded", zap.String("blob", MetaverseKey), zap.Int("bytes", len(data)))
		}
	}

	var staking *model.StakingSnapshot
	if data, ok := s.read(ctx, StakingKey); ok {
		snap, err := model.DecodeStakingSnapshot(data)
		if err != nil {
			log.Error("failed to decode snapshot, using default",
				zap.String("blob", StakingKey),
				zap.String("code", apperrors.ErrDecode.Code),
				zap.Error(err))
		} else {
			staking = snap
			log.Info("snapshot loaded", zap.String("blob", StakingKey), zap.Int("bytes", len(data)))
		}
	}

	return metaverse, staking
}

func (s *SnapshotStore) read(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.blobs.Read(ctx, key)
	if errors.Is(err, ErrBlobNotFound) {
		logger.WithContext(ctx).Info("no persisted snapshot", zap.String("blob", key))
		return nil, false
	}
	if err != nil {
		logger.WithContext(ctx).Error("failed to read snapshot, using default",
			zap.String("blob", key),
			zap.Error(err))
		return nil, false
	}
	return data, true
}

// Save 只写入内容发生变化的快照，写入失败返回 PersistenceError
//
// 两份快照分别写入，不是事务：前一份写入成功后一份失败时，前一份不会回滚。
func (s *SnapshotStore) Save(ctx context.Context, metaverse *model.MetaverseSet, staking *model.StakingSnapshot) (SaveResult, error) {
	var result SaveResult

	if metaverse == nil || staking == nil {
		return result, apperrors.ErrPersistence.WithMessage("nothing to persist")
	}

	metaverseData, err := model.EncodeMetaverseSet(metaverse)
	if err != nil {
		return result, apperrors.WrapWithCause(apperrors.ErrPersistence, err, "encode %s", MetaverseKey)
	}
	stakingData, err := staking.Encode()
	if err != nil {
		return result, apperrors.WrapWithCause(apperrors.ErrPersistence, err, "encode %s", StakingKey)
	}

	result.MetaverseWritten, err = s.writeIfChanged(ctx, MetaverseKey, metaverseData)
	if err != nil {
		return result, err
	}
	result.StakingWritten, err = s.writeIfChanged(ctx, StakingKey, stakingData)
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *SnapshotStore) writeIfChanged(ctx context.Context, key string, data []byte) (bool, error) {
	current, err := s.blobs.Read(ctx, key)
	switch {
	case err == nil && bytes.Equal(current, data):
		metrics.SnapshotWritesTotal.WithLabelValues(key, "unchanged").Inc()
		return false, nil
	case err != nil && !errors.Is(err, ErrBlobNotFound):
		logger.WithContext(ctx).Warn("failed to read persisted snapshot, overwriting",
			zap.String("blob", key),
			zap.Error(err))
	}

	if err := s.blobs.Write(ctx, key, data); err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues(key, "failed").Inc()
		return false, apperrors.WrapWithCause(apperrors.ErrPersistence, err, "write %s", key)
	}

	metrics.SnapshotWritesTotal.WithLabelValues(key, "written").Inc()
	logger.WithContext(ctx).Info("snapshot written",
		zap.String("blob", key),
		zap.Int("bytes", len(data)))
	return true, nil
}

// Close 关闭底层存储
func (s *SnapshotStore) Close() error {
	return s.blobs.Close()
}
