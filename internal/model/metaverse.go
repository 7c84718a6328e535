package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// MaxTokenID LawPunks 最大 token id
const MaxTokenID = 10000

// metaverseTupleLen 持久化元组长度
const metaverseTupleLen = 9

// MetaverseRecord 单个 token 的元宇宙属性
//
// 持久化为 9 元组:
// [level, baseScore, wanderScore, outlawScore, totalScore, owner, ownerSlogan, punkSlogan, lockTime]
type MetaverseRecord struct {
	Level       uint64
	BaseScore   uint64
	WanderScore uint64
	OutlawScore uint64
	TotalScore  uint64
	Owner       string
	OwnerSlogan string
	PunkSlogan  string
	LockTime    uint64
}

// MarshalJSON 编码为 9 元组
func (r MetaverseRecord) MarshalJSON() ([]byte, error) {
	return marshalCanonical([]interface{}{
		r.Level,
		r.BaseScore,
		r.WanderScore,
		r.OutlawScore,
		r.TotalScore,
		r.Owner,
		r.OwnerSlogan,
		r.PunkSlogan,
		r.LockTime,
	})
}

// UnmarshalJSON 从 9 元组解码，null 解码为零值
func (r *MetaverseRecord) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = MetaverseRecord{}
		return nil
	}

	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != metaverseTupleLen {
		return fmt.Errorf("metaverse record: expected %d fields, got %d", metaverseTupleLen, len(tuple))
	}

	var rec MetaverseRecord
	targets := []interface{}{
		&rec.Level,
		&rec.BaseScore,
		&rec.WanderScore,
		&rec.OutlawScore,
		&rec.TotalScore,
		&rec.Owner,
		&rec.OwnerSlogan,
		&rec.PunkSlogan,
		&rec.LockTime,
	}
	for i, target := range targets {
		if err := json.Unmarshal(tuple[i], target); err != nil {
			return fmt.Errorf("metaverse record field %d: %w", i, err)
		}
	}

	*r = rec
	return nil
}

// MetaverseEntry 链上返回的一条记录
type MetaverseEntry struct {
	TokenID uint64
	Record  MetaverseRecord
}

// MetaverseSet 按 token id 索引的稀疏记录集合，index 0 保留
//
// 同一集合会被多个分页任务并发写入，所有访问都经过互斥锁。
type MetaverseSet struct {
	mu      sync.RWMutex
	records []MetaverseRecord
}

// NewMetaverseSet 创建包含 1..maxTokenID 零值占位的集合
func NewMetaverseSet(maxTokenID int) *MetaverseSet {
	if maxTokenID < 0 {
		maxTokenID = 0
	}
	return &MetaverseSet{records: make([]MetaverseRecord, maxTokenID+1)}
}

// MaxTokenID 返回集合可容纳的最大 token id
func (s *MetaverseSet) MaxTokenID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) - 1
}

// Apply 整条覆盖写入，越界的 token id 返回错误且不写入任何记录
func (s *MetaverseSet) Apply(entries []MetaverseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if e.TokenID == 0 || e.TokenID >= uint64(len(s.records)) {
			return fmt.Errorf("token id %d out of range 1..%d", e.TokenID, len(s.records)-1)
		}
	}
	for _, e := range entries {
		s.records[e.TokenID] = e.Record
	}
	return nil
}

// Get 获取单条记录
func (s *MetaverseSet) Get(tokenID uint64) (MetaverseRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tokenID == 0 || tokenID >= uint64(len(s.records)) {
		return MetaverseRecord{}, false
	}
	return s.records[tokenID], true
}

// TotalScores 返回所有记录的 totalScore 快照 (含 index 0)
func (s *MetaverseSet) TotalScores() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]uint64, len(s.records))
	for i, r := range s.records {
		scores[i] = r.TotalScore
	}
	return scores
}

// Snapshot 返回记录副本
func (s *MetaverseSet) Snapshot() []MetaverseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MetaverseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// MarshalJSON 编码为稠密数组
func (s *MetaverseSet) MarshalJSON() ([]byte, error) {
	return marshalCanonical(s.Snapshot())
}

// DecodeMetaverseSet 解码持久化内容，不足 maxTokenID 的部分补零值
func DecodeMetaverseSet(data []byte, maxTokenID int) (*MetaverseSet, error) {
	var records []MetaverseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	size := maxTokenID + 1
	if len(records) > size {
		size = len(records)
	}
	set := &MetaverseSet{records: make([]MetaverseRecord, size)}
	copy(set.records, records)
	return set, nil
}

// marshalCanonical JSON 编码，不转义 HTML 字符且不带结尾换行
func marshalCanonical(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
