package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// StakingSnapshot 质押统计快照，所有字段同时计算
//
// 持久化为字符串数值字段的对象，字段顺序固定。
type StakingSnapshot struct {
	BchFloor                  decimal.Decimal `json:"bchFloor"`
	LawFloor                  decimal.Decimal `json:"lawFloor"`
	TotalHashRate             decimal.Decimal `json:"totalHashRate"`
	TotalHashRateStaked       decimal.Decimal `json:"totalHashRateStaked"`
	TotalPunkValueLockedInBch decimal.Decimal `json:"totalPunkValueLockedInBch"`
}

// Encode 编码为持久化格式
func (s *StakingSnapshot) Encode() ([]byte, error) {
	return marshalCanonical(s)
}

// DecodeStakingSnapshot 解码持久化内容
func DecodeStakingSnapshot(data []byte) (*StakingSnapshot, error) {
	var s StakingSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeMetaverseSet 编码为持久化格式
func EncodeMetaverseSet(s *MetaverseSet) ([]byte, error) {
	return s.MarshalJSON()
}
