package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/internal/service"
	"github.com/lawpunks/punk-watcher/pkg/errors"
)

// PollerView 轮询服务的只读视图
type PollerView interface {
	Status() service.Status
	Staking() *model.StakingSnapshot
	Market() *model.MarketSet
	Metaverse() *model.MetaverseSet
}

// MetaverseRecordView 单个 token 的属性
type MetaverseRecordView struct {
	TokenID     uint64 `json:"token_id"`
	Level       uint64 `json:"level"`
	BaseScore   uint64 `json:"base_score"`
	WanderScore uint64 `json:"wander_score"`
	OutlawScore uint64 `json:"outlaw_score"`
	TotalScore  uint64 `json:"total_score"`
	Owner       string `json:"owner"`
	OwnerSlogan string `json:"owner_slogan"`
	PunkSlogan  string `json:"punk_slogan"`
	LockTime    uint64 `json:"lock_time"`
}

// SnapshotHandler 快照查询
type SnapshotHandler struct {
	poller PollerView
}

// NewSnapshotHandler 创建快照查询处理器
func NewSnapshotHandler(poller PollerView) *SnapshotHandler {
	return &SnapshotHandler{poller: poller}
}

// GetStaking 质押统计
// GET /v1/staking
func (h *SnapshotHandler) GetStaking(c *gin.Context) {
	snap := h.poller.Staking()
	if snap == nil {
		Error(c, errors.ErrNotFound.WithMessage("staking snapshot not available yet"))
		return
	}
	Success(c, snap)
}

// GetMetaverse 单个 token 属性
// GET /v1/metaverse/:tokenId
func (h *SnapshotHandler) GetMetaverse(c *gin.Context) {
	tokenID, err := strconv.ParseUint(c.Param("tokenId"), 10, 64)
	if err != nil {
		Error(c, errors.ErrInvalidArgs.WithMessage("tokenId must be a positive integer"))
		return
	}

	rec, ok := h.poller.Metaverse().Get(tokenID)
	if !ok {
		Error(c, errors.ErrNotFound.WithMessagef("token %d out of range", tokenID))
		return
	}

	Success(c, &MetaverseRecordView{
		TokenID:     tokenID,
		Level:       rec.Level,
		BaseScore:   rec.BaseScore,
		WanderScore: rec.WanderScore,
		OutlawScore: rec.OutlawScore,
		TotalScore:  rec.TotalScore,
		Owner:       rec.Owner,
		OwnerSlogan: rec.OwnerSlogan,
		PunkSlogan:  rec.PunkSlogan,
		LockTime:    rec.LockTime,
	})
}

// GetMarket 最近一次成功轮询的在售列表
// GET /v1/market
func (h *SnapshotHandler) GetMarket(c *gin.Context) {
	market := h.poller.Market()
	if market == nil {
		Success(c, []model.MarketRecord{})
		return
	}
	Success(c, market.Records())
}

// GetStatus 轮询状态
// GET /v1/status
func (h *SnapshotHandler) GetStatus(c *gin.Context) {
	Success(c, h.poller.Status())
}
