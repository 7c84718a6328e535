package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawpunks/punk-watcher/internal/model"
	apperrors "github.com/lawpunks/punk-watcher/pkg/errors"
)

// memStore 记录写入次数的内存存储
type memStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	writes   map[string]int
	readErr  error
	writeErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		data:     make(map[string][]byte),
		writes:   make(map[string]int),
		writeErr: make(map[string]error),
	}
}

func (m *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr[key]; err != nil {
		return err
	}
	m.data[key] = append([]byte(nil), data...)
	m.writes[key]++
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) totalWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.writes {
		n += c
	}
	return n
}

func sampleSnapshot() *model.StakingSnapshot {
	return &model.StakingSnapshot{
		BchFloor:                  decimal.NewFromInt(50),
		LawFloor:                  decimal.NewFromInt(200),
		TotalHashRate:             decimal.NewFromInt(43500000000),
		TotalHashRateStaked:       decimal.NewFromInt(1000000000000),
		TotalPunkValueLockedInBch: decimal.NewFromInt(11494252),
	}
}

func sampleMetaverse(t *testing.T) *model.MetaverseSet {
	set := model.NewMetaverseSet(3)
	require.NoError(t, set.Apply([]model.MetaverseEntry{
		{TokenID: 2, Record: model.MetaverseRecord{Level: 1, TotalScore: 100000000, Owner: "0xabc", PunkSlogan: "<&>"}},
	}))
	return set
}

func TestSnapshotStore_LoadDefaults(t *testing.T) {
	s := NewSnapshotStore(newMemStore(), 5)

	metaverse, staking := s.Load(context.Background())
	assert.Equal(t, 5, metaverse.MaxTokenID())
	assert.Nil(t, staking)
}

// TestSnapshotStore_LoadIsolatesBlobs 一份损坏不影响另一份
func TestSnapshotStore_LoadIsolatesBlobs(t *testing.T) {
	blobs := newMemStore()
	blobs.data[MetaverseKey] = []byte(`{broken`)
	blobs.data[StakingKey] = []byte(`{"bchFloor":"50","lawFloor":"0","totalHashRate":"1","totalHashRateStaked":"2","totalPunkValueLockedInBch":"3"}`)

	metaverse, staking := NewSnapshotStore(blobs, 5).Load(context.Background())
	assert.Equal(t, make([]model.MetaverseRecord, 6), metaverse.Snapshot())
	require.NotNil(t, staking)
	assert.Equal(t, "50", staking.BchFloor.String())

	blobs.data[MetaverseKey] = []byte(`[[0,0,0,0,0,"","","",0],[1,2,3,4,5,"0x1","a","b",6]]`)
	blobs.data[StakingKey] = []byte(`not json`)

	metaverse, staking = NewSnapshotStore(blobs, 5).Load(context.Background())
	rec, _ := metaverse.Get(1)
	assert.Equal(t, uint64(5), rec.TotalScore)
	assert.Equal(t, 5, metaverse.MaxTokenID())
	assert.Nil(t, staking)
}

func TestSnapshotStore_LoadReadFailure(t *testing.T) {
	blobs := newMemStore()
	blobs.readErr = errors.New("disk unavailable")

	metaverse, staking := NewSnapshotStore(blobs, 5).Load(context.Background())
	assert.Equal(t, 5, metaverse.MaxTokenID())
	assert.Nil(t, staking)
}

// TestSnapshotStore_SaveIdempotent 相同内容保存两次最多写一次
func TestSnapshotStore_SaveIdempotent(t *testing.T) {
	blobs := newMemStore()
	s := NewSnapshotStore(blobs, 3)
	ctx := context.Background()

	res, err := s.Save(ctx, sampleMetaverse(t), sampleSnapshot())
	require.NoError(t, err)
	assert.True(t, res.MetaverseWritten)
	assert.True(t, res.StakingWritten)
	assert.Equal(t, 2, blobs.totalWrites())

	res, err = s.Save(ctx, sampleMetaverse(t), sampleSnapshot())
	require.NoError(t, err)
	assert.False(t, res.Written())
	assert.Equal(t, 2, blobs.totalWrites())

	assert.Equal(t,
		`[[0,0,0,0,0,"","","",0],[0,0,0,0,0,"","","",0],[1,0,0,0,100000000,"0xabc","","<&>",0],[0,0,0,0,0,"","","",0]]`,
		string(blobs.data[MetaverseKey]))
}

func TestSnapshotStore_SaveOnlyChangedBlob(t *testing.T) {
	blobs := newMemStore()
	s := NewSnapshotStore(blobs, 3)
	ctx := context.Background()

	_, err := s.Save(ctx, sampleMetaverse(t), sampleSnapshot())
	require.NoError(t, err)

	changed := sampleSnapshot()
	changed.BchFloor = decimal.NewFromInt(49)
	res, err := s.Save(ctx, sampleMetaverse(t), changed)
	require.NoError(t, err)
	assert.False(t, res.MetaverseWritten)
	assert.True(t, res.StakingWritten)
	assert.Equal(t, 1, blobs.writes[MetaverseKey])
	assert.Equal(t, 2, blobs.writes[StakingKey])
}

func TestSnapshotStore_SaveRoundTrip(t *testing.T) {
	blobs := newMemStore()
	s := NewSnapshotStore(blobs, 3)
	ctx := context.Background()

	_, err := s.Save(ctx, sampleMetaverse(t), sampleSnapshot())
	require.NoError(t, err)

	metaverse, staking := s.Load(ctx)
	assert.Equal(t, sampleMetaverse(t).Snapshot(), metaverse.Snapshot())
	require.NotNil(t, staking)
	assert.True(t, staking.TotalPunkValueLockedInBch.Equal(decimal.NewFromInt(11494252)))
}

func TestSnapshotStore_SaveWriteFailure(t *testing.T) {
	blobs := newMemStore()
	blobs.writeErr[StakingKey] = errors.New("read-only file system")
	s := NewSnapshotStore(blobs, 3)

	res, err := s.Save(context.Background(), sampleMetaverse(t), sampleSnapshot())
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistence))
	assert.True(t, res.MetaverseWritten)
	assert.False(t, res.StakingWritten)
}

func TestSnapshotStore_SaveRequiresBothAggregates(t *testing.T) {
	s := NewSnapshotStore(newMemStore(), 3)
	_, err := s.Save(context.Background(), sampleMetaverse(t), nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistence))
}
