package contract

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lawpunks/punk-watcher/pkg/errors"
)

// fakeCaller 按方法选择器返回预置结果
type fakeCaller struct {
	responses map[string][]byte
	err       error
	calls     []ethereum.CallMsg
}

func (f *fakeCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[string(call.Data[:4])], nil
}

func mustABI(t *testing.T, def string) abi.ABI {
	t.Helper()
	a, err := abi.JSON(strings.NewReader(def))
	require.NoError(t, err)
	return a
}

func testAddresses() Addresses {
	addrs, _ := ParseAddresses(
		"0x99e858958e16c015f5b7B710D960498EEee76994",
		"0xA0DB7a4D305407a9069612bdcb98AC4e75D3a556",
		"0xff48aAbDDACdc8A6263A2eBC6C1A68d8c46b1bf7",
		"0xc062bf9FaBE930FF8061f72b908AB1b702b3FdD6",
		"0x9E9eACB7E5dCc374d3108598054787ccae967544",
		"0xbeAAe3E87Bf71C97e458e2b9C84467bdc3b871c6",
	)
	return addrs
}

func TestParseAddresses_Invalid(t *testing.T) {
	_, err := ParseAddresses("0x1", "", "", "", "", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "aggregator")
}

func TestReader_FetchMetaverseRange(t *testing.T) {
	aggABI := mustABI(t, AggregatorABI)
	owner := common.HexToAddress("0x0000000000000000000000000000000000000abc")

	out, err := aggABI.Methods[methodMetaverseByIndex].Outputs.Pack(
		[]metaverseSound{
			{TokenId: big.NewInt(1), Owner: owner, OwnerSlogan: "hi", PunkSlogan: "<law>"},
			{TokenId: big.NewInt(2), Owner: owner},
		},
		[]metaverseInfo{
			{PunkId: big.NewInt(1), Level: big.NewInt(3), BaseScore: big.NewInt(10), WanderScore: big.NewInt(1), OutlawScore: big.NewInt(2), TotalScore: big.NewInt(400000000)},
			{PunkId: big.NewInt(2), Level: big.NewInt(1), BaseScore: big.NewInt(5), WanderScore: big.NewInt(0), OutlawScore: big.NewInt(0), TotalScore: big.NewInt(100000000)},
		},
		[]*big.Int{big.NewInt(1650000000), big.NewInt(0)},
	)
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{
		string(aggABI.Methods[methodMetaverseByIndex].ID): out,
	}}
	r, err := NewReader(caller, testAddresses())
	require.NoError(t, err)

	entries, err := r.FetchMetaverseRange(context.Background(), 1, 30)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint64(1), entries[0].TokenID)
	assert.Equal(t, uint64(3), entries[0].Record.Level)
	assert.Equal(t, uint64(400000000), entries[0].Record.TotalScore)
	assert.Equal(t, owner.Hex(), entries[0].Record.Owner)
	assert.Equal(t, "<law>", entries[0].Record.PunkSlogan)
	assert.Equal(t, uint64(1650000000), entries[0].Record.LockTime)
	assert.Equal(t, uint64(2), entries[1].TokenID)

	// 调用目标与参数
	require.Len(t, caller.calls, 1)
	assert.Equal(t, testAddresses().Aggregator, *caller.calls[0].To)
	args, err := aggABI.Methods[methodMetaverseByIndex].Inputs.Unpack(caller.calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, testAddresses().Dex, args[0])
	assert.Equal(t, testAddresses().Level, args[1])
	assert.Equal(t, big.NewInt(1), args[2])
	assert.Equal(t, big.NewInt(30), args[3])
}

func TestReader_FetchMetaverseRange_LengthMismatch(t *testing.T) {
	aggABI := mustABI(t, AggregatorABI)
	out, err := aggABI.Methods[methodMetaverseByIndex].Outputs.Pack(
		[]metaverseSound{{TokenId: big.NewInt(1)}},
		[]metaverseInfo{},
		[]*big.Int{big.NewInt(0)},
	)
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{
		string(aggABI.Methods[methodMetaverseByIndex].ID): out,
	}}
	r, err := NewReader(caller, testAddresses())
	require.NoError(t, err)

	_, err = r.FetchMetaverseRange(context.Background(), 1, 30)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
}

func TestReader_FetchMetaverseRange_ValueOverflow(t *testing.T) {
	aggABI := mustABI(t, AggregatorABI)
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	out, err := aggABI.Methods[methodMetaverseByIndex].Outputs.Pack(
		[]metaverseSound{{TokenId: big.NewInt(1)}},
		[]metaverseInfo{{PunkId: big.NewInt(1), Level: big.NewInt(0), BaseScore: big.NewInt(0), WanderScore: big.NewInt(0), OutlawScore: big.NewInt(0), TotalScore: huge}},
		[]*big.Int{big.NewInt(0)},
	)
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{
		string(aggABI.Methods[methodMetaverseByIndex].ID): out,
	}}
	r, err := NewReader(caller, testAddresses())
	require.NoError(t, err)

	_, err = r.FetchMetaverseRange(context.Background(), 1, 30)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
}

func TestReader_FetchMarketPage(t *testing.T) {
	utilABI := mustABI(t, MarketUtilABI)
	seller := common.HexToAddress("0x0000000000000000000000000000000000000def")

	out, err := utilABI.Methods[methodTokensOfMarketByPage].Outputs.Pack([]marketToken{
		{Id: big.NewInt(7), IsForSale: true, Seller: seller, MinValue: big.NewInt(50), MinLawValue: big.NewInt(0), BidLawValue: big.NewInt(0), BidBchValue: big.NewInt(0)},
		{Id: big.NewInt(8), IsForSale: true, Seller: seller, MinValue: big.NewInt(0), MinLawValue: big.NewInt(200), BidLawValue: big.NewInt(0), BidBchValue: big.NewInt(0)},
	})
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{
		string(utilABI.Methods[methodTokensOfMarketByPage].ID): out,
	}}
	r, err := NewReader(caller, testAddresses())
	require.NoError(t, err)

	listings, err := r.FetchMarketPage(context.Background(), 2, 100)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, uint64(7), listings[0].TokenID)
	assert.Equal(t, big.NewInt(50), listings[0].MinValue)
	assert.Equal(t, seller.Hex(), listings[0].Seller)
	assert.Equal(t, big.NewInt(200), listings[1].MinLawValue)

	args, err := utilABI.Methods[methodTokensOfMarketByPage].Inputs.Unpack(caller.calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, testAddresses().Dex, args[0])
	assert.Equal(t, testAddresses().Punk, args[1])
	assert.Equal(t, big.NewInt(2), args[2])
	assert.Equal(t, big.NewInt(100), args[3])
}

func TestReader_FetchTokenBalanceAndSupply(t *testing.T) {
	punkABI := mustABI(t, PunkABI)
	stakeABI := mustABI(t, StakeABI)

	balance, err := punkABI.Methods[methodBalanceOf].Outputs.Pack(big.NewInt(250))
	require.NoError(t, err)
	supply, err := stakeABI.Methods[methodTotalSupply].Outputs.Pack(big.NewInt(1000000000000))
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{
		string(punkABI.Methods[methodBalanceOf].ID):   balance,
		string(stakeABI.Methods[methodTotalSupply].ID): supply,
	}}
	r, err := NewReader(caller, testAddresses())
	require.NoError(t, err)

	got, err := r.FetchTokenBalance(context.Background(), testAddresses().Dex)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Int64())
	assert.Equal(t, testAddresses().Punk, *caller.calls[0].To)

	staked, err := r.FetchStakedTotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000000000000), staked.Int64())
	assert.Equal(t, testAddresses().Stake, *caller.calls[1].To)
}

func TestReader_Errors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		r, err := NewReader(&fakeCaller{err: errors.New("connection refused")}, testAddresses())
		require.NoError(t, err)

		_, err = r.FetchStakedTotalSupply(context.Background())
		assert.True(t, apperrors.Is(err, apperrors.ErrTransport))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("decode", func(t *testing.T) {
		stakeABI := mustABI(t, StakeABI)
		caller := &fakeCaller{responses: map[string][]byte{
			string(stakeABI.Methods[methodTotalSupply].ID): bytes.Repeat([]byte{0x1}, 3),
		}}
		r, err := NewReader(caller, testAddresses())
		require.NoError(t, err)

		_, err = r.FetchStakedTotalSupply(context.Background())
		assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
	})
}
