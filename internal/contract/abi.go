// Package contract provides read-only bindings for the LawPunks contracts.
package contract

// AggregatorABI metaverseByIndex 聚合查询合约
const AggregatorABI = `[
	{
		"type": "function",
		"name": "metaverseByIndex",
		"stateMutability": "view",
		"inputs": [
			{"name": "_market", "type": "address"},
			{"name": "_level", "type": "address"},
			{"name": "_punkStart", "type": "uint256"},
			{"name": "_punkEnd", "type": "uint256"}
		],
		"outputs": [
			{
				"name": "sounds",
				"type": "tuple[]",
				"components": [
					{"name": "tokenId", "type": "uint256"},
					{"name": "owner", "type": "address"},
					{"name": "ownerSlogan", "type": "string"},
					{"name": "punkSlogan", "type": "string"}
				]
			},
			{
				"name": "infos",
				"type": "tuple[]",
				"components": [
					{"name": "punkId", "type": "uint256"},
					{"name": "level", "type": "uint256"},
					{"name": "baseScore", "type": "uint256"},
					{"name": "wanderScore", "type": "uint256"},
					{"name": "outlawScore", "type": "uint256"},
					{"name": "totalScore", "type": "uint256"}
				]
			},
			{"name": "lockTimes", "type": "uint256[]"}
		]
	}
]`

// MarketUtilABI tokensOfMarketByPage 市场分页查询合约
const MarketUtilABI = `[
	{
		"type": "function",
		"name": "tokensOfMarketByPage",
		"stateMutability": "view",
		"inputs": [
			{"name": "_market", "type": "address"},
			{"name": "_lawpunks", "type": "address"},
			{"name": "_pageNo", "type": "uint256"},
			{"name": "_pageSize", "type": "uint256"}
		],
		"outputs": [
			{
				"name": "rets",
				"type": "tuple[]",
				"components": [
					{"name": "id", "type": "uint256"},
					{"name": "isForSale", "type": "bool"},
					{"name": "seller", "type": "address"},
					{"name": "minValue", "type": "uint256"},
					{"name": "minLawValue", "type": "uint256"},
					{"name": "bidLawValue", "type": "uint256"},
					{"name": "bidder", "type": "address"},
					{"name": "onlySellTo", "type": "address"},
					{"name": "bidBchValue", "type": "uint256"},
					{"name": "bchBidder", "type": "address"}
				]
			}
		]
	}
]`

// PunkABI LawPunks ERC721 (仅 balanceOf)
const PunkABI = `[
	{
		"type": "function",
		"name": "balanceOf",
		"stateMutability": "view",
		"inputs": [{"name": "_owner", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

// StakeABI 质押合约 (仅 totalSupply)
const StakeABI = `[
	{
		"type": "function",
		"name": "totalSupply",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

const (
	methodMetaverseByIndex     = "metaverseByIndex"
	methodTokensOfMarketByPage = "tokensOfMarketByPage"
	methodBalanceOf            = "balanceOf"
	methodTotalSupply          = "totalSupply"
)
