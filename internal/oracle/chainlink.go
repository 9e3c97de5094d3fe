package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"oraclepool/internal/chain"
)

const aggregatorABIJSON = `[
  {"inputs": [], "name": "latestRoundData", "outputs": [
    {"internalType": "uint80", "name": "roundId", "type": "uint80"},
    {"internalType": "int256", "name": "answer", "type": "int256"},
    {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
    {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
    {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
  ], "stateMutability": "view", "type": "function"}
]`

var (
	aggregatorABI    abi.ABI
	aggregatorOnce   sync.Once
	aggregatorABIErr error
)

func getAggregatorABI() (abi.ABI, error) {
	aggregatorOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// ChainlinkFeed reads prices from a Chainlink-style aggregator contract.
type ChainlinkFeed struct {
	client  *chain.Client
	address common.Address
}

// NewChainlinkFeed creates a feed calling latestRoundData on address.
func NewChainlinkFeed(client *chain.Client, address common.Address) *ChainlinkFeed {
	return &ChainlinkFeed{client: client, address: address}
}

// LatestQuote calls latestRoundData and returns the answer and update time.
func (f *ChainlinkFeed) LatestQuote(ctx context.Context) (Quote, error) {
	if f.client == nil {
		return Quote{}, fmt.Errorf("chain client is nil")
	}

	aggABI, err := getAggregatorABI()
	if err != nil {
		return Quote{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	data, err := aggABI.Pack("latestRoundData")
	if err != nil {
		return Quote{}, fmt.Errorf("pack latestRoundData: %w", err)
	}

	msg := ethereum.CallMsg{To: &f.address, Data: data}
	resp, err := f.client.CallContract(ctx, msg, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("call latestRoundData: %w", err)
	}

	values, err := aggABI.Unpack("latestRoundData", resp)
	if err != nil {
		return Quote{}, fmt.Errorf("unpack latestRoundData: %w", err)
	}
	if len(values) != 5 {
		return Quote{}, fmt.Errorf("latestRoundData return size %d", len(values))
	}

	answer, ok := values[1].(*big.Int)
	if !ok {
		return Quote{}, fmt.Errorf("answer unexpected type %T", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return Quote{}, fmt.Errorf("updatedAt unexpected type %T", values[3])
	}

	return Quote{
		Answer:    answer,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0).UTC(),
	}, nil
}
