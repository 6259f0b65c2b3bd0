package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ENiaC-Space/stake7/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrNoEndpoints is returned when no configured RPC URL is usable.
	ErrNoEndpoints = errors.New("no usable RPC endpoint")
	// ErrWrongChain is returned when an endpoint serves a different chain id.
	ErrWrongChain = errors.New("endpoint is on the wrong chain")
)

// Backend is what the reader needs from a node: contract calls and the head block.
type Backend interface {
	bind.ContractCaller
	BlockNumber(ctx context.Context) (uint64, error)
}

// Dial connects to the first URL that answers with the expected chain id.
// The first URL is primary; others are fallbacks.
func Dial(ctx context.Context, urls []string, chainID int64) (*ethclient.Client, string, error) {
	log := logging.Component("chain")
	if len(urls) == 0 {
		return nil, "", ErrNoEndpoints
	}

	var lastErr error
	for _, url := range urls {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			lastErr = fmt.Errorf("dial %s: %w", url, err)
			log.Warn().Err(err).Str("url", url).Msg("dial failed")
			continue
		}
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			lastErr = fmt.Errorf("chain id from %s: %w", url, err)
			log.Warn().Err(err).Str("url", url).Msg("endpoint not answering")
			continue
		}
		if id.Int64() != chainID {
			client.Close()
			lastErr = fmt.Errorf("%w: %s serves %s, want %d", ErrWrongChain, url, id, chainID)
			log.Warn().Str("url", url).Int64("chain_id", id.Int64()).Msg("wrong chain")
			continue
		}
		log.Info().Str("url", url).Int64("chain_id", chainID).Msg("connected")
		return client, url, nil
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoEndpoints, lastErr)
}
