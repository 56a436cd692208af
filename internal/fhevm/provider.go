package fhevm

import (
	"context"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/CharlotteMargare/savewater/internal/config"
	"github.com/CharlotteMargare/savewater/internal/contracts"
)

// nodeProber is the slice of an RPC node the provider needs while deciding
// between the mock and the relayer path.
type nodeProber interface {
	ChainID(ctx context.Context) (uint64, error)
	ClientVersion(ctx context.Context) (string, error)
	RelayerMetadata(ctx context.Context) (*MockMetadata, error)
	Backend() contracts.Backend
	Close()
}

type instanceKey struct {
	chainID uint64
	rpcURL  string
}

type instanceEntry struct {
	ready chan struct{}
	inst  Instance
	err   error
}

// Provider bootstraps the encryption instance appropriate to a network
// context and memoizes it per context. A changed context produces a fresh
// instance; a stale one bound to the previous chain id is never reused.
type Provider struct {
	cfg        config.FhevmConfig
	mockChains map[uint64]string
	loader     *sdkLoader
	dial       func(url string) (nodeProber, error)
	httpClient *http.Client
	logger     *log.Logger

	mu    sync.Mutex
	cache map[instanceKey]*instanceEntry
}

func NewProvider(cfg config.FhevmConfig, mockChains map[uint64]string, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Default()
	}
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Provider{
		cfg:        cfg,
		mockChains: mockChains,
		loader:     newSDKLoader(cfg.RelayerURL, client),
		dial:       dialProber,
		httpClient: client,
		logger:     logger,
		cache:      make(map[instanceKey]*instanceEntry),
	}
}

// Acquire returns the instance for the given network context, building it
// on first use. Concurrent callers for the same context share one build.
func (p *Provider) Acquire(ctx context.Context, netctx contracts.NetworkContext) (Instance, error) {
	key := instanceKey{chainID: netctx.ChainID, rpcURL: netctx.RPCURL}

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok {
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-entry.ready:
		}
		return entry.inst, entry.err
	}
	entry := &instanceEntry{ready: make(chan struct{})}
	p.cache[key] = entry
	p.mu.Unlock()

	inst, err := p.build(ctx, netctx)
	entry.inst, entry.err = inst, err
	close(entry.ready)

	if err != nil {
		// A failed bootstrap is not cached; the next acquisition retries.
		p.mu.Lock()
		delete(p.cache, key)
		p.mu.Unlock()
		return nil, err
	}
	return inst, nil
}

func (p *Provider) build(ctx context.Context, netctx contracts.NetworkContext) (Instance, error) {
	chainID := netctx.ChainID
	endpoint := netctx.RPCURL
	if endpoint == "" && chainID != 0 {
		endpoint = p.mockChains[chainID]
	}
	if chainID == 0 && endpoint == "" {
		return nil, &BootstrapError{Stage: "resolve chain", Err: errors.New("network context has neither chain id nor rpc endpoint")}
	}

	var prober nodeProber
	keepProber := false
	if endpoint != "" {
		var err error
		prober, err = p.dial(endpoint)
		if err != nil {
			prober = nil
			if chainID == 0 {
				return nil, &BootstrapError{Stage: "dial rpc", Err: err}
			}
		}
	}
	if prober != nil {
		defer func() {
			if !keepProber {
				prober.Close()
			}
		}()
	}

	if chainID == 0 {
		id, err := prober.ChainID(ctx)
		if err != nil {
			return nil, &BootstrapError{Stage: "query chain id", Err: err}
		}
		chainID = id
		if netctx.RPCURL == "" {
			// The endpoint came from nowhere; with the chain id known we
			// can still have a registered mock endpoint.
			endpoint = p.mockChains[chainID]
		}
	}

	// Local development path: a hardhat node exposing relayer metadata gets
	// the mock instance so nothing depends on the external relayer network.
	if prober != nil {
		version, err := prober.ClientVersion(ctx)
		if err == nil && strings.Contains(strings.ToLower(version), "hardhat") {
			meta, err := prober.RelayerMetadata(ctx)
			if err == nil && meta != nil {
				keepProber = true
				p.logf("mock instance: chain=%d endpoint=%s acl=%s", chainID, endpoint, meta.ACLAddress.Hex())
				acl := newChainACL(meta.ACLAddress, prober.Backend())
				return newMockInstance(endpoint, chainID, meta, acl), nil
			}
		}
	}

	// Production path. The key-material load is process-wide and once-only;
	// a failure here is fatal for this acquisition, there is no fallback.
	keys, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	p.logf("relayer instance: chain=%d relayer=%s keyId=%s", chainID, p.cfg.RelayerURL, keys.PublicKeyID)
	return newRelayerInstance(p.cfg, chainID, keys, p.httpClient), nil
}

func (p *Provider) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

type rpcProber struct {
	c *rpc.Client
}

func dialProber(url string) (nodeProber, error) {
	c, err := rpc.Dial(url)
	if err != nil {
		return nil, err
	}
	return &rpcProber{c: c}, nil
}

func (r *rpcProber) ChainID(ctx context.Context) (uint64, error) {
	var res hexutil.Big
	if err := r.c.CallContext(ctx, &res, "eth_chainId"); err != nil {
		return 0, err
	}
	return (*big.Int)(&res).Uint64(), nil
}

func (r *rpcProber) ClientVersion(ctx context.Context) (string, error) {
	var version string
	err := r.c.CallContext(ctx, &version, "web3_clientVersion")
	return version, err
}

func (r *rpcProber) RelayerMetadata(ctx context.Context) (*MockMetadata, error) {
	var meta MockMetadata
	if err := r.c.CallContext(ctx, &meta, "fhevm_relayer_metadata"); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *rpcProber) Backend() contracts.Backend { return ethclient.NewClient(r.c) }

func (r *rpcProber) Close() { r.c.Close() }
