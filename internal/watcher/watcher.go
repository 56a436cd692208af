// Package watcher follows the ledger's WaterSaved events so the local
// submission log also covers check-ins sent from outside this service.
package watcher

import (
	"context"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/CharlotteMargare/savewater/internal/store"
)

type EthClient interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Publisher receives each newly observed check-in; the websocket hub
// implements it.
type Publisher interface {
	PublishCheckIn(sub *store.CheckInSubmission)
}

type Config struct {
	ChainID      uint64
	Contract     common.Address
	StartBlock   uint64
	ChunkSize    uint64
	PollInterval time.Duration
}

func (c Config) chunkSize() uint64 {
	if c.ChunkSize == 0 {
		return 2_000
	}
	return c.ChunkSize
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return 15 * time.Second
	}
	return c.PollInterval
}

const waterSavedABI = `[
	{"type":"event","name":"WaterSaved","inputs":[{"name":"user","type":"address","indexed":true},{"name":"timestamp","type":"uint256","indexed":false},{"name":"amountClearOptional","type":"uint256","indexed":false}]}
]`

var waterSavedEvent = func() abi.Event {
	parsed, err := abi.JSON(strings.NewReader(waterSavedABI))
	if err != nil {
		panic(err)
	}
	return parsed.Events["WaterSaved"]
}()

type Watcher struct {
	cfg    Config
	repo   *store.Repository
	client EthClient
	hub    Publisher
	logger *log.Logger
}

func New(cfg Config, repo *store.Repository, client EthClient, hub Publisher, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{cfg: cfg, repo: repo, client: client, hub: hub, logger: logger}
}

func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Printf("watcher starting: chain=%d contract=%s", w.cfg.ChainID, w.cfg.Contract.Hex())
	ticker := time.NewTicker(w.cfg.pollInterval())
	defer ticker.Stop()
	for {
		if err := w.poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Printf("poll: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	head, err := w.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return err
	}
	headNum := head.Number.Uint64()

	from := w.cfg.StartBlock
	cursor, err := w.repo.GetWatcherCursor(ctx, w.cfg.ChainID, w.cfg.Contract.Hex())
	if err == nil && cursor.LastBlock >= from {
		from = cursor.LastBlock + 1
	}
	if from > headNum {
		return nil
	}

	for from <= headNum {
		to := from + w.cfg.chunkSize() - 1
		if to > headNum {
			to = headNum
		}
		logs, err := w.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{w.cfg.Contract},
			Topics:    [][]common.Hash{{waterSavedEvent.ID}},
		})
		if err != nil {
			return err
		}
		for _, lg := range logs {
			if err := w.handleLog(ctx, lg); err != nil {
				w.logger.Printf("handle log block=%d tx=%s: %v", lg.BlockNumber, lg.TxHash.Hex(), err)
			}
		}
		if err := w.repo.SaveWatcherCursor(ctx, &store.WatcherCursor{
			ChainID:   w.cfg.ChainID,
			Address:   w.cfg.Contract.Hex(),
			LastBlock: to,
		}); err != nil {
			return err
		}
		from = to + 1
	}
	return nil
}

func (w *Watcher) handleLog(ctx context.Context, lg types.Log) error {
	if len(lg.Topics) < 2 {
		return nil
	}
	values, err := waterSavedEvent.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return err
	}
	timestamp := values[0].(*big.Int)
	sub := &store.CheckInSubmission{
		SubmissionID: uuid.NewString(),
		ChainID:      w.cfg.ChainID,
		Sender:       common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
		TxHash:       lg.TxHash.Hex(),
		LogIndex:     lg.Index,
		BlockNumber:  lg.BlockNumber,
		BlockTime:    time.Unix(timestamp.Int64(), 0),
	}
	if err := w.repo.UpsertSubmission(ctx, sub); err != nil {
		return err
	}
	if w.hub != nil {
		w.hub.PublishCheckIn(sub)
	}
	return nil
}
