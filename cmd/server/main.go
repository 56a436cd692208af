package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/CharlotteMargare/savewater/internal/auth"
	cfgpkg "github.com/CharlotteMargare/savewater/internal/config"
	"github.com/CharlotteMargare/savewater/internal/contracts"
	"github.com/CharlotteMargare/savewater/internal/fhevm"
	"github.com/CharlotteMargare/savewater/internal/savewater"
	"github.com/CharlotteMargare/savewater/internal/server"
	"github.com/CharlotteMargare/savewater/internal/store"
	"github.com/CharlotteMargare/savewater/internal/watcher"
)

func main() {
	cfg := cfgpkg.Load()

	db := store.OpenSQLite(cfg.Database.SQLiteDSN)
	store.AutoMigrate(db)
	repo := store.NewRepository(db)

	ethClient, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect chain rpc: %v", err)
	}
	chainID, err := ethClient.ChainID(context.Background())
	if err != nil {
		log.Fatalf("failed to get chain id: %v", err)
	}
	if cfg.Chain.ChainID != 0 && cfg.Chain.ChainID != chainID.Uint64() {
		log.Fatalf("configured chain id %d does not match rpc chain id %d", cfg.Chain.ChainID, chainID.Uint64())
	}
	netctx := contracts.NetworkContext{ChainID: chainID.Uint64(), RPCURL: cfg.Chain.RPCURL}

	signer, err := savewater.NewKeySigner(cfg.Wallet.PrivateKey, chainID, ethClient)
	if err != nil {
		log.Fatalf("failed to load wallet key: %v", err)
	}

	provider := fhevm.NewProvider(cfg.Fhevm, cfg.Chain.MockChains, log.New(log.Writer(), "fhevm: ", log.LstdFlags))
	svc := savewater.NewService(cfg.Chain, netctx, ethClient, ethClient, provider, signer,
		log.New(log.Writer(), "savewater: ", log.LstdFlags))

	authSvc := auth.NewService(cfg.Auth, signer.Address())
	eventHub := server.NewEventHub(log.New(log.Writer(), "events: ", log.LstdFlags))

	var saveWatcher *watcher.Watcher
	if addr, err := contracts.Resolve(contracts.NameSaveWater, netctx, cfg.Chain.SaveWaterAddress); err == nil {
		saveWatcher = watcher.New(watcher.Config{
			ChainID:  chainID.Uint64(),
			Contract: addr,
		}, repo, ethClient, eventHub, log.New(log.Writer(), "watcher: ", log.LstdFlags))
	} else {
		log.Printf("watcher disabled: %v", err)
	}

	r := server.NewRouter(cfg, netctx, authSvc, svc, repo, eventHub)
	srv := server.NewHTTP(cfg.Server.HTTPAddr, r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go eventHub.Run(ctx)
	if saveWatcher != nil {
		go func() {
			if err := saveWatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("watcher stopped: %v", err)
			}
		}()
	}
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdown)
}
