// Command chaincored wires the chain core's storage, facade, ingest and
// inventory layers into a runnable daemon. Grounded on the shape of the
// teacher's kaspad.go entry point (config load, logger init, storage
// open, component wiring, signal-driven shutdown) with the peer-to-peer
// and RPC layers — out of this core's scope — left as logged stubs
// marking where an external collaborator would attach.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerforge/chaincore/blockchain"
	"github.com/ledgerforge/chaincore/blockstore"
	"github.com/ledgerforge/chaincore/chainstate/blockorphanage"
	"github.com/ledgerforge/chaincore/chainstate/ingest"
	"github.com/ledgerforge/chaincore/chainstate/inventory"
	"github.com/ledgerforge/chaincore/chainstate/txorphanage"
	"github.com/ledgerforge/chaincore/config"
	"github.com/ledgerforge/chaincore/database"
	"github.com/ledgerforge/chaincore/database/leveldbstore"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.CORE)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		log.Criticalf("chaincored exiting on error: %+v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	defer panics.HandlePanic(log, nil)

	log.Infof("Opening database at %s", cfg.DataDir)
	db, err := openDatabase(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	storage := blockstore.New(db)

	blockOrphans := blockorphanage.NewWithLimits(cfg.MaxOrphanBlocks, time.Hour)
	txOrphans := txorphanage.NewWithLimit(cfg.MaxOrphanTxs)

	chain := blockchain.New(storage, blockOrphans, txOrphans)

	if err := ensureGenesis(chain, cfg); err != nil {
		return err
	}

	blockProcessor := ingest.NewBlockProcessor(storage, chain, blockOrphans)
	txProcessor := ingest.NewTransactionProcessor(storage, chain, txOrphans)
	inventoryProcessor := inventory.New(storage, blockOrphans, txOrphans)

	// blockProcessor, txProcessor and inventoryProcessor are the
	// complete external surface spec.md §4.8 hands to a peer-to-peer
	// layer (AcceptBlock / AddTransactionToPool / AlreadyHas[Batch]).
	// Wiring an actual network/RPC stack on top of them is outside this
	// core's scope; referencing them here keeps the daemon's dependency
	// graph honest about what a collaborator would call.
	_ = blockProcessor
	_ = txProcessor
	_ = inventoryProcessor

	bestHash, found, err := chain.GetBestBlockHash()
	if err != nil {
		return err
	}
	if found {
		height, _, err := chain.GetBestBlockHeight()
		if err != nil {
			return err
		}
		log.Infof("Chain core ready at best block %s (height %d)", bestHash, height)
	}

	log.Infof("chaincored started on network %q; no peer-to-peer or RPC server is wired in this build", cfg.Params.Name)

	return waitForShutdown()
}

func openDatabase(dataDir string) (database.Database, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return leveldbstore.Open(dataDir)
}

// ensureGenesis puts cfg.Params.GenesisBlock if no best block is
// recorded yet, so a freshly created database always starts from a
// valid chain rather than an empty one no block can ever extend.
func ensureGenesis(chain *blockchain.Blockchain, cfg *config.Config) error {
	if _, found, err := chain.GetBestBlockHash(); err != nil {
		return err
	} else if found {
		return nil
	}

	log.Infof("Initializing %s genesis block %s", cfg.Params.Name, cfg.Params.GenesisHash)
	_, err := chain.PutBlock(cfg.Params.GenesisHash, cfg.Params.GenesisBlock)
	return err
}

func waitForShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	log.Infof("Received shutdown signal")
	return nil
}
