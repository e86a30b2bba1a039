// Server = kaspa-side components + sqlite bookkeeping + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kaspanet/kaspad/domain/dagconfig"
	logger "github.com/sirupsen/logrus"

	"github.com/Nacho-the-Kat/krc721-airdrop/batch"
	"github.com/Nacho-the-Kat/krc721-airdrop/common"
	"github.com/Nacho-the-Kat/krc721-airdrop/inputfile"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/assembler"
	kasrpc "github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
	"github.com/Nacho-the-Kat/krc721-airdrop/kastxmanager"
	"github.com/Nacho-the-Kat/krc721-airdrop/transferdb"
	"github.com/Nacho-the-Kat/krc721-airdrop/webstatus"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type AirdropServerConfig struct {
	// kaspa side
	KasRpcServer    string            // kaspad grpc server, e.g. localhost:16110
	KasRestApiUrl   string            // REST api base url (transaction counts)
	KasChainConfig  *dagconfig.Params // mainnet or testnet-10
	TreasuryPrivKey string            // treasury schnorr private key (hex), who funds the transfers
	TreasuryAddr    string            // treasury address, cross-checked against the key

	// bookkeeping side
	DbFilePath string // db file path

	// input side
	InputFilePath string // CSV or JSON recipient list

	// fee, e.g. "0.0001" (KAS); empty selects the default
	PriorityFeeKas string

	// confirmation tuning; empty string keeps the default
	CommitTimeoutSec string // eg. 180
	RevealTimeoutSec string // eg. 180
	PollIntervalSec  string // eg. 60
	PollMaxAttempts  string // eg. 30

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// AirdropServer holds the objects that consists of the airdrop server.
type AirdropServer struct {
	KasRpcClient *kasrpc.KaspadClient
	// generated objects
	MyAssembler  *assembler.Assembler
	MyTransferDb *transferdb.SQLiteTransferStorage
	MyPaymentDb  *transferdb.SQLitePaymentStorage
	MyBalanceDb  *transferdb.SQLiteBalanceStorage
	MyTxMgr      *kastxmanager.TransferManager
	MyRunner     *batch.Runner
}

// parseSeconds converts a whole-second string into a duration.
// An empty string means "not configured".
func parseSeconds(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		logger.Fatalf("invalid duration in seconds: %q", value)
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// NewAirdropServer creates a new airdrop server.
func NewAirdropServer(asc *AirdropServerConfig) (*AirdropServer, error) {
	// 0) connect to the kaspa network
	myKasRpcClient, err := SetupKaspaRpc(asc.KasRpcServer, asc.KasRestApiUrl)
	if err != nil {
		logger.Fatalf("cannot connect to kaspa rpc server %s, %v", asc.KasRpcServer, err)
		return nil, err
	}

	// 1) Create the treasury signer
	myAssembler, err := assembler.NewAssembler(asc.TreasuryPrivKey, asc.KasChainConfig)
	if err != nil {
		logger.Fatalf("cannot create treasury signer from private key: %v", err)
		return nil, err
	}
	if asc.TreasuryAddr != "" && myAssembler.Address.EncodeAddress() != asc.TreasuryAddr {
		logger.Fatalf("treasury address mismatch: %s != %s", myAssembler.Address.EncodeAddress(), asc.TreasuryAddr)
	}

	// 2) Create the bookkeeping storages
	transferStorage, err := transferdb.NewSQLiteTransferStorage(asc.DbFilePath)
	if err != nil {
		logger.Fatalf("cannot create transfer storage %v", err)
		return nil, err
	}
	paymentStorage, err := transferdb.NewSQLitePaymentStorage(asc.DbFilePath)
	if err != nil {
		logger.Fatalf("cannot create payment storage %v", err)
		return nil, err
	}
	balanceStorage, err := transferdb.NewSQLiteBalanceStorage(asc.DbFilePath)
	if err != nil {
		logger.Fatalf("cannot create balance storage %v", err)
		return nil, err
	}

	// 3) Create the <transfer manager>
	managerConfig := kastxmanager.DefaultConfig()
	if asc.PriorityFeeKas != "" {
		fee, err := common.KaspaToSompi(asc.PriorityFeeKas)
		if err != nil {
			logger.Fatalf("invalid priority fee %q: %v", asc.PriorityFeeKas, err)
			return nil, err
		}
		managerConfig.PriorityFee = fee
	}
	if d, ok := parseSeconds(asc.CommitTimeoutSec); ok {
		managerConfig.CommitTimeout = d
	}
	if d, ok := parseSeconds(asc.RevealTimeoutSec); ok {
		managerConfig.RevealTimeout = d
	}
	if d, ok := parseSeconds(asc.PollIntervalSec); ok {
		managerConfig.PollInterval = d
	}
	if asc.PollMaxAttempts != "" {
		attempts, err := strconv.Atoi(asc.PollMaxAttempts)
		if err != nil {
			logger.Fatalf("invalid poll max attempts %q: %v", asc.PollMaxAttempts, err)
			return nil, err
		}
		managerConfig.PollMaxAttempts = attempts
	}
	myTxMgr := kastxmanager.NewTransferManager(
		myKasRpcClient,
		myAssembler,
		asc.KasChainConfig,
		transferStorage,
		paymentStorage,
		balanceStorage,
		managerConfig,
	)

	// 4) Create the <batch runner> over the manager
	myRunner := batch.NewRunner(myTxMgr, 0)

	// *** Setup a http server to report status ***
	http_server := webstatus.NewHttpReporter(
		asc.HttpIp,
		asc.HttpPort,
		myRunner,
		transferStorage,
	)
	// Turn on the http server
	go http_server.Run()

	// Give it some time to start the http server
	time.Sleep(1 * time.Second)
	// *** End the setup of http server ***

	return &AirdropServer{
		KasRpcClient: myKasRpcClient,
		MyAssembler:  myAssembler,
		MyTransferDb: transferStorage,
		MyPaymentDb:  paymentStorage,
		MyBalanceDb:  balanceStorage,
		MyTxMgr:      myTxMgr,
		MyRunner:     myRunner,
	}, nil
}

// Create, then start the airdrop server and wait for the batch to finish.
// Press Ctrl-C to kill the server early.
func StartAirdropServerAndWait(asc *AirdropServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // defense programing

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt, shutting down")
		cancel()
	}()

	server, err := NewAirdropServer(asc)
	if err != nil {
		logger.Fatalf("cannot create airdrop server: %v", err)
		return
	}
	defer server.KasRpcClient.Close()

	transfers, err := inputfile.ProcessInputFile(asc.InputFilePath, asc.KasChainConfig.Prefix.String())
	if err != nil {
		logger.Fatalf("cannot process input file %s: %v", asc.InputFilePath, err)
		return
	}
	logger.Infof("Found %d NFTs to transfer", len(transfers))

	if err := server.MyRunner.Run(ctx, transfers); err != nil {
		logger.Errorf("airdrop interrupted: %v", err)
		return
	}

	progress := server.MyRunner.Snapshot()
	logger.WithFields(logger.Fields{
		"completed": progress.Completed,
		"failed":    progress.Failed,
	}).Info("NFT airdrop completed")
}
