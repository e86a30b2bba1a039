package main

import (
	"fmt"

	"github.com/kaspanet/kaspad/domain/dagconfig"

	"github.com/Nacho-the-Kat/krc721-airdrop/cmd"
	"github.com/Nacho-the-Kat/krc721-airdrop/logconfig"
	"github.com/spf13/viper"
)

const (
	ENV_CONFIG_FILE_PATH = "AIRDROP_CONFIG"
)

func main() {
	// Swap in ConfigDebugLogger() when chasing a transfer problem.
	logconfig.ConfigProductionLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Airdrop server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Airdrop server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	asc := PrepareAirdropServerConfig()
	if asc == nil {
		fmt.Printf("Error loading airdrop server configuration\n")
		return
	}

	fmt.Println("Starting airdrop server... press Ctrl+C to kill the server")
	// Start server and block until the batch finishes.
	cmd.StartAirdropServerAndWait(asc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareAirdropServerConfig reads configuration variables and returns an AirdropServerConfig.
func PrepareAirdropServerConfig() *cmd.AirdropServerConfig {

	// *** prepare objects that aren't string type ***

	// Parse the kaspa chain config ("testnet" or "mainnet").
	var kasParams *dagconfig.Params
	switch viper.GetString("KAS_NETWORK") {
	case "testnet":
		kasParams = &dagconfig.TestnetParams
	case "mainnet":
		kasParams = &dagconfig.MainnetParams
	default:
		// default to mainnet
		kasParams = &dagconfig.MainnetParams
	}

	// *** end of preparing objects ***

	return &cmd.AirdropServerConfig{
		// kaspa side
		KasRpcServer:    viper.GetString("KAS_RPC_SERVER"),
		KasRestApiUrl:   viper.GetString("KAS_REST_API_URL"),
		KasChainConfig:  kasParams,
		TreasuryPrivKey: viper.GetString("TREASURY_PRIVATE_KEY"),
		TreasuryAddr:    viper.GetString("TREASURY_ADDRESS"),
		// bookkeeping side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// input side
		InputFilePath: viper.GetString("INPUT_FILE_PATH"),
		// fee side
		PriorityFeeKas: viper.GetString("PRIORITY_FEE_KAS"),
		// confirmation tuning
		CommitTimeoutSec: viper.GetString("COMMIT_TIMEOUT_SEC"),
		RevealTimeoutSec: viper.GetString("REVEAL_TIMEOUT_SEC"),
		PollIntervalSec:  viper.GetString("POLL_INTERVAL_SEC"),
		PollMaxAttempts:  viper.GetString("POLL_MAX_ATTEMPTS"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
