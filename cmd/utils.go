package cmd

import (
	"os"

	logger "github.com/sirupsen/logrus"

	kasrpc "github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
)

// FileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

// Shared Helper function. Create a kaspa rpc client.
func SetupKaspaRpc(server string, restBaseURL string) (*kasrpc.KaspadClient, error) {
	_config := kasrpc.KaspadClientConfig{
		RPCServer:   server,
		RESTBaseURL: restBaseURL,
	}
	r, err := kasrpc.NewKaspadClient(&_config)
	if err != nil {
		logger.Fatalf("failed to create kaspa rpc client: %v", err)
		return nil, err
	}
	return r, nil
}
