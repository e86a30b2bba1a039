// This is a http type of status reporter.
// It fetches data from the batch runner and the transfer db
// and publishes them on the http routes.

package webstatus

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nacho-the-Kat/krc721-airdrop/batch"
	"github.com/Nacho-the-Kat/krc721-airdrop/transferdb"
)

const (
	ROUTE_HELLO    = "/hello"
	ROUTE_PROGRESS = "/progress"
	ROUTE_TRANSFER = "/transfer"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data sources
	runner     *batch.Runner
	transferdb transferdb.TransferStorage // this is an interface
}

func NewHttpReporter(serverIP string, serverPort string, runner *batch.Runner, transfers transferdb.TransferStorage) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		runner:     runner,
		transferdb: transfers,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_PROGRESS, h.Progress)
	router.GET(ROUTE_TRANSFER, h.Transfer)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Publish the batch progress snapshot.
func (h *HttpReporter) Progress(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No batch run configured"})
		return
	}
	c.JSON(http.StatusOK, h.runner.Snapshot())
}

// Fetch recorded transfers, by destination address or P2SH address.
func (h *HttpReporter) Transfer(c *gin.Context) {
	address := c.Query("address")
	p2sh := c.Query("p2sh")

	if address == "" && p2sh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address or p2sh must be provided"})
		return
	}

	var transfers []transferdb.PendingTransfer
	var err error
	if p2sh != "" {
		transfers, err = h.transferdb.QueryByP2SH(p2sh)
	} else {
		transfers, err = h.transferdb.QueryByAddress(address)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(transfers) > 0 {
		c.JSON(http.StatusOK, gin.H{"data": transfers})
	} else {
		c.JSON(http.StatusNotFound, gin.H{"error": "No transfer found"})
	}
}
