package webstatus

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nacho-the-Kat/krc721-airdrop/transferdb"
)

func newTestReporter(t *testing.T) (*HttpReporter, *transferdb.SQLiteTransferStorage) {
	gin.SetMode(gin.TestMode)
	storage, err := transferdb.NewSQLiteTransferStorage(filepath.Join(t.TempDir(), "transfers.db"))
	require.NoError(t, err)
	return NewHttpReporter("127.0.0.1", "0", nil, storage), storage
}

func TestHelloRoute(t *testing.T) {
	reporter, _ := newTestReporter(t)
	router := reporter.SetupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, ROUTE_HELLO, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"world"}`, w.Body.String())
}

func TestProgressRouteWithoutRunner(t *testing.T) {
	reporter, _ := newTestReporter(t)
	router := reporter.SetupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, ROUTE_PROGRESS, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTransferRoute(t *testing.T) {
	reporter, storage := newTestReporter(t)
	router := reporter.SetupRouter()

	require.NoError(t, storage.InsertPendingTransfer(transferdb.PendingTransfer{
		Address: "kaspa:qqdest", Tick: "NACHO", Amount: "5",
		P2SHAddress: "kaspa:p2sh", CommitTxID: "aa11", CreatedAt: 1,
	}))

	// Missing parameter.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, ROUTE_TRANSFER, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Known address.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, ROUTE_TRANSFER+"?address=kaspa:qqdest", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "NACHO")

	// Known P2SH address.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, ROUTE_TRANSFER+"?p2sh=kaspa:p2sh", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aa11")

	// Unknown address.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, ROUTE_TRANSFER+"?address=kaspa:qqnobody", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
