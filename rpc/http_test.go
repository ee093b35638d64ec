package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func postRPC(t *testing.T, server *httptest.Server, method string, params string) (*http.Response, rpcResponse) {
	t.Helper()
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, params)
	resp, err := http.Post(server.URL+"/rpc", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestServerDispatchesMethods(t *testing.T) {
	fx := newModuleFixture(t)
	server := httptest.NewServer(NewServer(fx.module, nil).Router())
	defer server.Close()

	resp, decoded := postRPC(t, server, "market_getStats", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, decoded.Error)
	result, err := json.Marshal(decoded.Result)
	require.NoError(t, err)
	var stats StatsResult
	require.NoError(t, json.Unmarshal(result, &stats))
	require.Zero(t, stats.TotalItems)

	fx.fund(t, aliceHex, 1000)
	params := fmt.Sprintf(`{"caller":%q,"uri":"ipfs://one"}`, aliceHex)
	resp, decoded = postRPC(t, server, "market_createItem", params)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, decoded.Error)
}

func TestServerRejectsUnknownMethod(t *testing.T) {
	fx := newModuleFixture(t)
	server := httptest.NewServer(NewServer(fx.module, nil).Router())
	defer server.Close()

	resp, decoded := postRPC(t, server, "market_noSuchMethod", `{}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, decoded.Error)
	require.Equal(t, -32601, decoded.Error.Code)
}

func TestServerSurfacesModuleErrors(t *testing.T) {
	fx := newModuleFixture(t)
	server := httptest.NewServer(NewServer(fx.module, nil).Router())
	defer server.Close()

	resp, decoded := postRPC(t, server, "market_getItem", `{"itemId":42}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, decoded.Error)
	require.Equal(t, codeInvalidParams, decoded.Error.Code)
}

func TestServerHealthAndMetricsEndpoints(t *testing.T) {
	fx := newModuleFixture(t)
	server := httptest.NewServer(NewServer(fx.module, nil).Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerRejectsMalformedBody(t *testing.T) {
	fx := newModuleFixture(t)
	server := httptest.NewServer(NewServer(fx.module, nil).Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/rpc", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
