package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
)

var errNotConnected = errors.New("http transport not connected")

// httpClientTransport POSTs every request to <endpoint>/<shardId>, endpoints are used in round robin order
type httpClientTransport struct {
	endpoints []string
	client    *http.Client
	next      atomic.Uint32
	attempts  int
}

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	endpoints := make([]string, 0, len(config.Transport.Endpoints))
	for _, endpoint := range config.Transport.Endpoints {
		endpoint, err := normalizeEndpoint(endpoint)
		if err != nil {
			return err
		}
		endpoints = append(endpoints, endpoint)
	}

	t.endpoints = endpoints
	t.attempts = max(1, config.Transport.RetryCount)
	t.client = &http.Client{
		Timeout: time.Duration(config.TimeoutSecond) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: max(10, config.Transport.ConnectionsPerEndpoint),
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return nil
}

func (t *httpClientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	if t.client == nil {
		return nil, errNotConnected
	}

	endpoint := t.endpoints[t.next.Add(1)%uint32(len(t.endpoints))]
	target := endpoint + "/" + strconv.FormatUint(shardId, 10)

	var err error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		var resp []byte
		if resp, err = t.post(target, req); err == nil {
			return resp, nil
		}
		Logger.Debugf("Request attempt %d/%d failed: %v", attempt, t.attempts, err)
	}
	return nil, err
}

func (t *httpClientTransport) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	t.client = nil
	t.endpoints = nil
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// post sends one request, the body reader is created per call so it can be retried
func (t *httpClientTransport) post(target string, req []byte) ([]byte, error) {
	resp, err := t.client.Post(target, "application/octet-stream", bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http error: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}

// normalizeEndpoint adds the http scheme when it is missing and strips a trailing slash
func normalizeEndpoint(endpoint string) (string, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "", fmt.Errorf("unsupported scheme in endpoint %q", endpoint)
	}
	return strings.TrimRight(endpoint, "/"), nil
}
