// Package httptransport serves the JSON-RPC messages as HTTP POST requests,
// one message per request.
package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/mcp/localtransport"
	"github.com/effective-security/xlog"
	"github.com/metoro-io/mcp-golang/transport"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge/mcp", "httptransport")

// DefaultEndpoint is the path the messages are posted to
const DefaultEndpoint = "/mcp"

// maxBodySize limits the size of a single message
const maxBodySize = 8 << 20

// HTTPTransport implements a stateless HTTP transport for MCP
type HTTPTransport struct {
	*localtransport.Transport

	server   *http.Server
	endpoint string
	addr     string
}

// NewHTTPTransport creates a new HTTP transport that listens on the specified address
func NewHTTPTransport(addr string) *HTTPTransport {
	return &HTTPTransport{
		Transport: localtransport.New(),
		endpoint:  DefaultEndpoint,
		addr:      addr,
	}
}

// WithEndpoint sets the path to serve
func (t *HTTPTransport) WithEndpoint(endpoint string) *HTTPTransport {
	t.endpoint = endpoint
	return t
}

// Handler returns the HTTP handler of the endpoint
func (t *HTTPTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(t.endpoint, t.handleRequest)
	return mux
}

// Start listens on the address and serves the requests in the background
func (t *HTTPTransport) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", t.addr)
	}

	t.server = &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.KV(xlog.INFO, "status", "listening", "addr", ln.Addr().String(), "endpoint", t.endpoint)
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.KV(xlog.ERROR, "addr", t.addr, "err", err.Error())
		}
	}()
	return nil
}

// Close stops the server and closes the transport
func (t *HTTPTransport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.server.Shutdown(ctx); err != nil {
			return errors.Wrap(err, "failed to shutdown server")
		}
	}
	return t.Transport.Close()
}

func (t *HTTPTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is supported", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	response, err := t.HandleMessage(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	if response == nil {
		// notification
		w.WriteHeader(http.StatusAccepted)
		return
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "marshal", "err", err.Error())
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonData)
}

// errorResponse is a JSON-RPC error for a message whose ID could not be read
type errorResponse struct {
	Jsonrpc string                          `json:"jsonrpc"`
	ID      *transport.RequestId            `json:"id"`
	Error   transport.BaseJSONRPCErrorInner `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errcode.CodeOf(err)
	status := http.StatusInternalServerError
	if code == errcode.CodeParseError || code == errcode.CodeInvalidRequest {
		status = http.StatusBadRequest
	}
	logger.KV(xlog.DEBUG, "status", status, "code", code, "err", err.Error())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&errorResponse{
		Jsonrpc: "2.0",
		Error: transport.BaseJSONRPCErrorInner{
			Code:    int(code),
			Message: err.Error(),
		},
	})
}
