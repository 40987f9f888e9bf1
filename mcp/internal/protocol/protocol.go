// Package protocol implements the server side of JSON-RPC 2.0 messaging
// on top of a pluggable transport.
//
// Every request is handled on its own goroutine with a cancellable context,
// the `notifications/cancelled` notification cancels the context of the
// in-flight request with the given ID.
// Handler errors are reported as JSON-RPC errors with the code derived
// from the errcode taxonomy.
package protocol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/xlog"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge/mcp/internal", "protocol")

// RequestHandler handles a request and returns the result to be marshaled,
// or an error.
type RequestHandler func(ctx context.Context, request *transport.BaseJSONRPCRequest) (any, error)

// NotificationHandler handles a one-way message.
type NotificationHandler func(ctx context.Context, notification *transport.BaseJSONRPCNotification) error

// Protocol dispatches the incoming messages to the registered handlers
type Protocol struct {
	transport transport.Transport

	mu sync.RWMutex
	// Maps method name to request handler
	requestHandlers map[string]RequestHandler
	// Maps request ID to cancellation function
	requestCancellers map[transport.RequestId]context.CancelFunc
	// Maps method name to notification handler
	notificationHandlers map[string]NotificationHandler

	inflight conc.WaitGroup

	// OnClose is called when the connection is closed for any reason,
	// after the in-flight requests have returned
	OnClose func()
	// OnError is called when an error occurs out of band
	OnError func(error)
}

// New creates a new Protocol instance
func New() *Protocol {
	p := &Protocol{
		requestHandlers:      make(map[string]RequestHandler),
		requestCancellers:    make(map[transport.RequestId]context.CancelFunc),
		notificationHandlers: make(map[string]NotificationHandler),
	}

	p.SetNotificationHandler("notifications/cancelled", p.handleCancelledNotification)
	p.SetNotificationHandler("notifications/initialized", p.handleInitializedNotification)

	return p
}

// Connect attaches to the given transport, starts it, and starts listening for messages
func (p *Protocol) Connect(ctx context.Context, tr transport.Transport) error {
	p.transport = tr

	tr.SetCloseHandler(p.handleClose)
	tr.SetErrorHandler(p.handleError)
	tr.SetMessageHandler(func(ctx context.Context, message *transport.BaseJsonRpcMessage) {
		switch message.Type {
		case transport.BaseMessageTypeJSONRPCRequestType:
			p.handleRequest(ctx, message.JsonRpcRequest)
		case transport.BaseMessageTypeJSONRPCNotificationType:
			p.handleNotification(ctx, message.JsonRpcNotification)
		default:
			// a server does not issue requests, so responses are unexpected
			logger.KV(xlog.WARNING, "reason", "unexpected_message", "type", message.Type)
		}
	})

	return tr.Start(ctx)
}

// Close cancels the in-flight requests, waits for their handlers to return,
// and closes the transport.
func (p *Protocol) Close() error {
	p.cancelAll()
	p.inflight.Wait()
	if p.transport != nil {
		return p.transport.Close()
	}
	return nil
}

// SetRequestHandler registers a handler to invoke when a request with the given method is received
func (p *Protocol) SetRequestHandler(method string, handler RequestHandler) {
	p.mu.Lock()
	p.requestHandlers[method] = handler
	p.mu.Unlock()
}

// SetNotificationHandler registers a handler to invoke when a notification with the given method is received
func (p *Protocol) SetNotificationHandler(method string, handler NotificationHandler) {
	p.mu.Lock()
	p.notificationHandlers[method] = handler
	p.mu.Unlock()
}

// InFlight returns the number of requests being handled
func (p *Protocol) InFlight() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.requestCancellers)
}

func (p *Protocol) cancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.requestCancellers {
		cancel()
	}
}

// handleClose calls OnClose after the in-flight requests have returned.
func (p *Protocol) handleClose() {
	logger.KV(xlog.DEBUG, "status", "transport_closed", "inflight", p.InFlight())
	go func() {
		p.inflight.Wait()
		if p.OnClose != nil {
			p.OnClose()
		}
	}()
}

func (p *Protocol) handleError(err error) {
	logger.KV(xlog.ERROR, "err", err.Error())
	if p.OnError != nil {
		p.OnError(err)
	}
}

func (p *Protocol) handleNotification(ctx context.Context, notification *transport.BaseJSONRPCNotification) {
	logger.KV(xlog.DEBUG, "method", notification.Method)

	p.mu.RLock()
	handler := p.notificationHandlers[notification.Method]
	p.mu.RUnlock()

	if handler == nil {
		// notifications never produce a response
		return
	}
	if err := handler(ctx, notification); err != nil {
		p.handleError(errors.Wrap(err, "notification handler error"))
	}
}

func (p *Protocol) handleRequest(ctx context.Context, request *transport.BaseJSONRPCRequest) {
	logger.KV(xlog.DEBUG,
		"method", request.Method,
		"id", request.Id,
	)

	p.mu.RLock()
	handler := p.requestHandlers[request.Method]
	p.mu.RUnlock()
	if handler == nil {
		handler = methodNotFound
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.requestCancellers[request.Id] = cancel
	p.mu.Unlock()

	p.inflight.Go(func() {
		defer func() {
			p.mu.Lock()
			delete(p.requestCancellers, request.Id)
			p.mu.Unlock()
			cancel()
		}()

		var result any
		var err error
		var pc panics.Catcher
		pc.Try(func() {
			result, err = handler(ctx, request)
		})
		if r := pc.Recovered(); r != nil {
			err = errcode.Internal(r.AsError(), "request handler panic")
		}

		if err != nil {
			logger.KV(xlog.DEBUG, "method", request.Method, "id", request.Id, "err", err.Error())
			p.sendErrorResponse(ctx, request.Id, err)
			return
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			p.sendErrorResponse(ctx, request.Id, errcode.Internal(err, "failed to marshal result"))
			return
		}
		response := &transport.BaseJSONRPCResponse{
			Jsonrpc: "2.0",
			Id:      request.Id,
			Result:  jsonResult,
		}

		if err := p.transport.Send(context.WithoutCancel(ctx), transport.NewBaseMessageResponse(response)); err != nil {
			p.handleError(errors.Wrap(err, "failed to send response"))
		}
	})
}

func methodNotFound(_ context.Context, request *transport.BaseJSONRPCRequest) (any, error) {
	return nil, errcode.MethodNotFound("Method not found: %s", request.Method)
}

func (p *Protocol) handleInitializedNotification(_ context.Context, notification *transport.BaseJSONRPCNotification) error {
	logger.KV(xlog.DEBUG, "method", notification.Method)
	return nil
}

func (p *Protocol) handleCancelledNotification(_ context.Context, notification *transport.BaseJSONRPCNotification) error {
	var params struct {
		RequestId transport.RequestId `json:"requestId"`
		Reason    string              `json:"reason"`
	}

	if err := json.Unmarshal(notification.Params, &params); err != nil {
		return errors.Wrap(err, "failed to unmarshal cancelled params")
	}

	p.mu.RLock()
	cancel := p.requestCancellers[params.RequestId]
	p.mu.RUnlock()

	if cancel != nil {
		logger.KV(xlog.DEBUG, "status", "cancelled", "id", params.RequestId, "reason", params.Reason)
		cancel()
	}

	return nil
}

func (p *Protocol) sendErrorResponse(ctx context.Context, requestID transport.RequestId, err error) {
	response := &transport.BaseJSONRPCError{
		Jsonrpc: "2.0",
		Id:      requestID,
		Error: transport.BaseJSONRPCErrorInner{
			Code:    int(errcode.CodeOf(err)),
			Message: err.Error(),
		},
	}

	// the request context may be cancelled, the error is still reported
	if err := p.transport.Send(context.WithoutCancel(ctx), transport.NewBaseMessageError(response)); err != nil {
		p.handleError(errors.Wrap(err, "failed to send error response"))
	}
}
