// Package localtransport provides an in-process transport,
// where each call to HandleMessage returns the correlated response.
package localtransport

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/metoro-io/mcp-golang/transport"
)

// Transport is a stateless in-process transport
type Transport struct {
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	mu             sync.RWMutex
	responseMap    map[int64]chan *transport.BaseJsonRpcMessage
	atomicCounter  int64
}

// New returns a new Transport
func New() *Transport {
	return &Transport{
		responseMap: make(map[int64]chan *transport.BaseJsonRpcMessage),
	}
}

// Start implements Transport.Start
func (s *Transport) Start(ctx context.Context) error {
	// Does nothing in the stateless local transport
	return nil
}

// Close implements Transport.Close
func (s *Transport) Close() error {
	s.mu.RLock()
	handler := s.closeHandler
	s.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

// SetErrorHandler implements Transport.SetErrorHandler
func (s *Transport) SetErrorHandler(handler func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorHandler = handler
}

// SetCloseHandler implements Transport.SetCloseHandler
func (s *Transport) SetCloseHandler(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeHandler = handler
}

// SetMessageHandler implements Transport.SetMessageHandler
func (s *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageHandler = handler
}

// Send delivers a response or an error to the pending HandleMessage call.
func (s *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	var key transport.RequestId
	switch message.Type {
	case transport.BaseMessageTypeJSONRPCResponseType:
		key = message.JsonRpcResponse.Id
	case transport.BaseMessageTypeJSONRPCErrorType:
		key = message.JsonRpcError.Id
	default:
		// server initiated messages have no caller to deliver to
		return nil
	}

	s.mu.RLock()
	responseChannel := s.responseMap[int64(key)]
	s.mu.RUnlock()
	if responseChannel == nil {
		return errors.Errorf("no response channel found for key: %d", key)
	}
	responseChannel <- message
	return nil
}

// HandleMessage processes an incoming request or notification.
// For a request, it blocks until the response is sent and returns it
// with the caller's request ID. For a notification, it returns nil.
func (s *Transport) HandleMessage(ctx context.Context, body []byte) (*transport.BaseJsonRpcMessage, error) {
	s.mu.RLock()
	handler := s.messageHandler
	s.mu.RUnlock()
	if handler == nil {
		return nil, errors.New("transport is not connected")
	}

	if !json.Valid(body) {
		return nil, errcode.Parse(errors.New("invalid JSON"), "failed to parse message")
	}

	var request transport.BaseJSONRPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		var notification transport.BaseJSONRPCNotification
		if nerr := json.Unmarshal(body, &notification); nerr != nil {
			return nil, errcode.InvalidRequest(err, "failed to parse message")
		}
		handler(ctx, transport.NewBaseMessageNotification(&notification))
		return nil, nil
	}

	key := atomic.AddInt64(&s.atomicCounter, 1)
	ch := make(chan *transport.BaseJsonRpcMessage, 1)
	s.mu.Lock()
	s.responseMap[key] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.responseMap, key)
		s.mu.Unlock()
	}()

	callerID := request.Id
	request.Id = transport.RequestId(key)
	handler(ctx, transport.NewBaseMessageRequest(&request))

	var response *transport.BaseJsonRpcMessage
	select {
	case response = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch response.Type {
	case transport.BaseMessageTypeJSONRPCResponseType:
		response.JsonRpcResponse.Id = callerID
	case transport.BaseMessageTypeJSONRPCErrorType:
		response.JsonRpcError.Id = callerID
	}
	return response, nil
}
