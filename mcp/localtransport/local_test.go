package localtransport_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/mcp/localtransport"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo replies with the method name, or an error for the "fail" method
func echo(tr *localtransport.Transport, notifications *atomic.Int32) {
	tr.SetMessageHandler(func(ctx context.Context, message *transport.BaseJsonRpcMessage) {
		switch message.Type {
		case transport.BaseMessageTypeJSONRPCNotificationType:
			notifications.Add(1)
		case transport.BaseMessageTypeJSONRPCRequestType:
			req := message.JsonRpcRequest
			go func() {
				if req.Method == "fail" {
					_ = tr.Send(ctx, transport.NewBaseMessageError(&transport.BaseJSONRPCError{
						Jsonrpc: "2.0",
						Id:      req.Id,
						Error:   transport.BaseJSONRPCErrorInner{Code: -32601, Message: "nope"},
					}))
					return
				}
				res, _ := json.Marshal(req.Method)
				_ = tr.Send(ctx, transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
					Jsonrpc: "2.0",
					Id:      req.Id,
					Result:  res,
				}))
			}()
		}
	})
}

func TestHandleMessage(t *testing.T) {
	tr := localtransport.New()
	require.NoError(t, tr.Start(context.Background()))

	_, err := tr.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"x"}`))
	assert.EqualError(t, err, "transport is not connected")

	var notifications atomic.Int32
	echo(tr, &notifications)

	msg, err := tr.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":77,"method":"tools/list"}`))
	require.NoError(t, err)
	require.Equal(t, transport.BaseMessageTypeJSONRPCResponseType, msg.Type)
	assert.EqualValues(t, 77, msg.JsonRpcResponse.Id)
	assert.JSONEq(t, `"tools/list"`, string(msg.JsonRpcResponse.Result))

	msg, err = tr.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":78,"method":"fail"}`))
	require.NoError(t, err)
	require.Equal(t, transport.BaseMessageTypeJSONRPCErrorType, msg.Type)
	assert.EqualValues(t, 78, msg.JsonRpcError.Id)
	assert.Equal(t, -32601, msg.JsonRpcError.Error.Code)

	msg, err = tr.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.EqualValues(t, 1, notifications.Load())

	_, err = tr.HandleMessage(context.Background(), []byte(`not json`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.ErrParse)
	assert.Equal(t, errcode.CodeParseError, errcode.CodeOf(err))

	// valid JSON without a method is neither a request nor a notification
	_, err = tr.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":5}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.ErrInvalidRequest)
	assert.Equal(t, errcode.CodeInvalidRequest, errcode.CodeOf(err))
}

func TestHandleMessage_Concurrent(t *testing.T) {
	tr := localtransport.New()
	var notifications atomic.Int32
	echo(tr, &notifications)

	var wg conc.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Go(func() {
			body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": i, "method": "m"})
			msg, err := tr.HandleMessage(context.Background(), body)
			if assert.NoError(t, err) {
				assert.EqualValues(t, i, msg.JsonRpcResponse.Id)
			}
		})
	}
	wg.Wait()
}

func TestSend_NoCaller(t *testing.T) {
	tr := localtransport.New()
	err := tr.Send(context.Background(), transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
		Jsonrpc: "2.0",
		Id:      12345,
	}))
	assert.EqualError(t, err, "no response channel found for key: 12345")

	// notifications have no caller and are dropped
	err = tr.Send(context.Background(), transport.NewBaseMessageNotification(&transport.BaseJSONRPCNotification{
		Jsonrpc: "2.0",
		Method:  "notifications/message",
	}))
	assert.NoError(t, err)
}

func TestClose(t *testing.T) {
	tr := localtransport.New()
	closed := false
	tr.SetCloseHandler(func() { closed = true })
	tr.SetErrorHandler(func(error) {})
	require.NoError(t, tr.Close())
	assert.True(t, closed)
}
