package node

import (
	"encoding/json"
	"testing"

	"github.com/autonomys/pulsar/internal/node/nodetest"
)

// fakeNode adapts nodetest.Server to the node's own error type.
type fakeNode struct {
	*nodetest.Server
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	return &fakeNode{Server: nodetest.NewServer(t)}
}

func (f *fakeNode) url() string { return f.URL() }

func (f *fakeNode) handle(method string, h func(params []json.RawMessage) (any, *RPCError)) {
	f.Handle(method, func(params []json.RawMessage) (any, *nodetest.Error) {
		res, err := h(params)
		if err != nil {
			return nil, &nodetest.Error{Code: err.Code, Message: err.Message}
		}
		return res, nil
	})
}

func (f *fakeNode) result(method string, v any) { f.Result(method, v) }

func (f *fakeNode) callCount(method string) int { return f.Calls(method) }
