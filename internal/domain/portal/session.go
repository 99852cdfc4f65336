package portal

import "context"

// BatchCommand is one keyed method invocation inside a batch
type BatchCommand struct {
	Key    string
	Method string
	Params Params
}

// BatchRequest is an ordered set of keyed invocations.
// The declared order is the order callers use to reassemble results.
type BatchRequest []BatchCommand

// Add appends a command and returns the request for chaining
func (b BatchRequest) Add(key, method string, params Params) BatchRequest {
	return append(b, BatchCommand{Key: key, Method: method, Params: params})
}

// Keys returns the command keys in declared order
func (b BatchRequest) Keys() []string {
	keys := make([]string, 0, len(b))
	for _, cmd := range b {
		keys = append(keys, cmd.Key)
	}
	return keys
}

// BatchResult maps each command key to its outcome. It carries no ordering.
type BatchResult map[string]*Response

// Session is the port for invoking portal REST methods.
//
// CallMethod returns an error only for transport failures; application errors
// reported by the portal are delivered in Response.Error.
type Session interface {
	CallMethod(ctx context.Context, method string, params Params) (*Response, error)
	CallBatch(ctx context.Context, req BatchRequest, haltOnError bool) (BatchResult, error)
	Auth() Auth
}
