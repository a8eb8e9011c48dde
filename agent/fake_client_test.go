package agent

import (
	"context"
	"sync"
)

// fakeClient is an in-memory gateway double. Responses are consumed in
// order; the last one repeats. When err is set every call fails.
type fakeClient struct {
	mu        sync.Mutex
	calls     int
	responses []map[string]interface{}
	err       error
}

func (f *fakeClient) Complete(_ context.Context, _ string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return map[string]interface{}{}, nil
	}

	response := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return response, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
