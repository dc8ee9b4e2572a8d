package triage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
)

// fakeOracle scripts oracle responses for tests. The classify hook
// receives the rendered prompt and fills out however the test wants.
type fakeOracle struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	classify func(prompt string, out interface{}) error
}

func (f *fakeOracle) Classify(ctx context.Context, prompt string, out interface{}) error {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	fn := f.classify
	f.mu.Unlock()

	if fn == nil {
		return stderrors.New("no responder configured")
	}
	return fn(prompt, out)
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeOracle) allPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// respond marshals v through JSON into out, mimicking a well-shaped
// oracle reply.
func respond(out interface{}, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
