package translate

import (
	"context"
)

// stubLLM is a test double for LLMClient.
type stubLLM struct {
	chatResp string
	chatErr  error
	pingErr  error

	calls    int
	messages []Message
}

func (s *stubLLM) Chat(_ context.Context, msgs []Message) (string, error) {
	s.calls++
	s.messages = msgs
	return s.chatResp, s.chatErr
}

func (s *stubLLM) Ping(context.Context) error {
	return s.pingErr
}
