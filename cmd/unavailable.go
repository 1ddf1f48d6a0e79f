package cmd

import (
	"context"
	"errors"

	"github.com/ziadkadry99/brandchat/internal/llm"
)

// unavailableProvider stands in for the generator in commands that only rank.
type unavailableProvider struct{}

func (unavailableProvider) Name() string { return "unavailable" }

func (unavailableProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("generation is not configured for this command")
}
