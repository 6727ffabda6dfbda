package search

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Search(ctx context.Context, req Request) (*Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Response), args.Error(1)
}

func okResponse(results ...Result) *Response {
	for i := range results {
		results[i].Rank = i + 1
	}
	return &Response{OK: true, Provider: "mock", Results: results}
}
