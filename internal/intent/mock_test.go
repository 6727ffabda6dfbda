package intent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/prospect-cli/internal/llm"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Name() string { return "mock" }

func (m *mockGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Result), args.Error(1)
}

// blockingGenerator waits for the context to expire.
type blockingGenerator struct{}

func (blockingGenerator) Name() string { return "blocking" }

func (blockingGenerator) Generate(ctx context.Context, _ llm.Request) (*llm.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
