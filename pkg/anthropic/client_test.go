package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	req := MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 512,
		Messages:  []Message{{Role: "user", Content: "extract intent"}},
	}
	mc.On("CreateMessage", mock.Anything, req).Return(&MessageResponse{
		ID:      "msg_1",
		Content: []ContentBlock{{Type: "text", Text: `{"offer":{}}`}},
		Usage:   TokenUsage{InputTokens: 40, OutputTokens: 12},
	}, nil)

	resp, err := mc.CreateMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"offer":{}}`, resp.Text())
	assert.Equal(t, int64(40), resp.Usage.InputTokens)
	mc.AssertExpectations(t)
}

func TestMessageResponse_Text(t *testing.T) {
	tests := []struct {
		name string
		resp *MessageResponse
		want string
	}{
		{name: "nil", resp: nil, want: ""},
		{name: "empty", resp: &MessageResponse{}, want: ""},
		{
			name: "joins text blocks",
			resp: &MessageResponse{Content: []ContentBlock{
				{Type: "text", Text: `{"a":`},
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: `1}`},
			}},
			want: `{"a":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Text())
		})
	}
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "{"},
		{Role: "system", Content: "unknown role"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
}

func TestToSDKSystemBlocks(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "plain"},
		{Text: "cached", CacheControl: &CacheControl{TTL: "5m"}},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "plain", blocks[0].Text)
	assert.Equal(t, "cached", blocks[1].Text)
	assert.Equal(t, "5m", string(blocks[1].CacheControl.TTL))
}

func TestFromSDKMessage(t *testing.T) {
	msg := &sdk.Message{
		ID:    "msg_x",
		Model: "claude-haiku-4-5-20251001",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "[]"},
		},
		StopReason: "end_turn",
		Usage: sdk.Usage{
			InputTokens:          10,
			OutputTokens:         2,
			CacheReadInputTokens: 900,
		},
	}
	resp := fromSDKMessage(msg)
	assert.Equal(t, "msg_x", resp.ID)
	assert.Equal(t, "[]", resp.Text())
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int64(900), resp.Usage.CacheReadInputTokens)
}
