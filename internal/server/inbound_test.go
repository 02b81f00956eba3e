package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    InboundMessage
		wantErr bool
	}{
		{name: "valid", raw: `{"conversation_id": 3, "message": "hello"}`, want: InboundMessage{ConversationID: 3, Message: "hello"}},
		{name: "empty message is left to the pipeline", raw: `{"conversation_id": 3, "message": ""}`, want: InboundMessage{ConversationID: 3}},
		{name: "not json", raw: `hello`, wantErr: true},
		{name: "missing conversation", raw: `{"message": "hello"}`, wantErr: true},
		{name: "negative conversation", raw: `{"conversation_id": -1, "message": "hello"}`, wantErr: true},
		{name: "wrong type", raw: `{"conversation_id": "one", "message": "hello"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeInbound([]byte(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNoticeFor(t *testing.T) {
	assert.Equal(t, "Invalid message format.", noticeFor(ErrValidation))
	assert.Equal(t, "Conversation not found.", noticeFor(fmt.Errorf("%w: 7", ErrUnknownConversation)))
	assert.Equal(t, "Your user account no longer exists.", noticeFor(fmt.Errorf("%w: user 9", ErrUnknownAuthor)))
	assert.Equal(t, "Conversation or user not found.", noticeFor(ErrNotFound))
	assert.Equal(t, "Message could not be delivered.", noticeFor(errors.New("boom")))
}

func TestRenderNotice(t *testing.T) {
	notice := string(RenderNotice("Invalid <message>"))

	assert.Contains(t, notice, `id="notices"`)
	assert.Contains(t, notice, "Invalid &lt;message&gt;")
}
