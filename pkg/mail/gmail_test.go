package mail

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConversationFromMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:      "m1",
		Snippet: "Your order has shipped",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Order shipped"},
				{Name: "From", Value: "shipping@example.com"},
				{Name: "Date", Value: "Mon, 24 Aug 2026 09:15:00 -0700"},
			},
			Body: &gmail.MessagePartBody{Data: b64("Your package is on the way.")},
		},
	}

	conv := conversationFromMessage(msg, "personal", 2000)

	assert.Equal(t, "m1", conv.ID)
	assert.Equal(t, "Order shipped", conv.Subject)
	assert.Equal(t, "shipping@example.com", conv.From)
	assert.Equal(t, "Mon, 24 Aug 2026 09:15:00 -0700", conv.Date)
	assert.Equal(t, "Your package is on the way.", conv.Body)
	assert.Equal(t, "personal", conv.AccountName)
	assert.Equal(t, []string{"m1"}, conv.MessageIDs)
}

func TestConversationFromMessageTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 5000)
	msg := &gmail.Message{
		Id: "m2",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: b64(long)},
		},
	}

	conv := conversationFromMessage(msg, "personal", 2000)
	assert.Len(t, conv.Body, 2000)
}

func TestExtractPlainTextDescendsMultipart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: b64("<p>hello</p>")},
			},
			{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: b64("plain text body")},
					},
				},
			},
		},
	}

	assert.Equal(t, "plain text body", extractPlainText(payload))
}

func TestExtractPlainTextEmptyPayload(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "image/png", Body: &gmail.MessagePartBody{Data: b64("binary")}},
		},
	}

	assert.Empty(t, extractPlainText(payload))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "ab", Truncate("abc", 2))
	require.Equal(t, "abc", Truncate("abc", 0))
}
