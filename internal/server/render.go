package server

import (
	"bytes"
	"html/template"
	"time"
)

// MessagesContainerID is the element id broadcast fragments are appended to.
const MessagesContainerID = "messages"

// NoticesContainerID is the element id notices are appended to.
const NoticesContainerID = "notices"

// MessageView is everything a renderer needs to present one message.
type MessageView struct {
	MessageID      int64
	ConversationID int64
	AuthorName     string
	Content        string
	CreatedAt      time.Time
}

// Renderer turns a persisted message into the payload pushed to clients.
type Renderer interface {
	RenderMessage(MessageView) ([]byte, error)
}

var (
	messageTemplate = template.Must(template.New("message").Parse(
		`<div id="{{.Container}}" hx-swap-oob="beforeend"><p data-conversation-id="{{.ConversationID}}" data-message-id="{{.MessageID}}"><strong>{{.AuthorName}}:</strong> {{.Content}}</p></div>`,
	))
	noticeTemplate = template.Must(template.New("notice").Parse(
		`<div id="{{.Container}}" hx-swap-oob="beforeend"><p class="notice">{{.Text}}</p></div>`,
	))
)

// HTMLRenderer renders out-of-band HTML fragments keyed to
// MessagesContainerID. User content is escaped.
type HTMLRenderer struct{}

// RenderMessage implements Renderer.
func (HTMLRenderer) RenderMessage(v MessageView) ([]byte, error) {
	var buf bytes.Buffer
	err := messageTemplate.Execute(&buf, struct {
		MessageView
		Container string
	}{v, MessagesContainerID})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderNotice renders a notice fragment for a single client.
func RenderNotice(text string) []byte {
	var buf bytes.Buffer
	_ = noticeTemplate.Execute(&buf, struct {
		Container string
		Text      string
	}{NoticesContainerID, text})
	return buf.Bytes()
}
