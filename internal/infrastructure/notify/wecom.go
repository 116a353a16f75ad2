package notify

import (
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
)

// Message formats accepted by the WeCom group robot API.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// wecomPayload is the group robot message body:
//
//	{"msgtype":"markdown","markdown":{"content":"..."}}
type wecomPayload struct {
	MsgType  string        `json:"msgtype"`
	Markdown *wecomContent `json:"markdown,omitempty"`
	Text     *wecomContent `json:"text,omitempty"`
}

type wecomContent struct {
	Content string `json:"content"`
}

// wecomResponse is the API result envelope. errcode 0 means delivered.
type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// WeComClient posts alert digests to a WeCom (企业微信) group robot
// webhook. Callers treat delivery as fire-and-forget; a returned error
// means the digest did not go out and the caller may retry later.
type WeComClient struct {
	client     *resty.Client
	webhookURL string
}

// NewWeComClient creates a webhook client from config.
func NewWeComClient(cfg config.NotifyConfig) *WeComClient {
	client := resty.New().
		SetTimeout(cfg.TimeoutDuration()).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json")

	return &WeComClient{
		client:     client,
		webhookURL: cfg.WebhookURL,
	}
}

// Send delivers content to the webhook in the given format (markdown or
// text; anything else falls back to text).
func (c *WeComClient) Send(content, format string) error {
	payload := wecomPayload{MsgType: format}
	switch format {
	case FormatMarkdown:
		payload.Markdown = &wecomContent{Content: content}
	default:
		payload.MsgType = FormatText
		payload.Text = &wecomContent{Content: content}
	}

	var result wecomResponse
	resp, err := c.client.R().
		SetBody(payload).
		SetResult(&result).
		Post(c.webhookURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: webhook returned status %d", ErrSendFailed, resp.StatusCode())
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("%w: errcode %d: %s", ErrSendFailed, result.ErrCode, result.ErrMsg)
	}
	return nil
}
