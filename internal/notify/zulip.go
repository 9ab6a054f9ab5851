package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Compile-time interface guard.
var _ Notifier = (*ZulipNotifier)(nil)

// ZulipNotifier posts alert messages to a Zulip stream topic and edits
// them in place through the messages API.
type ZulipNotifier struct {
	client *http.Client
	cfg    ZulipConfig
}

// NewZulipNotifier creates a new Zulip notifier with the given config.
func NewZulipNotifier(cfg ZulipConfig) *ZulipNotifier {
	return &ZulipNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
	}
}

type zulipResponse struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
	ID     int64  `json:"id"`
}

// Post sends a stream message and returns the Zulip message id.
func (z *ZulipNotifier) Post(ctx context.Context, message string) (string, error) {
	form := url.Values{
		"type":    {"stream"},
		"to":      {z.cfg.Stream},
		"topic":   {z.cfg.Topic},
		"content": {message},
	}

	resp, err := z.do(ctx, http.MethodPost, z.endpoint("api/v1/messages"), form)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

// Edit replaces the content of a previously posted message.
func (z *ZulipNotifier) Edit(ctx context.Context, messageID, message string) error {
	form := url.Values{"content": {message}}
	_, err := z.do(ctx, http.MethodPatch, z.endpoint("api/v1/messages/"+messageID), form)
	return err
}

// Type returns the channel type identifier.
func (z *ZulipNotifier) Type() string {
	return "zulip"
}

func (z *ZulipNotifier) endpoint(path string) string {
	return strings.TrimRight(z.cfg.Site, "/") + "/" + path
}

func (z *ZulipNotifier) do(ctx context.Context, method, endpoint string, form url.Values) (*zulipResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create zulip request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(z.cfg.Email, z.cfg.APIKey)

	resp, err := z.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zulip %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("zulip %s %s: read body: %w", method, endpoint, err)
	}

	var parsed zulipResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("zulip %s %s: status %d, unparseable body", method, endpoint, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Result != "success" {
		return nil, fmt.Errorf("zulip %s %s: status %d: %s", method, endpoint, resp.StatusCode, parsed.Msg)
	}
	return &parsed, nil
}
