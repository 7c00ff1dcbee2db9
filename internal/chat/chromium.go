// Package chat drives the messaging web client in a Chromium instance via
// chromedp: conversation selection, attachment lookup, the full-size image
// overlay, and the message composer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"posteragent/internal/config"
	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

// elementTimeout bounds waits for elements other than the login marker.
const elementTimeout = 10 * time.Second

// Client is one browser session on the chat client.
type Client struct {
	ctx    context.Context // chromedp browser context
	cancel context.CancelFunc
	cfg    config.ChatConfig
	sleep  func(time.Duration)
}

// Open launches Chromium with a persistent profile, loads the chat client
// and waits for it to become interactive. When the ready marker does not
// show up within LoginTimeout, Open waits LoginGrace once more so a QR code
// can be scanned, then carries on.
func Open(parent context.Context, cfg config.ChatConfig, extra ...chromedp.ExecAllocatorOption) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("chat: URL is required")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.SessionDir),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("start-maximized", true),
	)
	opts = append(opts, extra...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	c := &Client{
		ctx: ctx,
		cancel: func() {
			ctxCancel()
			allocCancel()
		},
		cfg:   cfg,
		sleep: time.Sleep,
	}

	appLog.Info("launching browser", "url", cfg.URL, "session_dir", cfg.SessionDir, "headless", cfg.Headless)

	// The first Run starts the browser; it must not carry a timeout or the
	// browser would die with it.
	if err := chromedp.Run(ctx, chromedp.Navigate(cfg.URL)); err != nil {
		c.Close()
		return nil, fmt.Errorf("chat: open %s: %w", cfg.URL, err)
	}

	if err := c.waitVisible(cfg.Selectors.Ready, cfg.LoginTimeout); err != nil {
		appLog.Warn("chat client not ready, waiting for login (scan the QR code if shown)", "grace", cfg.LoginGrace)
		c.sleep(cfg.LoginGrace)
	} else {
		appLog.Info("chat client loaded")
	}
	return c, nil
}

// Close shuts the browser down.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(c.ctx, actions...)
}

// waitVisible is the bounded "wait for element, else fall back" primitive.
func (c *Client) waitVisible(sel string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// SelectConversation opens the configured conversation through the search
// box and waits for its transcript to render.
func (c *Client) SelectConversation(ctx context.Context) error {
	appLog.Info("searching conversation", "chat", c.cfg.Name)
	if err := c.waitVisible(c.cfg.Selectors.Search, elementTimeout); err != nil {
		return fmt.Errorf("chat: search box %q: %w", c.cfg.Selectors.Search, err)
	}
	err := c.run(ctx,
		chromedp.Click(c.cfg.Selectors.Search, chromedp.ByQuery),
		chromedp.KeyEvent(c.cfg.Name),
		chromedp.Sleep(c.cfg.SearchSettle),
		chromedp.KeyEvent(kb.Enter),
		chromedp.Sleep(c.cfg.OpenSettle),
	)
	if err != nil {
		return fmt.Errorf("chat: select conversation %q: %w", c.cfg.Name, err)
	}
	return nil
}

func (c *Client) imageNodes(ctx context.Context, sel string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	// AtLeast(0): an empty transcript is an answer, not a reason to wait.
	err := c.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("chat: query %q: %w", sel, err)
	}
	return nodes, nil
}

// handleSelector is the query that produced h, or the configured image
// selector for handles built elsewhere.
func (c *Client) handleSelector(h model.ImageHandle) string {
	if h.Selector != "" {
		return h.Selector
	}
	return c.cfg.Selectors.Images
}

// Attachments lists the image attachments of the open conversation in
// transcript order.
func (c *Client) Attachments(ctx context.Context) ([]model.ImageHandle, error) {
	nodes, err := c.imageNodes(ctx, c.cfg.Selectors.Images)
	if err != nil {
		return nil, err
	}
	out := make([]model.ImageHandle, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, model.ImageHandle{
			Selector: c.cfg.Selectors.Images,
			Index:    i,
			Total:    len(nodes),
			Source:   shortSource(n.AttributeValue("src")),
		})
	}
	return out, nil
}

// LocateLatestPoster returns the most recent image of the conversation.
func (c *Client) LocateLatestPoster(ctx context.Context) (model.ImageHandle, error) {
	return LatestPoster(ctx, c)
}

// Expand clicks the attachment to open its full-resolution overlay.
func (c *Client) Expand(ctx context.Context, h model.ImageHandle) error {
	nodes, err := c.imageNodes(ctx, c.handleSelector(h))
	if err != nil {
		return err
	}
	if h.Index < 0 || h.Index >= len(nodes) {
		return fmt.Errorf("chat: attachment %d no longer present (%d found)", h.Index, len(nodes))
	}
	if err := c.run(ctx, chromedp.MouseClickNode(nodes[h.Index])); err != nil {
		return fmt.Errorf("chat: expand attachment %d: %w", h.Index, err)
	}
	return nil
}

// Screenshot captures the visible page as PNG.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	var png []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&png)); err != nil {
		return nil, fmt.Errorf("chat: screenshot: %w", err)
	}
	return png, nil
}

// Dismiss closes the image overlay.
func (c *Client) Dismiss(ctx context.Context) error {
	if err := c.run(ctx, chromedp.KeyEvent(kb.Escape)); err != nil {
		return fmt.Errorf("chat: dismiss overlay: %w", err)
	}
	return nil
}

// Compose fills the conversation's composer with text and submits it.
// Line breaks are entered as Shift+Enter so they do not send early.
func (c *Client) Compose(ctx context.Context, text string) error {
	sel := c.cfg.Selectors.Composer
	if err := c.waitVisible(sel, elementTimeout); err != nil {
		return fmt.Errorf("chat: composer %q: %w", sel, err)
	}

	actions := []chromedp.Action{chromedp.Click(sel, chromedp.ByQuery)}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			actions = append(actions, chromedp.KeyEvent(kb.Enter, chromedp.KeyModifiers(input.ModifierShift)))
		}
		if line != "" {
			actions = append(actions, input.InsertText(line))
		}
	}
	actions = append(actions,
		chromedp.Sleep(c.cfg.SendDelay),
		chromedp.KeyEvent(kb.Enter),
	)

	if err := c.run(ctx, actions...); err != nil {
		return fmt.Errorf("chat: send message: %w", err)
	}
	return nil
}
