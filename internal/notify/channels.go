package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/steveyegge/dupsweep/internal/tracker"
)

// TrackerChannel posts the summary as a comment on a fixed issue
type TrackerChannel struct {
	client tracker.Client
	issue  int
}

// NewTrackerChannel comments on issue through client
func NewTrackerChannel(client tracker.Client, issue int) *TrackerChannel {
	return &TrackerChannel{client: client, issue: issue}
}

func (c *TrackerChannel) Name() string { return "tracker" }

// Notify comments on the summary issue. Dry-run results are never posted.
func (c *TrackerChannel) Notify(ctx context.Context, msg Message) error {
	if msg.Result != nil && msg.Result.Report != nil && msg.Result.Report.DryRun {
		return nil
	}
	if err := c.client.CreateComment(ctx, c.issue, msg.Text); err != nil {
		return fmt.Errorf("commenting on #%d: %w", c.issue, err)
	}
	return nil
}

// ChatChannel POSTs {"text": ...} to an incoming-webhook URL
type ChatChannel struct {
	url    string
	client *http.Client
}

// NewChatChannel creates a chat webhook channel
func NewChatChannel(url string, client *http.Client) *ChatChannel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ChatChannel{url: url, client: client}
}

func (c *ChatChannel) Name() string { return "chat" }

func (c *ChatChannel) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(map[string]string{"text": msg.Text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting chat message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned %s", resp.Status)
	}
	return nil
}

// SendMailFunc matches smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel sends the summary over SMTP
type EmailChannel struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail SendMailFunc
}

// NewEmailChannel creates an SMTP channel. Auth is PLAIN when user is set.
func NewEmailChannel(host string, port int, user, password, from string, to []string) *EmailChannel {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &EmailChannel{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		auth:     auth,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

// WithSendMail replaces the SMTP transport
func (c *EmailChannel) WithSendMail(fn SendMailFunc) *EmailChannel {
	c.sendMail = fn
	return c
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	b.WriteString("\r\n")

	if err := c.sendMail(c.addr, c.auth, c.from, c.to, []byte(b.String())); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// StreamAdder is the part of the Redis client the stream channel needs
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamChannel appends one entry per run to a Redis stream
type RedisStreamChannel struct {
	client StreamAdder
	stream string
}

// NewRedisStreamChannel writes to stream through client
func NewRedisStreamChannel(client StreamAdder, stream string) *RedisStreamChannel {
	return &RedisStreamChannel{client: client, stream: stream}
}

// NewRedisClient parses a redis:// URL
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *RedisStreamChannel) Name() string { return "redis" }

func (c *RedisStreamChannel) Notify(ctx context.Context, msg Message) error {
	fields := map[string]any{
		"subject": msg.Subject,
		"text":    msg.Text,
	}
	if r := msg.Result; r != nil {
		fields["mode"] = string(r.Mode)
		fields["repository"] = r.Repository
		fields["success"] = r.Success
		fields["duplicates_processed"] = r.DuplicatesProcessed
		fields["execution_time_ms"] = r.ExecutionTimeMs
		if r.ReportPath != "" {
			fields["report_path"] = r.ReportPath
		}
		if r.Report != nil {
			fields["run_id"] = r.Report.RunID
			fields["closed"] = r.Report.Summary.Closed
		}
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", c.stream, err)
	}
	return nil
}
