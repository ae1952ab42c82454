package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	SlackWebhookURL string        `envconfig:"SLACK_WEBHOOK_URL"`
	Timeout         time.Duration `envconfig:"SLACK_TIMEOUT" default:"5s"`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Slack posts operator messages to an incoming webhook. A zero value or
// an empty URL drops every message.
type Slack struct {
	url  string
	http *resty.Client
	log  *logger.Entry
}

func NewSlack(cfg Config) *Slack {
	return &Slack{
		url:  cfg.SlackWebhookURL,
		http: resty.New().SetTimeout(cfg.Timeout),
		log:  logger.WithField("component", "slack"),
	}
}

func (s *Slack) Enabled() bool { return s != nil && s.url != "" }

// Notify sends text in the background. Failures are logged, never retried.
func (s *Slack) Notify(ctx context.Context, text string) {
	if !s.Enabled() {
		return
	}
	go func() {
		if err := s.Send(context.WithoutCancel(ctx), text); err != nil {
			s.log.WithError(err).Warn("Slack notification failed")
		}
	}()
}

// Send posts text and waits for the webhook answer.
func (s *Slack) Send(ctx context.Context, text string) error {
	if !s.Enabled() {
		return nil
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
