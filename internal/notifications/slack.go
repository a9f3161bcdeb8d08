package notifications

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

type SlackService struct {
	logger     *logrus.Logger
	webhookURL string
	channel    string
	client     *http.Client
}

func NewSlackService(webhookURL, channel string, logger *logrus.Logger) (*SlackService, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is not set")
	}

	return &SlackService{
		logger:     logger,
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *SlackService) SendSlackMessage(ctx context.Context, message *slack.WebhookMessage) error {
	if s.channel != "" && message.Channel == "" {
		message.Channel = s.channel
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, message); err != nil {
		return fmt.Errorf("error sending slack message: %w", err)
	}

	s.logger.Debug("Successfully sent message to Slack")
	return nil
}
