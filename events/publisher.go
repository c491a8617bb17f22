package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
)

// Publisher announces committed order changes. Delivery is best effort;
// nothing in the order flow depends on it.
type Publisher interface {
	Publish(ctx context.Context, evt models.OrderEvent) error
}

func encode(evt models.OrderEvent) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}
	return data, nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.OrderEvent) error { return nil }

// SNSPublisher fans events out through an SNS topic with an event_type
// attribute for subscription filters.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, evt models.OrderEvent) error {
	data, err := encode(evt)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.topicArn, data, map[string]string{"event_type": string(evt.Type)})
}

// SQSPublisher sends events straight to a queue.
type SQSPublisher struct {
	sender awspkg.SQSSender
}

func NewSQSPublisher(sender awspkg.SQSSender) *SQSPublisher {
	return &SQSPublisher{sender: sender}
}

func (p *SQSPublisher) Publish(ctx context.Context, evt models.OrderEvent) error {
	data, err := encode(evt)
	if err != nil {
		return err
	}
	return p.sender.SendMessage(ctx, string(data), map[string]string{"event_type": string(evt.Type)})
}
