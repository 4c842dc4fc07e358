package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/healthmate-sync/internal/config"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/infrastructure/awscfg"
)

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Presenter delivers notifications by publishing them to an SNS target
// (a mobile push endpoint or a topic the device is subscribed to).
type Presenter struct {
	client    publisher
	targetARN string
}

func NewPresenter(ctx context.Context, cfg *config.Config) (*Presenter, error) {
	if cfg.SNSTargetARN == "" {
		return nil, fmt.Errorf("SNS_TARGET_ARN is not set")
	}
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return &Presenter{client: client, targetARN: cfg.SNSTargetARN}, nil
}

// Present publishes p as a JSON message. The data fields are also attached as
// message attributes so subscribers can filter on them.
func (p *Presenter) Present(ctx context.Context, n domain.Presentation) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal presentation: %w", err)
	}
	attrs := make(map[string]types.MessageAttributeValue, len(n.Data))
	for k, v := range n.Data {
		if v == "" {
			continue
		}
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TargetArn:         aws.String(p.targetARN),
		Subject:           aws.String(n.Title),
		Message:           aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// LogPresenter writes notifications to the log. Used when no SNS target is configured.
type LogPresenter struct{}

func (LogPresenter) Present(_ context.Context, n domain.Presentation) error {
	slog.Info("notification", "title", n.Title, "body", n.Body, "reminder_id", n.Data["reminderId"])
	return nil
}
