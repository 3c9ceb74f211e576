// Package notify publishes operator alerts to SNS. Alerts are informational;
// publish failures are logged by callers and never fail the pipeline.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/omnilogix/freight-bridge/internal/model"
)

// PublisherAPI defines the interface for SNS operations used by Notifier.
type PublisherAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier publishes operator alerts to a single SNS topic.
type Notifier struct {
	client   PublisherAPI
	topicARN string
}

// NewClient creates a configured SNS client, optionally against a custom endpoint.
func NewClient(ctx context.Context, region string, endpoint string) (*sns.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}

	if endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}

	return sns.NewFromConfig(awsCfg), nil
}

// NewNotifier creates a Notifier for the given topic.
func NewNotifier(client PublisherAPI, topicARN string) *Notifier {
	return &Notifier{
		client:   client,
		topicARN: topicARN,
	}
}

// AlertFailure reports a failed attempt. The message carries the manual
// retrigger instructions so operators can resume after fixing the cause.
func (n *Notifier) AlertFailure(ctx context.Context, pipeline string, key model.BusinessKey, cause string) error {
	subject := fmt.Sprintf("%s integration failed ~ OrderNo: %s / %s", pipeline, key.OrderNo, key.Discriminator)
	message := fmt.Sprintf(
		"Error in %s pipeline.\n\nOrderNo: %s.\n\nDiscriminator: %s.\nError Details: %s.\n\n"+
			"Retrigger process: after fixing the issue, set the attempt status back to READY "+
			"via the operations API to resend this record.",
		pipeline, key.OrderNo, key.Discriminator, cause)
	return n.publish(ctx, subject, message)
}

// AlertDuplicate reports that a redelivered event was skipped. Distinct from
// failure alerts so operators can tell noise from breakage.
func (n *Notifier) AlertDuplicate(ctx context.Context, pipeline string, key model.BusinessKey) error {
	subject := fmt.Sprintf("%s duplicate event skipped ~ OrderNo: %s / %s", pipeline, key.OrderNo, key.Discriminator)
	message := fmt.Sprintf(
		"Duplicate delivery detected in %s pipeline.\n\nOrderNo: %s.\nDiscriminator: %s.\n\n"+
			"The original attempt already completed; no action is required. The reset count "+
			"of the record has been incremented for tracking.",
		pipeline, key.OrderNo, key.Discriminator)
	return n.publish(ctx, subject, message)
}

func (n *Notifier) publish(ctx context.Context, subject, message string) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
