package sqs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSQSConsumerClient is a mock implementation of the SQS client for consumer testing.
type mockSQSConsumerClient struct {
	receiveMessageFunc func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	deleteMessageFunc  func(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func (m *mockSQSConsumerClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if m.receiveMessageFunc != nil {
		return m.receiveMessageFunc(ctx, params, optFns...)
	}
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{}}, nil
}

func (m *mockSQSConsumerClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if m.deleteMessageFunc != nil {
		return m.deleteMessageFunc(ctx, params, optFns...)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

func TestConsumer_processMessage(t *testing.T) {
	t.Run("delegates the body to the handler", func(t *testing.T) {
		// given
		var gotBody string
		consumer := NewConsumer(&mockSQSConsumerClient{}, "https://sqs.us-east-1.amazonaws.com/123456789/test-queue",
			func(_ context.Context, body string) error {
				gotBody = body
				return nil
			})

		message := types.Message{
			Body:          aws.String(`{"eventName":"INSERT"}`),
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.NoError(t, err)
		assert.Equal(t, `{"eventName":"INSERT"}`, gotBody)
	})

	t.Run("nil message body", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, "https://sqs.us-east-1.amazonaws.com/123456789/test-queue",
			func(_ context.Context, _ string) error { return nil })

		message := types.Message{
			Body:          nil,
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "message body is nil")
	})

	t.Run("handler errors keep the message on the queue", func(t *testing.T) {
		// given
		deleted := false
		client := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				return &sqs.ReceiveMessageOutput{Messages: []types.Message{
					{Body: aws.String("body"), ReceiptHandle: aws.String("rh-1")},
				}}, nil
			},
			deleteMessageFunc: func(_ context.Context, _ *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				deleted = true
				return &sqs.DeleteMessageOutput{}, nil
			},
		}
		consumer := NewConsumer(client, "https://sqs.us-east-1.amazonaws.com/123456789/test-queue",
			func(_ context.Context, _ string) error { return errors.New("handler failed") })

		// when
		err := consumer.receiveMessages(context.Background())

		// then
		require.NoError(t, err)
		assert.False(t, deleted, "failed messages must stay on the queue")
	})

	t.Run("successful handling deletes the message", func(t *testing.T) {
		// given
		deleted := false
		client := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				return &sqs.ReceiveMessageOutput{Messages: []types.Message{
					{Body: aws.String("body"), ReceiptHandle: aws.String("rh-1")},
				}}, nil
			},
			deleteMessageFunc: func(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				assert.Equal(t, "rh-1", *params.ReceiptHandle)
				deleted = true
				return &sqs.DeleteMessageOutput{}, nil
			},
		}
		consumer := NewConsumer(client, "https://sqs.us-east-1.amazonaws.com/123456789/test-queue",
			func(_ context.Context, _ string) error { return nil })

		// when
		err := consumer.receiveMessages(context.Background())

		// then
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}
