package s3_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/omnilogix/freight-bridge/internal/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	getObjectFunc func(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	return m.getObjectFunc(ctx, params, optFns...)
}

func TestFetch(t *testing.T) {
	t.Run("returns object body", func(t *testing.T) {
		// given
		client := &mockS3Client{
			getObjectFunc: func(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
				assert.Equal(t, "bookings", *params.Bucket)
				assert.Equal(t, "inbound/S02167324.xml", *params.Key)
				return &awss3.GetObjectOutput{
					Body: io.NopCloser(strings.NewReader("<UniversalShipment/>")),
				}, nil
			},
		}
		fetcher := s3.NewFetcher(client)

		// when
		body, err := fetcher.Fetch(context.Background(), "bookings", "inbound/S02167324.xml")

		// then
		require.NoError(t, err)
		assert.Equal(t, "<UniversalShipment/>", string(body))
	})

	t.Run("wraps client failures with object coordinates", func(t *testing.T) {
		// given
		client := &mockS3Client{
			getObjectFunc: func(_ context.Context, _ *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
				return nil, errors.New("access denied")
			},
		}
		fetcher := s3.NewFetcher(client)

		// when
		_, err := fetcher.Fetch(context.Background(), "bookings", "missing.xml")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bookings/missing.xml")
	})
}
