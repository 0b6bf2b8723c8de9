//go:build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/dittowatch/pkg/store/block"
	"github.com/marmos91/dittowatch/pkg/store/block/storetest"
)

// localstackEndpoint returns LOCALSTACK_ENDPOINT or starts a container.
func localstackEndpoint(t *testing.T) string {
	t.Helper()

	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "localstack/localstack:3.0",
			ExposedPorts: []string{"4566/tcp"},
			Env: map[string]string{
				"SERVICES":              "s3",
				"DEFAULT_REGION":        "us-east-1",
				"EAGER_SERVICE_LOADING": "1",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4566/tcp"),
				wait.ForHTTP("/_localstack/health").
					WithPort("4566/tcp").
					WithStartupTimeout(60*time.Second),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start localstack")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4566")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestConformance_Localstack(t *testing.T) {
	endpoint := localstackEndpoint(t)
	n := 0

	storetest.RunConformanceSuite(t, func(t *testing.T) block.Store {
		n++
		cfg := block.S3Config{
			Bucket:          fmt.Sprintf("dittowatch-test-%d-%d", time.Now().Unix(), n),
			Region:          "us-east-1",
			Endpoint:        endpoint,
			ForcePathStyle:  true,
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			KeyPrefix:       "probes/",
		}
		s, err := NewFromConfig(t.Context(), cfg)
		require.NoError(t, err)

		_, err = s.client.CreateBucket(t.Context(), &s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)})
		require.NoError(t, err)

		t.Cleanup(func() {
			ctx := context.Background()
			_ = New(s.client, cfg).DeleteByPrefix(ctx, "")
			_, _ = s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(cfg.Bucket)})
		})
		return s
	})
}
