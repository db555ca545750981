package archive

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFakeS3 starts an in-memory S3 server and returns a client pointed at it.
func setupFakeS3(t *testing.T) *s3.Client {
	t.Helper()

	faker := gofakes3.New(s3mem.New())
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(server.URL)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
}

func createBucket(t *testing.T, client *s3.Client, bucket string) {
	t.Helper()
	_, err := client.CreateBucket(context.Background(), &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)
}

func TestS3Archive(t *testing.T) {
	client := setupFakeS3(t)
	createBucket(t, client, "geosnag-reports")

	a := NewS3ArchiveWithClient("s3", client, "geosnag-reports", "nas1")
	assert.Equal(t, "nas1/", a.prefix)
	exerciseArchive(t, a)

	// Objects land under the prefix.
	out, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String("geosnag-reports"),
		Key:    aws.String("nas1/reports/run-2.csv.age"),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "enc", buf.String())
}

func TestS3Archive_ValidateSetupMissingBucket(t *testing.T) {
	client := setupFakeS3(t)
	a := NewS3ArchiveWithClient("s3", client, "absent", "")
	assert.Error(t, a.ValidateSetup(context.Background()))
}

func TestNewS3Archive_RequiresBucket(t *testing.T) {
	_, err := NewS3Archive(context.Background(), "s3", S3Options{Region: "us-east-1"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bucket name is required"))
}
