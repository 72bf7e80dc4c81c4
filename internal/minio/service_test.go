package minio

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu sync.Mutex

	failures int
	exists   bool
	objects  map[string]string
	attempts int
}

func (bucket *fakeBucket) PutObject(
	_ context.Context,
	bucketName, objectName string,
	reader io.Reader,
	_ int64,
	_ minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.attempts++

	if bucket.failures > 0 {
		bucket.failures--
		return minio.UploadInfo{}, errors.New("connection reset")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	bucket.objects[bucketName+"/"+objectName] = string(data)

	return minio.UploadInfo{Bucket: bucketName, Key: objectName}, nil
}

func (bucket *fakeBucket) BucketExists(_ context.Context, _ string) (bool, error) {
	return bucket.exists, nil
}

func setupArchiveConfig(t *testing.T) {
	t.Helper()

	previous := config.Conf
	t.Cleanup(func() { config.Conf = previous })

	config.Conf.MinioEndpointURL = "minio.local:9000"
	config.Conf.MinioMaxRetryAttempts = 3
	config.Conf.MinioRetryBackoffMinSeconds = 0
	config.Conf.MinioRetryBackoffMaxSeconds = 0
	config.Conf.MinioTimeout = 5
}

func TestArchiveTranscript(t *testing.T) {
	setupArchiveConfig(t)

	bucket := &fakeBucket{objects: map[string]string{}}
	client := NewMinioClientWith(bucket, "calls", "transcripts")

	url, err := client.ArchiveTranscript(context.Background(), "call-001", []any{
		map[string]any{"speaker": "user", "text": "I drive a Toyota"},
		map[string]any{"speaker": "bot", "text": "Great"},
	})
	require.NoError(t, err)

	assert.Equal(t, "minio.local:9000/calls/transcripts/call-001.txt", url)
	assert.Equal(t, "I drive a Toyota Great", bucket.objects["calls/transcripts/call-001.txt"])
}

func TestArchiveTranscript_RetriesTransientFailures(t *testing.T) {
	setupArchiveConfig(t)

	bucket := &fakeBucket{objects: map[string]string{}, failures: 2}
	client := NewMinioClientWith(bucket, "calls", "")

	_, err := client.ArchiveTranscript(context.Background(), "call-002", "plain transcript")
	require.NoError(t, err)

	assert.Equal(t, 3, bucket.attempts)
	assert.Equal(t, "plain transcript", bucket.objects["calls/call-002.txt"])
}

func TestArchiveTranscript_GivesUpAfterAttempts(t *testing.T) {
	setupArchiveConfig(t)

	bucket := &fakeBucket{objects: map[string]string{}, failures: 10}
	client := NewMinioClientWith(bucket, "calls", "")

	_, err := client.ArchiveTranscript(context.Background(), "call-003", "text")
	require.Error(t, err)

	assert.Equal(t, 3, bucket.attempts)
	assert.Equal(t, uint32(1), client.CircuitBreaker.Counts().ConsecutiveFailures)
}

func TestArchiveTranscript_OpenBreakerDoesNotRestartApp(t *testing.T) {
	setupArchiveConfig(t)

	config.Conf.MinioMaxRetryAttempts = 1
	config.Conf.MinioConsecutiveFailuresCB = 1
	config.Conf.MinioRequired = false

	circuitbreak.Init()
	t.Cleanup(func() { circuitbreak.CircuitBreakChan = nil })

	client := NewMinioClientWith(&fakeBucket{objects: map[string]string{}, failures: 10}, "calls", "")

	_, err := client.ArchiveTranscript(context.Background(), "call-004", "text")
	require.Error(t, err)

	assert.Equal(t, gobreaker.StateOpen, client.CircuitBreaker.State())
	assert.Empty(t, circuitbreak.CircuitBreakChan)
}

func TestArchiveTranscript_RejectsEmptyInput(t *testing.T) {
	setupArchiveConfig(t)

	bucket := &fakeBucket{objects: map[string]string{}}
	client := NewMinioClientWith(bucket, "calls", "")

	_, err := client.ArchiveTranscript(context.Background(), "", "text")
	require.ErrorIs(t, err, ErrEmptyLogID)

	_, err = client.ArchiveTranscript(context.Background(), "call-004", nil)
	require.ErrorIs(t, err, ErrEmptyTranscript)

	assert.Zero(t, bucket.attempts)
}

func TestPing(t *testing.T) {
	client := NewMinioClientWith(&fakeBucket{exists: true}, "calls", "")
	require.NoError(t, client.Ping(context.Background()))

	client = NewMinioClientWith(&fakeBucket{}, "calls", "")
	require.Error(t, client.Ping(context.Background()))
}
