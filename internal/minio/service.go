package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/transcript"
	"github.com/avast/retry-go"
	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	ErrConvertToStringUrl = errors.New("failed to convert result url to string")
	ErrEmptyTranscript    = errors.New("transcript has no text to archive")
	ErrEmptyLogID         = errors.New("log id is required for the object key")
)

// ObjectPutter is the part of *minio.Client the archive needs.
type ObjectPutter interface {
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

type MinioClient struct {
	Client         ObjectPutter
	CircuitBreaker *gobreaker.CircuitBreaker[any]
	BucketName     string
	PathPrefix     string
}

// NewMinioClient connects to the configured endpoint with static credentials.
func NewMinioClient() (*MinioClient, error) {
	endpointURL := config.Conf.MinioEndpointURL

	client, err := minio.New(endpointURL, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Conf.MinioAccessKey, config.Conf.MinioSecretKey, ""),
		Secure: config.Conf.MinioSecure,
	})
	if err != nil {
		logging.Logger.Error("Failed to initialize MinIO client", zap.String("error", err.Error()))
		return nil, err
	}

	logging.Logger.Info("Successfully connected to MinIO",
		zap.String("endpoint", endpointURL),
		zap.String("bucket", config.Conf.MinioBucketName),
	)

	return NewMinioClientWith(client, config.Conf.MinioBucketName, config.Conf.MinioPathPrefix), nil
}

func NewMinioClientWith(client ObjectPutter, bucketName, pathPrefix string) *MinioClient {
	return &MinioClient{
		Client:         client,
		CircuitBreaker: newCircuitBreaker(),
		BucketName:     bucketName,
		PathPrefix:     pathPrefix,
	}
}

func newCircuitBreaker() *gobreaker.CircuitBreaker[any] {
	threshold := config.Conf.MinioConsecutiveFailuresCB
	if threshold == 0 {
		threshold = 3
	}

	settings := gobreaker.Settings{
		Name:     "minio",
		Interval: time.Duration(config.Conf.MinioIntervalCB) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, fromState, toState gobreaker.State) {
			logging.Logger.Warn(
				"Circuit state changed",
				zap.String("service", name),
				zap.String("from", fromState.String()),
				zap.String("to", toState.String()),
			)

			if toState == gobreaker.StateOpen {
				circuitbreak.ReportSinkOpen(circuitbreak.MinioService, config.Conf.MinioRequired)
			}
		},
	}

	return gobreaker.NewCircuitBreaker[any](settings)
}

// ArchiveTranscript stores the plain text of a call transcript under <prefix>/<log_id>.txt
// and returns the object URL.
func (m *MinioClient) ArchiveTranscript(ctx context.Context, logID string, data any) (string, error) {
	if logID == "" {
		return "", ErrEmptyLogID
	}

	text := transcript.Text(data)
	if raw, ok := data.(string); ok && text == "" && !json.Valid([]byte(raw)) {
		text = strings.TrimSpace(raw)
	}

	if text == "" {
		return "", ErrEmptyTranscript
	}

	return m.Upload(ctx, bytes.NewBufferString(text), logID+".txt")
}

// Upload uploads a buffer to MinIO with retry and returns the URL
func (m *MinioClient) Upload(ctx context.Context, buffer *bytes.Buffer, objectKey string) (string, error) {
	logging.Logger.Info("Starting MinIO upload",
		zap.String("object_key", objectKey),
		zap.Int("buffer_size", buffer.Len()),
	)

	url, err := m.CircuitBreaker.Execute(func() (any, error) {
		return m.doUpload(ctx, buffer, objectKey)
	})
	if err != nil {
		return "", err
	}

	urlStr, ok := url.(string)
	if !ok {
		return "", ErrConvertToStringUrl
	}

	return urlStr, nil
}

// Ping checks that the archive bucket is reachable.
func (m *MinioClient) Ping(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.BucketName)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("bucket %q does not exist", m.BucketName)
	}

	return nil
}

func (m *MinioClient) doUpload(ctx context.Context, buffer *bytes.Buffer, objectKey string) (string, error) {
	timer := prometheus.NewTimer(prometheusLeadsync.MinioOperationDuration.WithLabelValues("upload"))
	defer timer.ObserveDuration()

	var url string

	ctxWithTimout, cancel := context.WithTimeout(ctx, uploadTimeout())
	defer cancel()

	err := retry.Do(
		func() error {
			_, err := m.Client.PutObject(
				ctxWithTimout,
				m.BucketName,
				m.getKey(objectKey),
				bytes.NewReader(buffer.Bytes()),
				int64(buffer.Len()),
				minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
			)
			if err != nil {
				logging.Logger.Error("MinIO upload failed",
					zap.String("object_key", objectKey),
					zap.String("error", err.Error()),
				)

				return err
			}

			url = m.generateURL(objectKey)
			logging.Logger.Info("MinIO upload completed successfully",
				zap.String("object_key", objectKey),
				zap.String("url", url),
			)

			return nil
		},
		retry.Context(ctxWithTimout),
		retry.LastErrorOnly(true),
		retry.Attempts(maxRetryAttempts()),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(time.Duration(config.Conf.MinioRetryBackoffMinSeconds)*time.Second),
		retry.MaxDelay(time.Duration(config.Conf.MinioRetryBackoffMaxSeconds)*time.Second),
	)
	if err != nil {
		logging.Logger.Error("MinIO upload failed after all retry attempts",
			zap.String("object_key", objectKey),
			zap.String("error", err.Error()),
		)

		return "", err
	}

	return url, nil
}

func uploadTimeout() time.Duration {
	if config.Conf.MinioTimeout <= 0 {
		return time.Minute
	}

	return time.Duration(config.Conf.MinioTimeout) * time.Second
}

func maxRetryAttempts() uint {
	if config.Conf.MinioMaxRetryAttempts == 0 {
		return 1
	}

	return config.Conf.MinioMaxRetryAttempts
}

func (m *MinioClient) generateURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", config.Conf.MinioEndpointURL, m.BucketName, m.getKey(objectKey))
}

func (m *MinioClient) getKey(objectKey string) string {
	return path.Join(m.PathPrefix, objectKey)
}
