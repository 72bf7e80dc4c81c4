package healthchecker

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/minio"
	"go.uber.org/zap"
)

func CheckMinio(ctx context.Context) bool {
	minioClient, err := minio.NewMinioClient()
	if err != nil {
		logging.Logger.Error("failed to create new minio client", zap.String("error", err.Error()))
		return false
	}

	err = minioClient.Ping(ctx)
	if err != nil {
		logging.Logger.Info("minio bucket status", zap.String("error", err.Error()))
		return false
	}

	return true
}
