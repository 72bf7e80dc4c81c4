package healthchecker

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
)

func CheckDB(ctx context.Context) bool {
	dbConn, err := database.NewDatabase()
	if err != nil {
		return false
	}

	sqlDB, err := dbConn.DB()
	if err != nil {
		return false
	}
	defer sqlDB.Close()

	return sqlDB.PingContext(ctx) == nil
}
