package server

import (
	"path/filepath"

	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/work"
	"github.com/pkg/errors"
)

// backupSqliteDb pushes the encrypted sqlite file to google storage, so a
// fresh deployment can restore user accounts and session history.
func backupSqliteDb(map[string]interface{}) error {
	if gStorage == nil {
		return errors.New("google storage is not configured")
	}

	dbDir, err := models.DbDirectory(configDirectory(devMode))
	if err != nil {
		return err
	}

	return gStorage.UploadFile(appConfig.Google.Storage.Bucket, filepath.Join(dbDir, models.DB_NAME))
}

func purgeExpiredOtps(map[string]interface{}) error {
	return models.PurgeExpiredOtps()
}

func registerJobHandlers(wpa *work.WorkerPoolAdapter) {
	wpa.Register("backupSqliteDb", backupSqliteDb)
	wpa.Register("purgeExpiredOtps", purgeExpiredOtps)
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) {
	if sqliteBackupEnabled() {
		wpa.PeriodicallyPerform(appConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
			Name:    "backupSqliteDb",
			Handler: "backupSqliteDb",
			Unique:  true,
			Args:    map[string]interface{}{},
		})
	}

	wpa.PeriodicallyPerform("0 * * * *", work.JobParams{
		Name:    "purgeExpiredOtps",
		Handler: "purgeExpiredOtps",
		Unique:  true,
		Args:    map[string]interface{}{},
	})
}
