package models

import (
	"os"
)

// InitializeTestDb opens a throwaway encrypted sqlite db for package tests.
// Each call gets a fresh directory, so test packages never share state.
func InitializeTestDb() {
	rootDir, err := os.MkdirTemp("", "femina360-test-")
	if err != nil {
		logg.Panic(err)
	}

	err = AutoMigrate("test-passphrase", rootDir)
	if err != nil {
		logg.Panic(err)
	}
}
