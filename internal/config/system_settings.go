package config

import (
	"os"
	"strconv"
)

const DATABASE_TYPE = "EFLOW_DATABASE_TYPE"
const DATABASE_URL = "EFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "EFLOW_DATABASE_SQLLITE_FILE_NAME"
const ENGINE_SERVER_WEB_PORT = "EFLOW_ENGINE_SERVER_WEB_PORT"
const ENGINE_CHECK_INTERVAL = "EFLOW_ENGINE_CHECK_INTERVAL"
const ENGINE_REPAIR_INTERVAL = "EFLOW_ENGINE_REPAIR_INTERVAL"
const ENGINE_REPAIR_AFTER_MINUTES = "EFLOW_ENGINE_REPAIR_AFTER_MINUTES"
const ENGINE_BATCH_SIZE = "EFLOW_ENGINE_BATCH_SIZE"   //number of executions to pull from the database at a time
const ENGINE_WORKER_SIZE = "EFLOW_ENGINE_WORKER_SIZE" //number of workers processing executions in parallel
const PROCESSOR_NAME = "EFLOW_PROCESSOR_NAME"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == ENGINE_CHECK_INTERVAL {
		return "5m" // scan active executions every 5 minutes
	}
	if settingKey == ENGINE_REPAIR_INTERVAL {
		return "60s"
	}
	if settingKey == ENGINE_REPAIR_AFTER_MINUTES {
		return "5"
	}
	if settingKey == ENGINE_BATCH_SIZE {
		return "50"
	}
	if settingKey == ENGINE_WORKER_SIZE {
		return "5"
	}
	if settingKey == ENGINE_SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./engageflow.db"
	}
	return ""
}
