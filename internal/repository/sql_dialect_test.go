package repository

import (
	"os"
	"testing"

	"github.com/engageflow/engageflow/internal/config"
)

func TestPlaceholder(t *testing.T) {
	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_POSTGRES)
	defer os.Unsetenv(config.DATABASE_TYPE)
	if got := placeholder(2); got != "$2" {
		t.Errorf("Expected $2 for postgres, got %s", got)
	}

	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_MYSQL)
	if got := placeholder(2); got != "?" {
		t.Errorf("Expected ? for mysql, got %s", got)
	}

	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)
	if got := placeholder(2); got != "?" {
		t.Errorf("Expected ? for sqlite, got %s", got)
	}
}

func TestBoolLiteral(t *testing.T) {
	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)
	defer os.Unsetenv(config.DATABASE_TYPE)
	if boolLiteral(true) != "1" || boolLiteral(false) != "0" {
		t.Error("SQLite booleans must render as 1/0")
	}

	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_POSTGRES)
	if boolLiteral(true) != "TRUE" || boolLiteral(false) != "FALSE" {
		t.Error("Postgres booleans must render as TRUE/FALSE")
	}
}

func TestSupportsReturning(t *testing.T) {
	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_POSTGRES)
	defer os.Unsetenv(config.DATABASE_TYPE)
	if !supportsReturning() {
		t.Error("Postgres supports RETURNING")
	}

	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_MYSQL)
	if supportsReturning() {
		t.Error("MySQL does not support RETURNING")
	}
}
