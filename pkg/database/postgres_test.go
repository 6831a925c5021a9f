package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lab-assessment-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:           "db",
		Port:           5432,
		User:           "lab",
		Password:       `p@ss wo'rd`,
		Name:           "lab_assessment",
		ConnectTimeout: 1500 * time.Millisecond,
	})

	assert.Equal(t, `host=db port=5432 user=lab password='p@ss wo\'rd' dbname=lab_assessment sslmode=disable application_name=lab-assessment-api connect_timeout=2`, dsn)
}

func TestDSNOmitsEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "lab", SSLMode: "require"})

	assert.NotContains(t, dsn, "password=")
	assert.NotContains(t, dsn, "connect_timeout=")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestConfigurePool(t *testing.T) {
	db, _ := newMock(t)
	configurePool(db, config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute})

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
