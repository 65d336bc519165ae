package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestConnectBackOff_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := connectBackOff(ctx)
	b.Reset()
	assert.Equal(t, time.Duration(-1), b.NextBackOff())
}

func TestPing_UsesUnderlyingPool(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	assert.NoError(t, err)

	assert.NoError(t, ping(context.Background(), db))
	assert.NoError(t, ClosePostgres(nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingOrClose_ClosesPoolWhenPingFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	assert.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	assert.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	err = pingOrClose(context.Background(), db)
	assert.EqualError(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingOrClose_KeepsPoolWhenPingSucceeds(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	assert.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	assert.NoError(t, err)

	mock.ExpectPing()

	assert.NoError(t, pingOrClose(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
