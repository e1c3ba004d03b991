package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	deliverycontext "identity/internal/delivery/context"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGormSlogLogger_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := newGormSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)), false)

	ctx := deliverycontext.WithRequestID(context.Background(), "req-42")
	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("syntax error"))

	assert.Contains(t, buf.String(), `"msg":"Account store query failed"`)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestGormSlogLogger_ExpectedOutcomesAreQuiet(t *testing.T) {
	var buf bytes.Buffer
	l := newGormSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)), false)
	sql := func() (string, int64) { return "SELECT * FROM users", 0 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now(), sql, errors.New("UNIQUE constraint failed: users.email"))
	l.Trace(context.Background(), time.Now(), sql, nil)

	assert.Empty(t, buf.String())
}

func TestGormSlogLogger_DropsBoundValues(t *testing.T) {
	l := &gormSlogLogger{}

	sql, params := l.ParamsFilter(context.Background(), "INSERT INTO users (password_hash) VALUES (?)", "$2a$10$secret")

	assert.Equal(t, "INSERT INTO users (password_hash) VALUES (?)", sql)
	assert.Nil(t, params)
}
