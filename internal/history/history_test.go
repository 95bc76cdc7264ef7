package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewLog(db)

	mock.ExpectExec("INSERT INTO operation_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = log.Record(context.Background(), Event{
		SessionID: "sess-1",
		UserID:    "asha@example.com",
		Operation: "book",
		Status:    "confirmed",
		Detail:    json.RawMessage(`{"appointment_id":"abc"}`),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRecordFillsIDAndTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewLog(db)

	mock.ExpectExec("INSERT INTO operation_events").
		WithArgs(sqlmock.AnyArg(), "sess-1", sqlmock.AnyArg(), "cancel", "cancelled", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = log.Record(context.Background(), Event{
		SessionID: "sess-1",
		Operation: "cancel",
		Status:    "cancelled",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewLog(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "session_id", "user_id", "operation", "status", "detail", "created_at"}).
		AddRow("ev-2", "sess-1", "asha@example.com", "cancel", "cancelled", nil, now).
		AddRow("ev-1", "sess-1", "asha@example.com", "book", "confirmed", []byte(`{"k":"v"}`), now.Add(-time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM operation_events").
		WithArgs("sess-1", 10).
		WillReturnRows(rows)

	events, err := log.RecentBySession(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "cancel", events[0].Operation)
	assert.Equal(t, json.RawMessage(`{"k":"v"}`), events[1].Detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilLogIsNoOp(t *testing.T) {
	var log *Log
	assert.NoError(t, log.Record(context.Background(), Event{SessionID: "s", Operation: "book", Status: "confirmed"}))

	events, err := log.RecentBySession(context.Background(), "s", 10)
	assert.NoError(t, err)
	assert.Nil(t, events)
}
