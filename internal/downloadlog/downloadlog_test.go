package downloadlog_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/downloadlog"
)

func TestRecordInsertsOneRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := downloadlog.OpenDB(db)

	occurredAt := time.Now()
	mock.ExpectExec(`INSERT INTO transfers`).
		WithArgs(uint64(42), "download", "report.pdf", int64(1024), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = log.Record(downloadlog.Entry{
		WindowHandle: 42,
		Direction:    downloadlog.Download,
		Filename:     "report.pdf",
		SizeBytes:    1024,
		OccurredAt:   occurredAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForWindowReturnsRowsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := downloadlog.OpenDB(db)

	rows := sqlmock.NewRows([]string{"direction", "filename", "size_bytes", "occurred_at"}).
		AddRow("upload", "photo.png", 2048, "2026-01-02T03:04:05Z").
		AddRow("download", "report.pdf", 1024, "2026-01-02T03:05:00Z")

	mock.ExpectQuery(`SELECT .* FROM transfers WHERE window_handle`).
		WithArgs(uint64(42)).
		WillReturnRows(rows)

	entries, err := log.ListForWindow(42)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, downloadlog.Upload, entries[0].Direction)
	require.Equal(t, "photo.png", entries[0].Filename)
	require.Equal(t, int64(2048), entries[0].SizeBytes)
	require.Equal(t, downloadlog.Download, entries[1].Direction)
	require.NoError(t, mock.ExpectationsWereMet())
}
