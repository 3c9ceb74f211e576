package refstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/omnilogix/freight-bridge/internal/refstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestGetShipmentHeader(t *testing.T) {
	t.Run("returns header for confirmed shipment", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		rows := sqlmock.NewRows([]string{"order_no", "bill_to", "housebill", "ship_quote"}).
			AddRow("4657842", "17773", "HB-99812", "S")
		mock.ExpectPrepare("SELECT order_no, bill_to, housebill, ship_quote").
			ExpectQuery().WithArgs("4657842").WillReturnRows(rows)

		// when
		header, err := store.GetShipmentHeader(context.Background(), "4657842")

		// then
		require.NoError(t, err)
		assert.Equal(t, "17773", header.BillTo)
		assert.Equal(t, "HB-99812", header.Housebill)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when only a quote exists", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		mock.ExpectPrepare("SELECT order_no, bill_to, housebill, ship_quote").
			ExpectQuery().WithArgs("5550001").WillReturnError(sql.ErrNoRows)

		// when
		header, err := store.GetShipmentHeader(context.Background(), "5550001")

		// then
		require.ErrorIs(t, err, refstore.ErrNotFound)
		assert.Nil(t, header)
	})
}

func TestGetCustomerProfile(t *testing.T) {
	t.Run("decodes milestone configuration", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		rows := sqlmock.NewRows([]string{"bill_to", "name", "transmit_cost", "allowed_milestones", "milestone_mapping", "document_api_key"}).
			AddRow("17773", "Acme Logistics", true, []byte(`["PUP","DEL"]`), []byte(`{"DEL":"DCF"}`), "key-123")
		mock.ExpectPrepare("SELECT bill_to, name, transmit_cost").
			ExpectQuery().WithArgs("17773").WillReturnRows(rows)

		// when
		profile, err := store.GetCustomerProfile(context.Background(), "17773")

		// then
		require.NoError(t, err)
		assert.True(t, profile.TransmitCost)
		assert.True(t, profile.MilestoneAllowed("DEL"))
		assert.False(t, profile.MilestoneAllowed("OSD"))
		assert.Equal(t, "DCF", profile.MilestoneMapping["DEL"])
	})

	t.Run("returns ErrNotFound for unknown bill-to", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		mock.ExpectPrepare("SELECT bill_to, name, transmit_cost").
			ExpectQuery().WithArgs("00000").WillReturnError(sql.ErrNoRows)

		// when
		profile, err := store.GetCustomerProfile(context.Background(), "00000")

		// then
		require.ErrorIs(t, err, refstore.ErrNotFound)
		assert.Nil(t, profile)
	})

	t.Run("filters bill-to numbers off the allow list without querying", func(t *testing.T) {
		// given
		db, _ := newMockDB(t)
		store := refstore.New(db, "17773")

		// when
		profile, err := store.GetCustomerProfile(context.Background(), "99999")

		// then
		require.ErrorIs(t, err, refstore.ErrNotFound)
		assert.Nil(t, profile)
	})
}

func TestGetShipmentReference(t *testing.T) {
	t.Run("returns bill-to scoped shipment id", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		rows := sqlmock.NewRows([]string{"order_no", "customer_type", "ref_type", "reference_no"}).
			AddRow("4657842", "B", "SID", "S02167324")
		mock.ExpectPrepare("SELECT order_no, customer_type, ref_type, reference_no").
			ExpectQuery().WithArgs("4657842", "B", "SID").WillReturnRows(rows)

		// when
		ref, err := store.GetShipmentReference(context.Background(), "4657842", "B", "SID")

		// then
		require.NoError(t, err)
		assert.Equal(t, "S02167324", ref.ReferenceNo)
	})
}

func TestListReferences(t *testing.T) {
	t.Run("returns continuation token when page is full", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		rows := sqlmock.NewRows([]string{"order_no", "customer_type", "ref_type", "reference_no"}).
			AddRow("4657842", "B", "PO", "PO-1").
			AddRow("4657842", "B", "SID", "S02167324")
		mock.ExpectPrepare("SELECT order_no, customer_type, ref_type, reference_no").
			ExpectQuery().WithArgs("4657842", "", "", 2).WillReturnRows(rows)

		// when
		refs, next, err := store.ListReferences(context.Background(), "4657842", 2, "")

		// then
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.NotEmpty(t, next)
		cursor, err := refstore.DecodePageToken(next)
		require.NoError(t, err)
		assert.Equal(t, "SID", cursor.LastRefType)
		assert.Equal(t, "S02167324", cursor.LastReferenceNo)
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		// given
		db, _ := newMockDB(t)
		store := refstore.New(db)

		// when
		_, _, err := store.ListReferences(context.Background(), "4657842", 2, "not-base64!!")

		// then
		assert.Error(t, err)
	})
}

func TestFindTrackingNote(t *testing.T) {
	t.Run("returns most recent matching note", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		enteredAt := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"order_no", "note", "entered_at"}).
			AddRow("4657842", "technical name: cw-shipment-file.xml", enteredAt)
		mock.ExpectPrepare("SELECT order_no, note, entered_at").
			ExpectQuery().WithArgs("4657842", "technical name").WillReturnRows(rows)

		// when
		note, err := store.FindTrackingNote(context.Background(), "4657842", "technical name")

		// then
		require.NoError(t, err)
		assert.Contains(t, note.Note, "cw-shipment-file.xml")
		assert.Equal(t, enteredAt, note.EnteredAt)
	})

	t.Run("returns ErrNotFound when nothing matches", func(t *testing.T) {
		// given
		db, mock := newMockDB(t)
		store := refstore.New(db)
		mock.ExpectPrepare("SELECT order_no, note, entered_at").
			ExpectQuery().WithArgs("4657842", "technical name").WillReturnError(sql.ErrNoRows)

		// when
		note, err := store.FindTrackingNote(context.Background(), "4657842", "technical name")

		// then
		require.ErrorIs(t, err, refstore.ErrNotFound)
		assert.Nil(t, note)
	})
}
