package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtraFieldsToleratesMalformedJSON(t *testing.T) {
	require.Empty(t, Record{Extra: "{not json"}.ExtraFields())
	require.Empty(t, Record{Extra: ""}.ExtraFields())
	require.Empty(t, Record{Extra: "null"}.ExtraFields())
	require.Equal(t, "x", Record{Extra: `{"body":"x"}`}.ExtraFields()["body"])
}

func TestGroupNumber(t *testing.T) {
	require.Equal(t, 0, Record{GroupID: UngroupedID}.GroupNumber())
	require.Equal(t, 0, Record{GroupID: "abc"}.GroupNumber())
	require.Equal(t, 42, Record{GroupID: "42"}.GroupNumber())
}

func TestReadKey(t *testing.T) {
	require.Equal(t, "42", Record{NotificationID: 9, GroupID: "42"}.ReadKey())
	require.Equal(t, "9", Record{NotificationID: 9, GroupID: UngroupedID}.ReadKey())
	require.Equal(t, "9", Record{NotificationID: 9}.ReadKey())
}

func TestRecordValidate(t *testing.T) {
	require.ErrorIs(t, Record{Timestamp: 1}.Validate(), ErrInvalidNotificationID)
	require.Error(t, Record{NotificationID: 1}.Validate())
	require.Error(t, Record{NotificationID: 1, Timestamp: 1, NotificationType: 9}.Validate())
	require.NoError(t, Record{NotificationID: -10, Timestamp: 1, NotificationType: TypeReply}.Validate())
}

func TestStampAndViewOf(t *testing.T) {
	base := Content{ID: 7, Title: "t", Extras: map[string]string{"k": "v"}}
	stamped := base.Stamp(1234)

	require.Len(t, base.Extras, 1)
	view := ViewOf("io.lokal.app", stamped)
	require.Equal(t, 7, view.ID)
	require.Equal(t, int64(1234), view.Timestamp)
	require.Equal(t, 7, view.RefreshKey)
	require.Equal(t, "io.lokal.app", view.PackageName)
}

func TestSortNewestFirstIsStable(t *testing.T) {
	views := []ActiveNotification{
		{ID: 1, Timestamp: 10},
		{ID: 2, Timestamp: 30},
		{ID: 3, Timestamp: 10},
		{ID: 4, Timestamp: 20},
	}
	sorted := SortNewestFirst(views)

	ids := make([]int, len(sorted))
	for i, v := range sorted {
		ids[i] = v.ID
	}
	require.Equal(t, []int{2, 4, 1, 3}, ids)
	require.Equal(t, 1, views[0].ID)

	reversed := Reverse(sorted)
	require.Equal(t, 3, reversed[0].ID)
	require.Equal(t, 2, reversed[3].ID)
}

func TestFilterByPackage(t *testing.T) {
	views := []ActiveNotification{
		{ID: 1, PackageName: "io.lokal.app"},
		{ID: 2, PackageName: "com.other"},
		{ID: 3, PackageName: "io.lokal.app"},
	}
	got := FilterByPackage(views, "io.lokal.app")
	require.Len(t, got, 2)
	require.Equal(t, 3, got[1].ID)
}

func TestRecordsSince(t *testing.T) {
	records := []Record{{NotificationID: 1, Timestamp: 100}, {NotificationID: 2, Timestamp: 200}}
	require.Len(t, RecordsSince(records, 150), 1)
	require.Len(t, RecordsSince(records, 100), 2)
}
