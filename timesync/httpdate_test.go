package timesync

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dateServer(date string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if date == "" {
			w.Header()["Date"] = nil //Suppress automatic header
		} else {
			w.Header().Set("Date", date)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestHttpDateSync(t *testing.T) {
	srv := dateServer("Wed, 20 Jul 2022 16:26:46 GMT")
	defer srv.Close()

	dut, err := NewHttpDateSync(srv.URL, time.Second)
	require.Nil(t, err)
	result, errSync := dut.Sync()
	require.Nil(t, errSync)
	assert.Equal(t, testWall.UnixMilli(), result)
}

func TestHttpDateSyncBackup(t *testing.T) {
	primary := dateServer("")
	defer primary.Close()
	backup := dateServer("Wed, 20 Jul 2022 16:26:46 GMT")
	defer backup.Close()

	dut, err := NewHttpDateSync(primary.URL, time.Second)
	require.Nil(t, err)
	dut.backupURL = backup.URL

	result, errSync := dut.Sync()
	require.Nil(t, errSync)
	assert.Equal(t, testWall.UnixMilli(), result)
}

func TestHttpDateSyncFail(t *testing.T) {
	primary := dateServer("")
	defer primary.Close()

	dut, err := NewHttpDateSync(primary.URL, time.Second)
	require.Nil(t, err)
	dut.backupURL = primary.URL

	_, errSync := dut.Sync()
	assert.ErrorIs(t, errSync, ErrNoUsableDate)

	_, errEmpty := NewHttpDateSync("", time.Second)
	assert.NotNil(t, errEmpty)
}
