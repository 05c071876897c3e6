package timesync

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElapsed struct {
	now int64
}

func (p *fakeElapsed) read() int64 {
	return p.now
}

func TestNtpSyncEmptyServerList(t *testing.T) {
	el := fakeElapsed{}
	ex := ExchangerFunc(func(host string, timeout time.Duration) (Exchange, error) {
		return Exchange{}, nil
	})
	_, err := NewNtpSync(nil, time.Second, ex, el.read)
	assert.True(t, errors.Is(err, ErrInvalidServerList))

	_, err = NewNtpSync([]string{}, time.Second, ex, el.read)
	assert.True(t, errors.Is(err, ErrInvalidServerList))

	_, err = NewNtpSync([]string{"a", " "}, time.Second, ex, el.read)
	assert.True(t, errors.Is(err, ErrInvalidServerList))
}

func TestNtpSyncFailover(t *testing.T) {
	el := fakeElapsed{now: 1000}
	tried := []string{}
	ex := ExchangerFunc(func(host string, timeout time.Duration) (Exchange, error) {
		tried = append(tried, host)
		assert.Equal(t, 250*time.Millisecond, timeout)
		switch host {
		case "A":
			return Exchange{}, fmt.Errorf("i/o timeout")
		case "B":
			return Exchange{NtpMillis: 5_000_000, ElapsedMillis: 1000}, nil
		}
		return Exchange{NtpMillis: 1, ElapsedMillis: 1}, nil
	})

	dut, err := NewNtpSync([]string{"A", "B", "C"}, 250*time.Millisecond, ex, el.read)
	require.Nil(t, err)

	failed := []string{}
	dut.ServerFailed = func(host string, err error) { failed = append(failed, host) }

	el.now = 1500 //Time passes between exchange and re-expression
	result, errSync := dut.Sync()
	require.Nil(t, errSync)
	assert.Equal(t, int64(5_000_500), result)
	assert.Equal(t, []string{"A", "B"}, tried)
	assert.Equal(t, []string{"A"}, failed)
}

func TestNtpSyncAllFail(t *testing.T) {
	el := fakeElapsed{now: 1}
	count := 0
	ex := ExchangerFunc(func(host string, timeout time.Duration) (Exchange, error) {
		count++
		return Exchange{}, fmt.Errorf("no route to %s", host)
	})
	dut, err := NewNtpSync([]string{"A", "B", "C"}, time.Second, ex, el.read)
	require.Nil(t, err)

	_, errSync := dut.Sync()
	assert.True(t, errors.Is(errSync, ErrAllServersUnreachable))
	assert.Contains(t, errSync.Error(), "no route to B")
	assert.Equal(t, 3, count)
}

func TestNtpSyncMaxRequests(t *testing.T) {
	el := fakeElapsed{}
	tried := []string{}
	ex := ExchangerFunc(func(host string, timeout time.Duration) (Exchange, error) {
		tried = append(tried, host)
		return Exchange{}, fmt.Errorf("down")
	})
	dut, err := NewDefaultNtpSync(ex, el.read)
	require.Nil(t, err)
	assert.Equal(t, DEFAULTQUERYTIMEOUT, dut.Timeout())

	_, errSync := dut.Sync()
	assert.True(t, errors.Is(errSync, ErrAllServersUnreachable))
	assert.Equal(t, DefaultNtpServers[:DEFAULTMAXREQUESTCOUNT], tried)

	tried = tried[:0]
	dut.SetMaxRequests(0)
	_, _ = dut.Sync()
	assert.Equal(t, len(DefaultNtpServers), len(tried))
}

func TestNtpSyncServerListIsCopied(t *testing.T) {
	el := fakeElapsed{}
	servers := []string{"A", "B"}
	ex := ExchangerFunc(func(host string, timeout time.Duration) (Exchange, error) {
		return Exchange{NtpMillis: 10, ElapsedMillis: 0}, nil
	})
	dut, err := NewNtpSync(servers, 0, ex, el.read)
	require.Nil(t, err)
	servers[0] = "X"
	assert.Equal(t, []string{"A", "B"}, dut.Servers())
	assert.Equal(t, DEFAULTQUERYTIMEOUT, dut.Timeout())
}
