package truetime

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const TESTEPOCH0 = MsEpoch(1658334406982)

func TestAnchorProject(t *testing.T) {
	dut := Anchor{Epoch: 5_000_000, Elapsed: 1000}
	assert.Equal(t, MsEpoch(5_000_500), dut.Project(1500))
	assert.Equal(t, MsEpoch(5_000_000), dut.Project(1000))

	rebased := dut.Rebase(4000)
	assert.Equal(t, Anchor{Epoch: 5_003_000, Elapsed: 4000}, rebased)
	assert.Equal(t, dut.Project(9000), rebased.Project(9000))

	assert.Equal(t, MsEpoch(3), MsEpoch(10).Diff(7))
	assert.Equal(t, MsEpoch(3), MsEpoch(7).Diff(10))
}

func TestAnchorBin(t *testing.T) {
	dut := Anchor{Epoch: TESTEPOCH0, Elapsed: 123456}
	bin, errBin := dut.ToBinary()
	require.Nil(t, errBin)
	assert.Equal(t, RECORDSIZE_ANCHOR, len(bin))

	parsed, errParse := ParseAnchor(bin)
	require.Nil(t, errParse)
	assert.Equal(t, dut, parsed)

	_, errShort := ParseAnchor(bin[1:])
	assert.NotNil(t, errShort)

	bad := Anchor{Epoch: 5, Elapsed: 1}
	_, errBad := bad.ToBinary()
	assert.NotNil(t, errBad)
}

func TestClockAnchor(t *testing.T) {
	var dut ClockAnchor
	assert.False(t, dut.IsSynced())
	_, ok := dut.Get()
	assert.False(t, ok)
	assert.False(t, dut.Rebase(10))

	assert.NotNil(t, dut.Set(0, 10)) //sentinel refused
	assert.False(t, dut.IsSynced())

	require.Nil(t, dut.Set(5_000_000, 1000))
	assert.True(t, dut.IsSynced())
	assert.Equal(t, MsEpoch(5_000_500), dut.Project(1500))

	assert.True(t, dut.Rebase(2000))
	a, ok := dut.Get()
	assert.True(t, ok)
	assert.Equal(t, Anchor{Epoch: 5_001_000, Elapsed: 2000}, a)
}

// Writers always store pairs where Epoch-Elapsed is constant. Torn read would break that
func TestClockAnchorNoTornRead(t *testing.T) {
	var dut ClockAnchor
	require.Nil(t, dut.Set(TESTEPOCH0, 0))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := MsElapsed(1); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = dut.Set(TESTEPOCH0+MsEpoch(i), i)
		}
	}()

	for i := 0; i < 100000; i++ {
		a, _ := dut.Get()
		if a.Epoch-MsEpoch(a.Elapsed) != TESTEPOCH0 {
			t.Fatalf("torn anchor %#v", a)
		}
	}
	close(stop)
	wg.Wait()
}

func TestAnchorListDrift(t *testing.T) {
	lst := AnchorList{
		{Epoch: TESTEPOCH0, Elapsed: 1000},
		{Epoch: TESTEPOCH0 + 10010, Elapsed: 11000}, //10ms more than monotonic says
		{Epoch: TESTEPOCH0 + 20000, Elapsed: 21000},
	}
	assert.Equal(t, []MsEpoch{10, -10}, lst.Drift())
	assert.Equal(t, 0, len(lst[:1].Drift()))
	assert.Equal(t, lst[1:], lst.Latest(2))
	assert.Equal(t, lst, lst.Latest(10))
	assert.Equal(t, 0, lst.Latest(0).Len())
	assert.Equal(t, 0, lst.Latest(-1).Len())

	//Reboot between anchors, elapsed starts again from small value
	rebooted := AnchorList{
		{Epoch: TESTEPOCH0, Elapsed: 50000},
		{Epoch: TESTEPOCH0 + 3600000, Elapsed: 2000},
		{Epoch: TESTEPOCH0 + 3610005, Elapsed: 12000},
	}
	assert.Equal(t, []MsEpoch{5}, rebooted.Drift())

	raw := []byte{}
	for _, a := range lst {
		bin, err := a.ToBinary()
		require.Nil(t, err)
		raw = append(raw, bin...)
	}
	parsed, errParse := ParseAnchorList(raw)
	require.Nil(t, errParse)
	assert.Equal(t, lst, parsed)
	assert.Equal(t, 3, strings.Count(lst.String(), "\n"))

	_, errLen := ParseAnchorList(raw[:20])
	assert.NotNil(t, errLen)
}
