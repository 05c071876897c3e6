/*
Clock anchor.

Network time measured once and paired with monotonic reading taken at the same moment.
Current time is then solved from monotonic clock only, so later changes on wall clock do not matter
*/

package truetime

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

type MsEpoch int64
type MsElapsed int64

// RECORDSIZE_ANCHOR is binary size of Anchor
const RECORDSIZE_ANCHOR = 16

//Used for sanity check on stored anchors, year 1980
const EPOCH80S = 10 * 365 * 24 * 60 * 60 * 1000

// Anchor is measured epoch and monotonic reading when it was valid
type Anchor struct {
	Epoch   MsEpoch
	Elapsed MsElapsed
}

//Diff compares MsEpoch, returns always positive
func (p MsEpoch) Diff(ref MsEpoch) MsEpoch {
	if p < ref {
		return ref - p
	}
	return p - ref
}

//Seconds for debug purposes
func (p MsEpoch) Seconds() float64 {
	return float64(p) / 1000
}

//Project solves epoch at monotonic reading now
func (p Anchor) Project(now MsElapsed) MsEpoch {
	return p.Epoch + MsEpoch(now-p.Elapsed)
}

//Rebase keeps projected time same but moves reference point to now
func (p Anchor) Rebase(now MsElapsed) Anchor {
	return Anchor{Epoch: p.Project(now), Elapsed: now}
}

//IsSet anchor with zero epoch is the unset sentinel
func (p Anchor) IsSet() bool {
	return p.Epoch != 0
}

//ToBinary creates binary presentation for sync log
func (p *Anchor) ToBinary() ([]byte, error) {
	if p.Epoch < EPOCH80S {
		return nil, fmt.Errorf("ToBinary: epoch %v is not plausible", p.Epoch)
	}
	buf := new(bytes.Buffer)
	err := binary.Write(buf, binary.LittleEndian, p.Epoch)
	if err != nil {
		return nil, err
	}
	err = binary.Write(buf, binary.LittleEndian, p.Elapsed)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//ParseAnchor parses Anchor from binary format
func ParseAnchor(raw []byte) (Anchor, error) {
	if len(raw) != RECORDSIZE_ANCHOR {
		return Anchor{}, fmt.Errorf("invalid size %v for anchor", len(raw))
	}
	result := Anchor{
		Epoch:   MsEpoch(binary.LittleEndian.Uint64(raw[0:8])),
		Elapsed: MsElapsed(binary.LittleEndian.Uint64(raw[8:16])),
	}
	if result.Epoch < EPOCH80S { //Catch errors early but return result still
		return result, fmt.Errorf("ParseAnchor: epoch %v is not plausible", result.Epoch)
	}
	return result, nil
}

/*
ClockAnchor holds current anchor. Pair is swapped as one pointer so readers never see
epoch from one measurement and elapsed from another. Reads do not take locks
*/
type ClockAnchor struct {
	p atomic.Pointer[Anchor]
}

//Get returns snapshot. Second return is false before first Set
func (c *ClockAnchor) Get() (Anchor, bool) {
	a := c.p.Load()
	if a == nil {
		return Anchor{}, false
	}
	return *a, true
}

//Set replaces anchor. Unset sentinel is refused so anchor never goes back to unset
func (c *ClockAnchor) Set(epoch MsEpoch, elapsed MsElapsed) error {
	a := Anchor{Epoch: epoch, Elapsed: elapsed}
	if !a.IsSet() {
		return fmt.Errorf("refusing to set zero epoch anchor")
	}
	c.p.Store(&a)
	return nil
}

//IsSynced true after first Set
func (c *ClockAnchor) IsSynced() bool {
	return c.p.Load() != nil
}

//Project solves corrected time. Meaningless before first Set
func (c *ClockAnchor) Project(now MsElapsed) MsEpoch {
	a := c.p.Load()
	if a == nil {
		return 0
	}
	return a.Project(now)
}

//Rebase moves reference to now if anchor is still the same one it was at read. Returns false
//if nothing to rebase or newer anchor was set meanwhile
func (c *ClockAnchor) Rebase(now MsElapsed) bool {
	old := c.p.Load()
	if old == nil {
		return false
	}
	rebased := old.Rebase(now)
	return c.p.CompareAndSwap(old, &rebased)
}
