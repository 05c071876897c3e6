/*
SyncLog records anchors set by successful synchronizations on fixed size record storage.
Content is cached in mem for fast reading.

Log is for diagnostics only. Anchor is never restored from it because monotonic readings
are meaningless after reboot
*/

package truetime

import (
	"fmt"
	"sync"

	"github.com/hjkoskel/fixregsto"
)

const (
	DEFAULTDBFILE_SYNCLOG = "anchors.sync"
	SYNCLOG_MEMRECORDS    = 256
	SYNCLOG_MAXFILES      = 16
)

type SyncLog struct {
	mu  sync.Mutex
	sto fixregsto.FixRegSto //Store here
	mem AnchorList
}

//NewSyncLog restores earlier content from storage
func NewSyncLog(storage fixregsto.FixRegSto) (*SyncLog, error) {
	raw, readErr := storage.ReadAll()
	if readErr != nil {
		return nil, fmt.Errorf("error on ReadAll on NewSyncLog err=%v", readErr.Error())
	}
	mem, errParse := ParseAnchorList(raw)
	if errParse != nil {
		return nil, errParse
	}
	return &SyncLog{sto: storage, mem: mem.Latest(SYNCLOG_MEMRECORDS)}, nil
}

//NewMemSyncLog keeps latest anchors in memory loop
func NewMemSyncLog() (*SyncLog, error) {
	memconf := fixregsto.MemloopConf{
		RecordSize: RECORDSIZE_ANCHOR,
		MaxRecords: SYNCLOG_MEMRECORDS,
	}
	mem, err := memconf.InitMemLoop()
	if err != nil {
		return nil, err
	}
	return NewSyncLog(&mem)
}

//NewFileSyncLog writes anchors under dir
func NewFileSyncLog(dir string) (*SyncLog, error) {
	conf := fixregsto.FileStorageConf{
		Name:         DEFAULTDBFILE_SYNCLOG,
		RecordSize:   RECORDSIZE_ANCHOR,
		MaxFileCount: SYNCLOG_MAXFILES,
		FileMaxSize:  RECORDSIZE_ANCHOR * 128,
		Path:         dir,
	}
	sto, err := conf.InitFileStorage()
	if err != nil {
		return nil, fmt.Errorf("sync log init error %v", err)
	}
	return NewSyncLog(&sto)
}

//Insert appends anchor. Nil log ignores
func (p *SyncLog) Insert(a Anchor) error {
	if p == nil {
		return nil
	}
	binarr, errbin := a.ToBinary()
	if errbin != nil {
		return fmt.Errorf("Insert error, binary coding %#v failed %v", a, errbin)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, errWrite := p.sto.Write(binarr)
	if errWrite != nil {
		return errWrite
	}
	p.mem = append(p.mem, a)
	if SYNCLOG_MEMRECORDS < len(p.mem) {
		p.mem = p.mem.Latest(SYNCLOG_MEMRECORDS)
	}
	return nil
}

//Latest returns copy of latest n anchors
func (p *SyncLog) Latest(n int) AnchorList {
	if p == nil {
		return AnchorList{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lst := p.mem.Latest(n)
	result := make(AnchorList, len(lst))
	copy(result, lst)
	return result
}

//All cached anchors, including ones read from storage at start
func (p *SyncLog) All() AnchorList {
	if p == nil {
		return AnchorList{}
	}
	return p.Latest(SYNCLOG_MEMRECORDS)
}

func (p *SyncLog) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mem.Len()
}
