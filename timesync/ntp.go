package timesync

import (
	"fmt"
	"strings"
	"time"
)

// DefaultNtpServers are probed in this order by NewDefaultNtpSync
var DefaultNtpServers = []string{
	"ntp1.aliyun.com",
	"cn.pool.ntp.org",
	"cn.ntp.org.cn",
	"sg.pool.ntp.org",
	"tw.pool.ntp.org",
	"jp.pool.ntp.org",
	"hk.pool.ntp.org",
	"th.pool.ntp.org",
	"time.windows.com",
	"time.nist.gov",
	"time.apple.com",
	"time.asia.apple.com",
	"dns1.synet.edu.cn",
	"news.neu.edu.cn",
	"dns.sjtu.edu.cn",
	"dns2.synet.edu.cn",
	"ntp.glnet.edu.cn",
	"s2g.time.edu.cn",
	"ntp-sz.chl.la",
	"ntp.gwadar.cn",
	"3.asia.pool.ntp.org",
}

const (
	DEFAULTQUERYTIMEOUT    = time.Second
	DEFAULTMAXREQUESTCOUNT = 5
)

// NtpSync tries servers in list order and stops at first answer
type NtpSync struct {
	servers     []string
	timeout     time.Duration
	maxRequests int
	exchanger   Exchanger
	elapsed     ElapsedFunc

	// ServerFailed is called for each failed server. Optional, used for metrics
	ServerFailed func(host string, err error)
}

// NewNtpSync creates failover synchronizer. Server list is copied and can not be changed later
func NewNtpSync(servers []string, timeout time.Duration, exchanger Exchanger, elapsed ElapsedFunc) (*NtpSync, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("ntp synchronizer needs at least one server: %w", ErrInvalidServerList)
	}
	for i, s := range servers {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("server %v is empty: %w", i, ErrInvalidServerList)
		}
	}
	if exchanger == nil {
		return nil, fmt.Errorf("nil exchanger")
	}
	if elapsed == nil {
		return nil, fmt.Errorf("nil elapsed clock")
	}
	if timeout <= 0 {
		timeout = DEFAULTQUERYTIMEOUT
	}
	lst := make([]string, len(servers))
	copy(lst, servers)
	return &NtpSync{
		servers:     lst,
		timeout:     timeout,
		maxRequests: len(lst),
		exchanger:   exchanger,
		elapsed:     elapsed,
	}, nil
}

// NewDefaultNtpSync uses DefaultNtpServers but probes only first DEFAULTMAXREQUESTCOUNT of them
func NewDefaultNtpSync(exchanger Exchanger, elapsed ElapsedFunc) (*NtpSync, error) {
	result, err := NewNtpSync(DefaultNtpServers, DEFAULTQUERYTIMEOUT, exchanger, elapsed)
	if err != nil {
		return nil, err
	}
	result.SetMaxRequests(DEFAULTMAXREQUESTCOUNT)
	return result, nil
}

// SetMaxRequests limits how many servers from start of list are tried. 0 or too large means all
func (p *NtpSync) SetMaxRequests(n int) {
	if n <= 0 || len(p.servers) < n {
		n = len(p.servers)
	}
	p.maxRequests = n
}

// Servers returns copy of server list
func (p *NtpSync) Servers() []string {
	result := make([]string, len(p.servers))
	copy(result, p.servers)
	return result
}

func (p *NtpSync) Timeout() time.Duration {
	return p.timeout
}

// Sync re-expresses first successful exchange so it is valid at return time
func (p *NtpSync) Sync() (int64, error) {
	errList := []string{}
	for i, host := range p.servers[:p.maxRequests] {
		ex, err := p.exchanger.Exchange(host, p.timeout)
		if err != nil {
			log.Debug("ntp server failed", "index", i, "host", host, "err", err)
			errList = append(errList, fmt.Sprintf("server:%v name:%s error: %s", i, host, err))
			if p.ServerFailed != nil {
				p.ServerFailed(host, err)
			}
			continue
		}
		result := ex.NtpMillis + (p.elapsed() - ex.ElapsedMillis)
		log.Trace("ntp server answered", "host", host, "ntp", ex.NtpMillis, "result", result)
		return result, nil
	}
	return 0, fmt.Errorf("%w [%s]", ErrAllServersUnreachable, strings.Join(errList, ","))
}
