package timesync

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// SntpExchange queries single NTP host over UDP
type SntpExchange struct {
	elapsed ElapsedFunc
	now     func() time.Time
	query   func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
}

func NewSntpExchange(elapsed ElapsedFunc) (*SntpExchange, error) {
	if elapsed == nil {
		return nil, fmt.Errorf("nil elapsed clock")
	}
	return &SntpExchange{
		elapsed: elapsed,
		now:     time.Now,
		query:   ntp.QueryWithOptions,
	}, nil
}

// Exchange gets network time. Offset from response is applied on local wall clock read at
// receipt so local clock error does not leak into result
func (p *SntpExchange) Exchange(host string, timeout time.Duration) (Exchange, error) {
	resp, err := p.query(host, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return Exchange{}, err
	}
	wall := p.now()
	el := p.elapsed()
	if errValid := resp.Validate(); errValid != nil {
		return Exchange{}, fmt.Errorf("%w: %v", ErrInvalidResponse, errValid)
	}
	return Exchange{
		NtpMillis:     wall.Add(resp.ClockOffset).UnixMilli(),
		ElapsedMillis: el,
	}, nil
}
