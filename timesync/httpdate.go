package timesync

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DEFAULTHTTPDATEURL    = "https://www.tencent.com/"
	DEFAULTHTTPDATEBACKUP = "https://www.baidu.com/"
)

/*
HttpDateSync reads Date header from HEAD request

Deprecated: Date has only second resolution and TLS validation fails when local clock is badly
wrong, exactly when correction is needed. Kept for compatibility
*/
type HttpDateSync struct {
	url       string
	backupURL string
	client    *http.Client
}

// NewHttpDateSync creates synchronizer with primary url and DEFAULTHTTPDATEBACKUP as backup
func NewHttpDateSync(url string, timeout time.Duration) (*HttpDateSync, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("url is not allowed to be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HttpDateSync{
		url:       url,
		backupURL: DEFAULTHTTPDATEBACKUP,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (p *HttpDateSync) Sync() (int64, error) {
	t, err := p.requestTime(p.url)
	if err != nil {
		log.Debug("http date failed", "url", p.url, "err", err)
	}
	if t <= 0 {
		t, err = p.requestTime(p.backupURL)
		if err != nil {
			log.Debug("http date failed", "url", p.backupURL, "err", err)
		}
	}
	if t <= 0 {
		return 0, fmt.Errorf("%w from %s or %s", ErrNoUsableDate, p.url, p.backupURL)
	}
	return t, nil
}

// requestTime returns 0 without error when server does not give date
func (p *HttpDateSync) requestTime(url string) (int64, error) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	raw := resp.Header.Get("Date")
	if raw == "" {
		return 0, nil
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	log.Trace("http date", "url", url, "date", raw)
	if t.UnixMilli() <= 0 {
		return 0, nil
	}
	return t.UnixMilli(), nil
}
