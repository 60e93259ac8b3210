package health

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// 后端连通性探测。
//
// 固定间隔对 {base}/health 发一次轻量 GET（启动时立刻先探一次）。
// 任意传输错误 / 超时 / 非 2xx 一律折算为 disconnected，不区分原因：
// 这个状态只驱动界面上的小圆点，探测失败从不作为用户错误弹出。

// Status 是探测结果的三态。
type Status string

const (
	StatusChecking     Status = "checking"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Poller 周期性探测后端 /health。
type Poller struct {
	baseURL  string
	interval time.Duration
	client   *http.Client

	mu          sync.Mutex
	status      Status
	lastProbeAt int64
}

// New 创建探测器。timeout 约束单次探测：探测挂死也不能拖慢下一轮，
// 所以 timeout 必须远小于 interval（默认 3s vs 30s）。
func New(baseURL string, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Poller{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		status:   StatusChecking,
	}
}

// Run 阻塞运行探测循环，直到 ctx 结束（组件销毁边界）。
// 通常 go p.Run(ctx) 启动；定时器随 ctx 一起释放，不会跨周期泄漏。
func (p *Poller) Run(ctx context.Context) {
	p.probe(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.probe(ctx)
		}
	}
}

func (p *Poller) probe(ctx context.Context) {
	status := StatusDisconnected

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err == nil {
		resp, doErr := p.client.Do(req)
		if doErr == nil {
			// 响应体内容无所谓，读掉以便连接复用
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				status = StatusConnected
			}
		}
	}

	p.mu.Lock()
	p.status = status
	p.lastProbeAt = time.Now().Unix()
	p.mu.Unlock()
}

// Status 返回最近一次探测的三态结果。
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LastProbeAt 返回最近一次探测完成的 Unix 秒；从未探测过时为 0。
func (p *Poller) LastProbeAt() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastProbeAt
}
