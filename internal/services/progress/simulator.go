package progress

import (
	"math/rand"
	"sync"
	"time"
)

// 等待动画模拟器。
//
// 真实进度在响应到达前是未知的，这里只负责“看起来在动”：
// - running 期间每个 tick 随机推进，封顶 90（剩下的 10 留给真实完成）
// - 响应到达（无论成败）后强制 100，短暂停留再回到 idle
// 该状态与真实结果完全解耦，只在开始/结束两个事件点同步。
//
// 定时器契约：每个周期的 tick goroutine 必须被取消且只取消一次
// （自然完成、提前销毁都会收敛到 cancelLocked），否则反复提交会堆积并发定时器。

// State 是模拟器状态机的状态。
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateCompleting State = "completing"
)

// Snapshot 是给轮询接口的一份只读拷贝。
type Snapshot struct {
	State          State `json:"state"`
	Percent        int   `json:"percent"`
	SourcesScanned int   `json:"sources_scanned"`
	ChunksCompared int   `json:"chunks_compared"`
}

// Simulator 是单个提交槽位的进度模拟器。
type Simulator struct {
	tick time.Duration
	hold time.Duration

	mu      sync.Mutex
	state   State
	percent int
	sources int
	chunks  int
	stop    chan struct{} // 当前周期的取消信号；nil 表示没有活跃周期
	cycle   int           // 周期代数，保护 completing->idle 的延迟回调不串台
}

// New 返回默认节奏（500ms tick / 500ms 完成停留）的模拟器。
func New() *Simulator {
	return NewWithPace(500*time.Millisecond, 500*time.Millisecond)
}

// NewWithPace 允许测试注入更快的节奏。
func NewWithPace(tick, hold time.Duration) *Simulator {
	return &Simulator{tick: tick, hold: hold, state: StateIdle}
}

// Start 开始一个新周期：计数清零、进入 running、启动 tick。
// 上一个周期若还活着（异常路径），先取消再开。
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.state = StateRunning
	s.percent = 0
	s.sources = 0
	s.chunks = 0
	s.stop = make(chan struct{})
	go s.run(s.stop)
}

func (s *Simulator) run(stop chan struct{}) {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.advance()
		}
	}
}

func (s *Simulator) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.percent += 5 + rand.Intn(12)
	if s.percent > 90 {
		s.percent = 90
	}
	s.sources += rand.Intn(3)
	s.chunks += 1 + rand.Intn(8)
}

// Complete 在响应到达时调用（成功失败都要调）：
// 取消 tick，强制 100，停留 hold 后回 idle。非 running 状态下为 no-op。
func (s *Simulator) Complete() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.state = StateCompleting
	s.percent = 100
	gen := s.cycle
	s.mu.Unlock()

	time.AfterFunc(s.hold, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// 停留期间如果又开了新周期，这个回调作废
		if s.cycle == gen && s.state == StateCompleting {
			s.state = StateIdle
			s.percent = 0
		}
	})
}

// Stop 是销毁路径：立即取消 tick 并回到 idle。可重复调用。
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.state = StateIdle
	s.percent = 0
}

// cancelLocked 取消当前周期的 tick goroutine。
// stop 置 nil 保证 close 恰好一次；周期代数递增让历史回调失效。
func (s *Simulator) cancelLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.cycle++
}

// Snapshot 返回当前状态的拷贝（供 /api/progress 轮询）。
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:          s.state,
		Percent:        s.percent,
		SourcesScanned: s.sources,
		ChunksCompared: s.chunks,
	}
}
