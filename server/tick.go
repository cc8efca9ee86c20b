package server

import "time"

// StartTicker 启动房间的 Tick 循环（单线程推进房间状态）
func (r *Room) StartTicker() {
	r.tickerOnce.Do(func() {
		r.running.Store(true)
		go r.loop()
	})
}

func (r *Room) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Step()
		}
	}
}

// Step 执行一个 Tick：处理加入/离开/diff → 广播增量 → 心跳与快照
func (r *Room) Step() {
	start := time.Now()
	seq := r.BeginTick()
	r.ProcessEvents()
	r.BroadcastDelta(seq)
	r.housekeeping(seq)
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}
