package logger

import (
	"sync"
	"testing"
)

func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{name: "empty progress", current: 0, total: 10, width: 10, expected: "[          ] 0/10 (0%)"},
		{name: "half progress", current: 5, total: 10, width: 10, expected: "[=====     ] 5/10 (50%)"},
		{name: "full progress", current: 10, total: 10, width: 10, expected: "[==========] 10/10 (100%)"},
		{name: "quarter progress", current: 2, total: 8, width: 8, expected: "[==      ] 2/8 (25%)"},
		{name: "overflow clamps", current: 12, total: 10, width: 4, expected: "[====] 12/10 (100%)"},
		{name: "zero total", current: 0, total: 0, width: 4, expected: "[    ] 0/0 (0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProgressBarDefaultsAndPrefix(t *testing.T) {
	pb := NewProgressBar(4, 0, false)
	pb.SetPrefix("tasks ")
	pb.Increment()

	if got := pb.Render(); got != "tasks [==        ] 1/4 (25%)" {
		t.Errorf("Render() = %q", got)
	}
	if pb.Current() != 1 || pb.Total() != 4 || pb.Percentage() != 25 {
		t.Errorf("unexpected state: current=%d total=%d perc=%d", pb.Current(), pb.Total(), pb.Percentage())
	}
}

func TestProgressBarConcurrentIncrement(t *testing.T) {
	pb := NewProgressBar(100, 10, false)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pb.Increment()
			_ = pb.Render()
		}()
	}
	wg.Wait()

	if pb.Current() != 100 {
		t.Errorf("Current() = %d, want 100", pb.Current())
	}
}
