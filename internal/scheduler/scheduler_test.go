package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeMaintainer struct {
	indexed    int
	pruned     int
	reindexErr error
	pruneCalls []time.Duration
}

func (f *fakeMaintainer) Reindex() (int, error) {
	return f.indexed, f.reindexErr
}

func (f *fakeMaintainer) PrunePreviews(maxAge time.Duration) (int, error) {
	f.pruneCalls = append(f.pruneCalls, maxAge)
	return f.pruned, nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Schedule != "@daily" {
		t.Errorf("expected Schedule to be @daily, got %q", cfg.Schedule)
	}

	if cfg.PreviewMaxAge != time.Hour {
		t.Errorf("expected PreviewMaxAge to be 1h, got %v", cfg.PreviewMaxAge)
	}

	if cfg.RunOnStart {
		t.Error("expected RunOnStart to be false")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()

	WithSchedule("0 3 * * *")(cfg)
	if cfg.Schedule != "0 3 * * *" {
		t.Errorf("expected Schedule to be set, got %q", cfg.Schedule)
	}

	WithPreviewMaxAge(30 * time.Minute)(cfg)
	if cfg.PreviewMaxAge != 30*time.Minute {
		t.Errorf("expected PreviewMaxAge to be 30m, got %v", cfg.PreviewMaxAge)
	}

	WithRunOnStart(true)(cfg)
	if !cfg.RunOnStart {
		t.Error("expected RunOnStart to be true")
	}
}

func TestNew_Schedule(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"descriptor", "@daily", false},
		{"hourly descriptor", "@every 6h", false},
		{"five fields", "30 2 * * 1-5", false},
		{"garbage", "every night", true},
		{"too many fields", "0 0 3 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeMaintainer{}, WithSchedule(tt.spec))
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNext(t *testing.T) {
	s, err := New(&fakeMaintainer{}, WithSchedule("CRON_TZ=UTC 0 3 * * *"))
	if err != nil {
		t.Fatal(err)
	}
	from := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	want := time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestRunOnce(t *testing.T) {
	m := &fakeMaintainer{indexed: 12, pruned: 3}
	s, err := New(m, WithPreviewMaxAge(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Indexed != 12 || stats.PreviewsPruned != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if len(m.pruneCalls) != 1 || m.pruneCalls[0] != 2*time.Hour {
		t.Errorf("prune calls = %v", m.pruneCalls)
	}
	if stats.EndTime.Before(stats.StartTime) {
		t.Error("EndTime before StartTime")
	}
}

func TestRunOnce_PruningDisabled(t *testing.T) {
	m := &fakeMaintainer{}
	s, err := New(m, WithPreviewMaxAge(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(m.pruneCalls) != 0 {
		t.Errorf("expected no prune calls, got %d", len(m.pruneCalls))
	}
}

func TestRunOnce_ReindexError(t *testing.T) {
	boom := errors.New("disk full")
	s, err := New(&fakeMaintainer{reindexErr: boom})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("RunOnce() error = %v, want %v", err, boom)
	}
}

func TestRun_StopsOnSignal(t *testing.T) {
	m := &fakeMaintainer{}
	s, err := New(m, WithRunOnStart(true))
	if err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.Run(stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stop")
	}
	if len(m.pruneCalls) != 1 {
		t.Errorf("expected the start cycle to run once, got %d", len(m.pruneCalls))
	}
}
