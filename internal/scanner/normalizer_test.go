package scanner

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recorder collects forwarded tokens in arrival order.
type recorder struct {
	mu     sync.Mutex
	tokens []string
}

func (r *recorder) forward(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tokens))
	copy(out, r.tokens)
	return out
}

func fastOptions() Options {
	return Options{
		DebounceWindow: 10 * time.Millisecond,
		DedupWindow:    50 * time.Millisecond,
		RearmDelay:     time.Millisecond,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4800016641503\n", "4800016641503"},
		{"  ABC123  ", "ABC123"},
		{"AB\x00C\x1B123", "ABC123"},
		{"\r\n\t", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTerminatorForwardsImmediately(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.TextChanged("4800016641503\n")

	if got := rec.got(); len(got) != 1 || got[0] != "4800016641503" {
		t.Errorf("expected immediate forward, got %v", got)
	}
}

func TestShortTerminatedTokenDropped(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.TextChanged("7\n")

	if got := rec.got(); len(got) != 0 {
		t.Errorf("expected single-character token dropped, got %v", got)
	}
}

func TestDebounceForwardsAfterQuietPeriod(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	// Keystroke-style growth: each event supersedes the armed timer.
	n.TextChanged("4")
	n.TextChanged("48")
	n.TextChanged("480001")

	if got := rec.got(); len(got) != 0 {
		t.Fatalf("expected nothing before the quiet period, got %v", got)
	}

	time.Sleep(40 * time.Millisecond)

	if got := rec.got(); len(got) != 1 || got[0] != "480001" {
		t.Errorf("expected one forward of the final buffer, got %v", got)
	}
}

func TestShortBufferedTokenDropped(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.TextChanged("ab")
	time.Sleep(40 * time.Millisecond)

	if got := rec.got(); len(got) != 0 {
		t.Errorf("expected two-character buffered token dropped, got %v", got)
	}
}

func TestTerminatorCancelsPendingDebounce(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.TextChanged("480001")
	n.TextChanged("480001664\n")
	time.Sleep(40 * time.Millisecond)

	if got := rec.got(); len(got) != 1 || got[0] != "480001664" {
		t.Errorf("expected only the terminated token, got %v", got)
	}
}

func TestIdenticalTokenDedupedWithinWindow(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.CodeDecoded("AAA111")
	n.CodeDecoded("AAA111")

	if got := rec.got(); len(got) != 1 {
		t.Errorf("expected duplicate within window collapsed, got %v", got)
	}
}

func TestIdenticalTokenAcceptedAfterWindow(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.CodeDecoded("AAA111")
	time.Sleep(70 * time.Millisecond)
	n.CodeDecoded("AAA111")

	if got := rec.got(); len(got) != 2 {
		t.Errorf("expected re-acceptance after the window, got %v", got)
	}
}

func TestDistinctTokensBothForwardedInOrder(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	// Two different products scanned back to back must both land,
	// in arrival order, even inside the dedup window.
	done := make(chan struct{})
	go func() {
		n.CodeDecoded("AAA111")
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	n.CodeDecoded("BBB222")
	<-done

	got := rec.got()
	if len(got) != 2 || got[0] != "AAA111" || got[1] != "BBB222" {
		t.Errorf("expected [AAA111 BBB222], got %v", got)
	}
}

func TestMixedSourcesShareDedup(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	// Keyboard wedge and camera decode of the same physical code.
	n.TextChanged("AAA111\n")
	n.CodeDecoded("AAA111")

	if got := rec.got(); len(got) != 1 {
		t.Errorf("expected cross-source dedup, got %v", got)
	}
}

func TestPanickingConsumerReleasesState(t *testing.T) {
	calls := 0
	n := New(func(token string) {
		calls++
		if calls == 1 {
			panic("consumer blew up")
		}
	}, fastOptions(), zap.NewNop())

	n.CodeDecoded("AAA111")

	if n.Processing() {
		t.Error("expected processing state released after panic")
	}

	// The normalizer stays usable for the next scan.
	n.CodeDecoded("BBB222")
	if calls != 2 {
		t.Errorf("expected second scan delivered, got %d calls", calls)
	}
}

func TestResetDropsBufferedInput(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	n.TextChanged("480001")
	n.Reset()
	time.Sleep(40 * time.Millisecond)

	if got := rec.got(); len(got) != 0 {
		t.Errorf("expected reset to cancel pending forward, got %v", got)
	}
}

func TestOnForwardedHookRuns(t *testing.T) {
	rec := &recorder{}
	n := New(rec.forward, fastOptions(), zap.NewNop())

	hooked := make(chan struct{}, 1)
	n.OnForwarded = func() { hooked <- struct{}{} }

	n.CodeDecoded("AAA111")

	select {
	case <-hooked:
	case <-time.After(100 * time.Millisecond):
		t.Error("expected OnForwarded to run after delivery")
	}
}
