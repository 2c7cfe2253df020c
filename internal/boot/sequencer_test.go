package boot

import (
	"errors"
	"testing"
)

func TestSequencer_PhaseTransitions(t *testing.T) {
	s := New()

	if got := s.Phase(); got != PhaseLoading {
		t.Errorf("Phase = %v, want loading", got)
	}

	var during Phase
	s.OnReady("probe", func() error {
		during = s.Phase()
		return nil
	})

	if err := s.Fire(); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}

	if during != PhaseReady {
		t.Errorf("phase during initializer = %v, want ready", during)
	}
	if got := s.Phase(); got != PhaseSteady {
		t.Errorf("Phase after Fire = %v, want steady", got)
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseLoading, "loading"},
		{PhaseReady, "ready"},
		{PhaseSteady, "steady"},
		{Phase(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestSequencer_RunsInRegistrationOrder(t *testing.T) {
	s := New()

	var order []string
	for _, name := range []string{"scroll", "theme", "modal", "forms"} {
		name := name
		s.OnReady(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	if err := s.Fire(); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}

	want := []string{"scroll", "theme", "modal", "forms"}
	if len(order) != len(want) {
		t.Fatalf("ran %d initializers, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("initializer %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestSequencer_FireIdempotent(t *testing.T) {
	s := New()

	var count int
	s.OnReady("m", func() error {
		count++
		return nil
	})

	if err := s.Fire(); err != nil {
		t.Fatalf("first Fire() error: %v", err)
	}
	if err := s.Fire(); !errors.Is(err, ErrAlreadyFired) {
		t.Errorf("second Fire() = %v, want ErrAlreadyFired", err)
	}
	if count != 1 {
		t.Errorf("initializer ran %d times, want 1", count)
	}
}

func TestSequencer_OnReadyAfterFire(t *testing.T) {
	s := New()
	s.Fire()

	err := s.OnReady("late", func() error { return nil })
	if !errors.Is(err, ErrAlreadyFired) {
		t.Errorf("OnReady after Fire = %v, want ErrAlreadyFired", err)
	}
	if got := s.Modules(); got != nil {
		t.Errorf("Modules() = %v, want nil", got)
	}
}

func TestSequencer_OnReadyNil(t *testing.T) {
	s := New()

	if err := s.OnReady("m", nil); !errors.Is(err, ErrNilInitializer) {
		t.Errorf("OnReady(nil) = %v, want ErrNilInitializer", err)
	}
}

func TestSequencer_GuardFailure(t *testing.T) {
	guardErr := errors.New("no runtime")
	s := New(WithGuard(func() error { return guardErr }))

	var ran bool
	s.OnReady("m", func() error {
		ran = true
		return nil
	})

	err := s.Fire()
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Fire() = %v, want ErrPrecondition", err)
	}
	if !errors.Is(err, guardErr) {
		t.Errorf("Fire() = %v, does not wrap guard error", err)
	}
	if ran {
		t.Error("initializer ran despite failed guard")
	}
	if got := s.Phase(); got != PhaseLoading {
		t.Errorf("Phase after failed guard = %v, want loading", got)
	}
}

func TestSequencer_IsolatesFailures(t *testing.T) {
	var failures []string
	s := New(WithErrorHandler(func(module string, err error) {
		failures = append(failures, module)
	}))

	var order []string
	s.OnReady("ok1", func() error {
		order = append(order, "ok1")
		return nil
	})
	s.OnReady("err", func() error {
		order = append(order, "err")
		return errors.New("broken")
	})
	s.OnReady("panics", func() error {
		order = append(order, "panics")
		panic("boom")
	})
	s.OnReady("ok2", func() error {
		order = append(order, "ok2")
		return nil
	})

	if err := s.Fire(); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}

	if len(order) != 4 {
		t.Errorf("ran %d initializers, want 4 (failures must not halt the pass)", len(order))
	}
	if len(failures) != 2 || failures[0] != "err" || failures[1] != "panics" {
		t.Errorf("reported failures = %v, want [err panics]", failures)
	}
}

func TestSequencer_FatalHaltsPass(t *testing.T) {
	s := New()

	var ran []string
	s.OnReady("first", func() error {
		ran = append(ran, "first")
		return nil
	})
	s.OnReady("fatal", func() error {
		ran = append(ran, "fatal")
		return Fatal(errors.New("unrecoverable"))
	})
	s.OnReady("never", func() error {
		ran = append(ran, "never")
		return nil
	})

	err := s.Fire()
	if err == nil {
		t.Fatal("Fire() = nil, want fatal error")
	}
	var ie *InitError
	if !errors.As(err, &ie) || ie.Module != "fatal" {
		t.Errorf("Fire() = %v, want InitError for module fatal", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran %v, fatal failure must halt remaining initializers", ran)
	}
	if got := s.Phase(); got != PhaseSteady {
		t.Errorf("Phase after fatal = %v, want steady", got)
	}
}

func TestSequencer_Modules(t *testing.T) {
	s := New()

	if got := s.Modules(); got != nil {
		t.Errorf("Modules() = %v on empty sequencer, want nil", got)
	}

	s.OnReady("a", func() error { return nil })
	s.OnReady("b", func() error { return nil })

	got := s.Modules()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Modules() = %v, want [a b]", got)
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(errors.New("plain")) {
		t.Error("plain error reported fatal")
	}
	if !IsFatal(Fatal(errors.New("x"))) {
		t.Error("Fatal error not reported fatal")
	}
	if Fatal(nil) != nil {
		t.Error("Fatal(nil) != nil")
	}
}
