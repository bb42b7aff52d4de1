package vm

import (
	"context"
	"errors"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
)

// TestOutcome records one `#[test]` function's result, the Go rendering of
// §6's `run_tests(application) -> [(test_name, outcome)]`.
type TestOutcome struct {
	Name    string
	Passed  bool
	Ignored bool
	Err     error
}

// RunTests runs every non-ignored unit test recorded on app, each against
// its own fresh constraint.System and Machine — tests never share state,
// mirroring §5's "no shared mutable state between independent VM instances".
// A `#[should_panic]` test passes exactly when its run aborts with
// AssertionError; any other outcome (including a different error kind)
// fails it.
func RunTests(ctx context.Context, app bytecode.Application) ([]TestOutcome, error) {
	var tests []bytecode.UnitTest
	var program *bytecode.Program

	switch a := app.(type) {
	case *bytecode.Circuit:
		tests, program = a.UnitTests, a.Program
	case *bytecode.Contract:
		tests, program = a.UnitTests, a.Program
	case *bytecode.Library:
		tests, program = a.UnitTests, a.Program
	default:
		return nil, newRunError(KindMalformedBytecode, "unknown application variant")
	}

	outcomes := make([]TestOutcome, len(tests))
	for i, t := range tests {
		if t.IsIgnored {
			outcomes[i] = TestOutcome{Name: t.Name, Ignored: true}
			continue
		}

		cs := constraint.NewSystem()
		m := NewMachine(cs, nil)
		_, err := m.Run(ctx, program, t.Address)

		var runErr *RunError
		panicked := errors.As(err, &runErr) && runErr.Kind == KindAssertionError

		switch {
		case err == nil && !t.ShouldPanic:
			outcomes[i] = TestOutcome{Name: t.Name, Passed: true}
		case panicked && t.ShouldPanic:
			outcomes[i] = TestOutcome{Name: t.Name, Passed: true}
		default:
			outcomes[i] = TestOutcome{Name: t.Name, Passed: false, Err: err}
		}
	}
	return outcomes, nil
}
