package vm_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm"
	"github.com/zinc-lang/zinc/vm/constraint"
)

func u32() bytecode.Type { return bytecode.Type{Tag: bytecode.TagInt, Bits: 32, Signed: false} }

// addProgram computes a+b for two u32 arguments loaded from the entry frame,
// the smallest program exercising Load/Add/Exit together.
func addProgram() *bytecode.Program {
	return &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Load{Address: 0, Size: 1},
			bytecode.Load{Address: 1, Size: 1},
			bytecode.Add{},
			bytecode.Exit{OutputSize: 1},
		},
	}
}

func TestMachineRunAddProgram(t *testing.T) {
	cs := constraint.NewSystem()
	m := vm.NewMachine(cs, nil)
	// Seed the entry frame's data stack directly via Push+Store would be more
	// realistic, but the simplest route into a fresh data frame for this test
	// is to run a tiny prologue that stores two pushed constants first.
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Push{Type: u32(), Int: big.NewInt(7)},
			bytecode.Store{Address: 0, Size: 1},
			bytecode.Push{Type: u32(), Int: big.NewInt(35)},
			bytecode.Store{Address: 1, Size: 1},
			bytecode.Load{Address: 0, Size: 1},
			bytecode.Load{Address: 1, Size: 1},
			bytecode.Add{},
			bytecode.Exit{OutputSize: 1},
		},
	}
	out, err := m.Run(context.Background(), prog, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	got := new(big.Int)
	out[0].Value.BigInt(got)
	require.Equal(t, big.NewInt(42), got)
	require.NoError(t, cs.Verify())
}

func TestMachineRunAssertFailureReportsRunError(t *testing.T) {
	cs := constraint.NewSystem()
	m := vm.NewMachine(cs, nil)
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Push{Type: bytecode.Type{Tag: bytecode.TagBool}, Value: false},
			bytecode.Assert{Message: "always fails"},
			bytecode.Exit{OutputSize: 0},
		},
	}
	_, err := m.Run(context.Background(), prog, 0)
	require.Error(t, err)
	var runErr *vm.RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, vm.KindAssertionError, runErr.Kind)
}

func TestRunCircuitEndToEnd(t *testing.T) {
	circuit := &bytecode.Circuit{
		Name:         "add",
		EntryAddress: 0,
		InputType:    bytecode.Type{Tag: bytecode.TagTuple, Elements: []bytecode.Type{u32(), u32()}},
		OutputType:   u32(),
		Program:      addProgram(),
	}

	witness, err := json.Marshal([]any{"7", "35"})
	require.NoError(t, err)

	out, err := vm.RunCircuit(context.Background(), circuit, witness)
	require.NoError(t, err)

	var result string
	require.NoError(t, json.Unmarshal(out, &result))
	require.Equal(t, "42", result)
}

func TestRunTestsPassAndShouldPanic(t *testing.T) {
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			// test 0: trivially passes
			bytecode.Exit{OutputSize: 0},
			// test 1: asserts false, expected to panic
			bytecode.Push{Type: bytecode.Type{Tag: bytecode.TagBool}, Value: false},
			bytecode.Assert{Message: "boom"},
			bytecode.Exit{OutputSize: 0},
		},
	}
	circuit := &bytecode.Circuit{
		Name: "t",
		UnitTests: []bytecode.UnitTest{
			{Name: "ok", Address: 0},
			{Name: "panics", Address: 1, ShouldPanic: true},
		},
		Program: prog,
	}

	outcomes, err := vm.RunTests(context.Background(), circuit)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.True(t, outcomes[0].Passed)
	require.True(t, outcomes[1].Passed)
}
