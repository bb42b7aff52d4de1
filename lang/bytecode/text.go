package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders app as human-readable pseudo-assembly, the analogue
// of the teacher's compiler.Dasm pretty-printer (lang/compiler/asm.go) kept
// for debugging and golden tests (original_source/.../zinc-tester carries
// the same kind of textual dump of its compiled bytecode).
func Disassemble(app Application) string {
	var b strings.Builder
	switch a := app.(type) {
	case *Circuit:
		fmt.Fprintf(&b, "circuit: %s\n", a.Name)
		fmt.Fprintf(&b, "\tentry: %03d\n", a.EntryAddress)
		fmt.Fprintf(&b, "\tinput: %s\n", a.InputType)
		fmt.Fprintf(&b, "\toutput: %s\n", a.OutputType)
		writeUnitTestsText(&b, a.UnitTests)
	case *Contract:
		fmt.Fprintf(&b, "contract: %s\n", a.Name)
		if len(a.StorageLayout) > 0 {
			b.WriteString("\tstorage:\n")
			for _, f := range a.StorageLayout {
				flags := ""
				if f.IsPublic {
					flags += " pub"
				}
				if f.IsImmutable {
					flags += " const"
				}
				fmt.Fprintf(&b, "\t\t%s: %s%s\n", f.Name, f.Type, flags)
			}
		}
		if len(a.Methods) > 0 {
			b.WriteString("\tmethods:\n")
			for _, m := range a.Methods {
				mut := ""
				if m.IsMutable {
					mut = " mut"
				}
				fmt.Fprintf(&b, "\t\t%s%s @%03d (%s) -> %s\n", m.Name, mut, m.Address, m.InputType, m.OutputType)
			}
		}
		writeUnitTestsText(&b, a.UnitTests)
	case *Library:
		fmt.Fprintf(&b, "library: %s\n", a.Name)
		writeUnitTestsText(&b, a.UnitTests)
	}

	b.WriteString("code:\n")
	for i, insn := range app.programOf().Instructions {
		fmt.Fprintf(&b, "\t%03d\t%s\n", i, disassembleOne(insn))
	}
	return b.String()
}

func writeUnitTestsText(b *strings.Builder, tests []UnitTest) {
	if len(tests) == 0 {
		return
	}
	b.WriteString("\ttests:\n")
	for _, t := range tests {
		flags := ""
		if t.ShouldPanic {
			flags += " should_panic"
		}
		if t.IsIgnored {
			flags += " ignore"
		}
		fmt.Fprintf(b, "\t\t%s @%03d%s\n", t.Name, t.Address, flags)
	}
}

func disassembleOne(insn Instruction) string {
	op := insn.Opcode()
	switch v := insn.(type) {
	case Push:
		if v.Type.Tag == TagBool {
			return fmt.Sprintf("%s %v %s", op, v.Value, v.Type)
		}
		return fmt.Sprintf("%s %s %s", op, v.Int, v.Type)
	case Load:
		return fmt.Sprintf("%s %d %d", op, v.Address, v.Size)
	case Store:
		return fmt.Sprintf("%s %d %d", op, v.Address, v.Size)
	case LoadByIndex:
		return fmt.Sprintf("%s %d %d %d", op, v.Address, v.ElemSize, v.TotalSize)
	case StoreByIndex:
		return fmt.Sprintf("%s %d %d %d", op, v.Address, v.ElemSize, v.TotalSize)
	case Cast:
		return fmt.Sprintf("%s %s", op, v.Target)
	case LoopBegin:
		return fmt.Sprintf("%s %d", op, v.Iterations)
	case LoopEnd:
		return fmt.Sprintf("%s %d", op, v.Target)
	case *Call:
		addr := -1
		if v.Address != nil {
			addr = *v.Address
		}
		return fmt.Sprintf("%s %d %d", op, addr, v.InputSize)
	case Return:
		return fmt.Sprintf("%s %d", op, v.OutputSize)
	case CallLibrary:
		return fmt.Sprintf("%s %s %d %d", op, v.ID, v.InputSize, v.OutputSize)
	case StorageInit:
		return fmt.Sprintf("%s %q %d fields", op, v.Project, len(v.FieldTypes))
	case StorageLoad:
		return fmt.Sprintf("%s %d %d", op, v.Index, v.Size)
	case StorageStore:
		return fmt.Sprintf("%s %d %d", op, v.Index, v.Size)
	case Dbg:
		return fmt.Sprintf("%s %q %d args", op, v.Format, len(v.ArgTypes))
	case Assert:
		if v.Message == "" {
			return op.String()
		}
		return fmt.Sprintf("%s %q", op, v.Message)
	case Exit:
		return fmt.Sprintf("%s %d", op, v.OutputSize)
	default:
		return op.String()
	}
}
