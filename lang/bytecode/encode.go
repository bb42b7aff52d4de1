package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// Version is incremented to force recompilation of saved artifacts, the
// same convention as the teacher's compiler.Version.
const Version = 0

var magic = [4]byte{'Z', 'I', 'N', 'C'}

// BuildID is carried in an artifact's metadata purely for provenance
// tracking across a build pipeline (§2 DOMAIN STACK); it never affects
// decode correctness or execution, so a zero BuildID is valid and common.
type BuildID = uuid.UUID

// NewBuildID mints a fresh build identifier for an artifact being encoded.
func NewBuildID() BuildID { return uuid.New() }

// Encode serializes app into its binary artifact form (§6 "Bytecode
// artifact"). buildID may be uuid.Nil to omit a build identifier.
func Encode(app Application, buildID BuildID) ([]byte, error) {
	var body bytes.Buffer
	if err := encodeMetadata(&body, app, buildID); err != nil {
		return nil, fmt.Errorf("bytecode: encode metadata: %w", err)
	}
	metadataBytes := body.Bytes()

	var code bytes.Buffer
	for _, insn := range app.programOf().Instructions {
		if err := encodeInstruction(&code, insn); err != nil {
			return nil, fmt.Errorf("bytecode: encode instruction: %w", err)
		}
	}
	codeBytes := code.Bytes()

	var out bytes.Buffer
	out.Write(magic[:])
	writeU16(&out, Version)
	out.WriteByte(byte(VariantOf(app)))
	writeU32(&out, uint32(len(metadataBytes)))
	out.Write(metadataBytes)
	writeU32(&out, uint32(len(codeBytes)))
	out.Write(codeBytes)

	checksum := crc32.ChecksumIEEE(out.Bytes())
	writeU32(&out, checksum)

	return out.Bytes(), nil
}

func encodeMetadata(w *bytes.Buffer, app Application, buildID BuildID) error {
	writeBytesField(w, buildID[:])
	switch a := app.(type) {
	case *Circuit:
		writeString(w, a.Name)
		writeUvarint(w, uint64(a.EntryAddress))
		writeType(w, a.InputType)
		writeType(w, a.OutputType)
		writeUnitTests(w, a.UnitTests)
	case *Contract:
		writeString(w, a.Name)
		fields := slices.Clone(a.StorageLayout)
		slices.SortFunc(fields, func(x, y StorageField) int {
			if x.Name < y.Name {
				return -1
			} else if x.Name > y.Name {
				return 1
			}
			return 0
		})
		writeUvarint(w, uint64(len(fields)))
		for _, f := range fields {
			writeString(w, f.Name)
			writeType(w, f.Type)
			writeBool(w, f.IsPublic)
			writeBool(w, f.IsImmutable)
		}
		methods := slices.Clone(a.Methods)
		slices.SortFunc(methods, func(x, y ContractMethod) int {
			if x.Name < y.Name {
				return -1
			} else if x.Name > y.Name {
				return 1
			}
			return 0
		})
		writeUvarint(w, uint64(len(methods)))
		for _, m := range methods {
			writeString(w, m.Name)
			writeUvarint(w, uint64(m.Address))
			writeType(w, m.InputType)
			writeType(w, m.OutputType)
			writeBool(w, m.IsMutable)
		}
		writeUnitTests(w, a.UnitTests)
	case *Library:
		writeString(w, a.Name)
		writeUnitTests(w, a.UnitTests)
	default:
		return fmt.Errorf("unknown application variant %T", app)
	}
	return nil
}

func writeUnitTests(w *bytes.Buffer, tests []UnitTest) {
	sorted := slices.Clone(tests)
	slices.SortFunc(sorted, func(x, y UnitTest) int {
		if x.Name < y.Name {
			return -1
		} else if x.Name > y.Name {
			return 1
		}
		return 0
	})
	writeUvarint(w, uint64(len(sorted)))
	for _, t := range sorted {
		writeString(w, t.Name)
		writeUvarint(w, uint64(t.Address))
		writeBool(w, t.ShouldPanic)
		writeBool(w, t.IsIgnored)
	}
}

func writeType(w *bytes.Buffer, t Type) {
	w.WriteByte(byte(t.Tag))
	switch t.Tag {
	case TagInt:
		writeBool(w, t.Signed)
		writeUvarint(w, uint64(t.Bits))
	case TagArray:
		writeUvarint(w, uint64(t.Size))
		writeType(w, *t.Element)
	case TagTuple:
		writeUvarint(w, uint64(len(t.Elements)))
		for _, e := range t.Elements {
			writeType(w, e)
		}
	case TagStruct, TagContract:
		writeString(w, t.Name)
		writeUvarint(w, uint64(len(t.Fields)))
		for _, f := range t.Fields {
			writeString(w, f.Name)
			writeType(w, f.Type)
		}
	case TagEnum:
		writeString(w, t.Name)
		writeUvarint(w, uint64(len(t.Variants)))
		for _, v := range t.Variants {
			writeString(w, v.Name)
			writeVarint(w, big.NewInt(v.Value))
		}
	}
}

func encodeInstruction(w *bytes.Buffer, insn Instruction) error {
	op := insn.Opcode()
	w.WriteByte(byte(op))
	switch v := insn.(type) {
	case Push:
		writeType(w, v.Type)
		if v.Type.Tag == TagBool {
			writeBool(w, v.Value)
		} else {
			writeVarint(w, v.Int)
		}
	case Load:
		writeUvarint(w, uint64(v.Address))
		writeUvarint(w, uint64(v.Size))
	case Store:
		writeUvarint(w, uint64(v.Address))
		writeUvarint(w, uint64(v.Size))
	case LoadByIndex:
		writeUvarint(w, uint64(v.Address))
		writeUvarint(w, uint64(v.ElemSize))
		writeUvarint(w, uint64(v.TotalSize))
	case StoreByIndex:
		writeUvarint(w, uint64(v.Address))
		writeUvarint(w, uint64(v.ElemSize))
		writeUvarint(w, uint64(v.TotalSize))
	case Cast:
		writeType(w, v.Target)
	case LoopBegin:
		writeUvarint(w, uint64(v.Iterations))
	case LoopEnd:
		writeUvarint(w, uint64(v.Target))
	case *Call:
		if v.Address == nil {
			return fmt.Errorf("call instruction has unresolved (nil) address")
		}
		writeUvarint(w, uint64(*v.Address))
		writeUvarint(w, uint64(v.InputSize))
	case Return:
		writeUvarint(w, uint64(v.OutputSize))
	case CallLibrary:
		w.WriteByte(byte(v.ID))
		writeUvarint(w, uint64(v.InputSize))
		writeUvarint(w, uint64(v.OutputSize))
	case StorageInit:
		writeString(w, v.Project)
		writeUvarint(w, uint64(len(v.FieldTypes)))
		for _, t := range v.FieldTypes {
			writeType(w, t)
		}
	case StorageLoad:
		writeUvarint(w, uint64(v.Index))
		writeUvarint(w, uint64(v.Size))
	case StorageStore:
		writeUvarint(w, uint64(v.Index))
		writeUvarint(w, uint64(v.Size))
	case Dbg:
		writeString(w, v.Format)
		writeUvarint(w, uint64(len(v.ArgTypes)))
		for _, t := range v.ArgTypes {
			writeType(w, t)
		}
	case Assert:
		writeString(w, v.Message)
	case Exit:
		writeUvarint(w, uint64(v.OutputSize))
	// Add, Sub, Mul, Div, Rem, Neg, Eq, Ne, Lt, Le, Gt, Ge, And, Or, Xor,
	// Not, If, Else, EndIf, SetUnconstrained, UnsetUnconstrained all carry
	// no argument beyond their opcode tag.
	default:
	}
	return nil
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeBool(w *bytes.Buffer, v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func writeString(w *bytes.Buffer, s string) {
	writeUvarint(w, uint64(len(s)))
	w.WriteString(s)
}

func writeBytesField(w *bytes.Buffer, b []byte) {
	writeUvarint(w, uint64(len(b)))
	w.Write(b)
}

// writeUvarint encodes x as an unsigned LEB128 (7 data bits per byte,
// continuation bit on the MSB — §6 "Instruction encoding"), the same scheme
// as the teacher's varArgLen/encodeInsn.
func writeUvarint(w *bytes.Buffer, x uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], x)
	w.Write(buf[:n])
}

// writeVarint encodes a BigInt constant as a uvarint byte count, the
// big-endian bytes of its magnitude, and a trailing sign byte (true for a
// negative value). It is not a LEB128 or zig-zag encoding of the value.
func writeVarint(w *bytes.Buffer, v *big.Int) {
	if v == nil {
		v = big.NewInt(0)
	}
	// Values here are bounded by the 248-bit max field/integer width (§3),
	// well beyond a plain int64, so the magnitude is written at its own
	// byte length rather than in a machine-word range.
	sign := v.Sign()
	mag := new(big.Int).Abs(v)
	bs := mag.Bytes()
	writeUvarint(w, uint64(len(bs)))
	w.Write(bs)
	writeBool(w, sign < 0)
}
