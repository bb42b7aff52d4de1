package bytecode

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math/big"

	"github.com/google/uuid"
)

// MalformedBytecodeError is the closed runtime error the VM host API
// surfaces for any decode failure (§4.7 "Failure model",
// §7 "Bytecode — ... surfaced to the embedder as MalformedBytecode").
type MalformedBytecodeError struct {
	Reason string
}

func (e *MalformedBytecodeError) Error() string {
	return fmt.Sprintf("malformed bytecode: %s", e.Reason)
}

func malformed(format string, args ...any) error {
	return &MalformedBytecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Decode parses a binary artifact produced by Encode, returning the
// Application and the build identifier embedded in its metadata (uuid.Nil
// if none was written).
func Decode(data []byte) (Application, BuildID, error) {
	d := &decoder{buf: data}

	var m [4]byte
	if !d.readExact(m[:]) || m != magic {
		return nil, uuid.Nil, malformed("bad magic header")
	}
	version, ok := d.readU16()
	if !ok {
		return nil, uuid.Nil, malformed("truncated version")
	}
	if version != Version {
		return nil, uuid.Nil, malformed("unsupported artifact version %d (want %d)", version, Version)
	}
	variantByte, ok := d.readByte()
	if !ok {
		return nil, uuid.Nil, malformed("truncated variant tag")
	}

	metaLen, ok := d.readU32()
	if !ok {
		return nil, uuid.Nil, malformed("truncated metadata length")
	}
	metaBytes, ok := d.readN(int(metaLen))
	if !ok {
		return nil, uuid.Nil, malformed("truncated metadata section")
	}

	codeLen, ok := d.readU32()
	if !ok {
		return nil, uuid.Nil, malformed("truncated instruction length")
	}
	codeBytes, ok := d.readN(int(codeLen))
	if !ok {
		return nil, uuid.Nil, malformed("truncated instruction section")
	}

	wantChecksum, ok := d.readU32()
	if ok {
		got := crc32.ChecksumIEEE(data[:len(data)-4])
		if wantChecksum != 0 && got != wantChecksum {
			return nil, uuid.Nil, malformed("checksum mismatch")
		}
	}

	md := &decoder{buf: metaBytes}
	buildBytes, ok := md.readBytesField()
	if !ok {
		return nil, uuid.Nil, malformed("truncated build id")
	}
	buildID := uuid.Nil
	if len(buildBytes) == 16 {
		buildID, _ = uuid.FromBytes(buildBytes)
	}

	program, err := decodeProgram(codeBytes)
	if err != nil {
		return nil, uuid.Nil, err
	}

	switch Variant(variantByte) {
	case VariantCircuit:
		c, err := decodeCircuit(md, program)
		return c, buildID, err
	case VariantContract:
		c, err := decodeContract(md, program)
		return c, buildID, err
	case VariantLibrary:
		l, err := decodeLibrary(md, program)
		return l, buildID, err
	default:
		return nil, uuid.Nil, malformed("unknown application variant tag %d", variantByte)
	}
}

func decodeCircuit(md *decoder, program *Program) (*Circuit, error) {
	name, ok := md.readString()
	if !ok {
		return nil, malformed("truncated circuit name")
	}
	entry, ok := md.readUvarint()
	if !ok {
		return nil, malformed("truncated circuit entry address")
	}
	inputType, err := md.readType()
	if err != nil {
		return nil, err
	}
	outputType, err := md.readType()
	if err != nil {
		return nil, err
	}
	tests, err := md.readUnitTests()
	if err != nil {
		return nil, err
	}
	return &Circuit{
		Name:         name,
		EntryAddress: int(entry),
		InputType:    inputType,
		OutputType:   outputType,
		UnitTests:    tests,
		Program:      program,
	}, nil
}

func decodeContract(md *decoder, program *Program) (*Contract, error) {
	name, ok := md.readString()
	if !ok {
		return nil, malformed("truncated contract name")
	}
	n, ok := md.readUvarint()
	if !ok {
		return nil, malformed("truncated storage field count")
	}
	fields := make([]StorageField, n)
	for i := range fields {
		fname, ok := md.readString()
		if !ok {
			return nil, malformed("truncated storage field name")
		}
		ft, err := md.readType()
		if err != nil {
			return nil, err
		}
		pub, ok := md.readBool()
		if !ok {
			return nil, malformed("truncated storage field is_public")
		}
		imm, ok := md.readBool()
		if !ok {
			return nil, malformed("truncated storage field is_immutable")
		}
		fields[i] = StorageField{Name: fname, Type: ft, IsPublic: pub, IsImmutable: imm}
	}
	mn, ok := md.readUvarint()
	if !ok {
		return nil, malformed("truncated method count")
	}
	methods := make([]ContractMethod, mn)
	for i := range methods {
		mname, ok := md.readString()
		if !ok {
			return nil, malformed("truncated method name")
		}
		addr, ok := md.readUvarint()
		if !ok {
			return nil, malformed("truncated method address")
		}
		in, err := md.readType()
		if err != nil {
			return nil, err
		}
		out, err := md.readType()
		if err != nil {
			return nil, err
		}
		mut, ok := md.readBool()
		if !ok {
			return nil, malformed("truncated method is_mutable")
		}
		methods[i] = ContractMethod{Name: mname, Address: int(addr), InputType: in, OutputType: out, IsMutable: mut}
	}
	tests, err := md.readUnitTests()
	if err != nil {
		return nil, err
	}
	return &Contract{Name: name, StorageLayout: fields, Methods: methods, UnitTests: tests, Program: program}, nil
}

func decodeLibrary(md *decoder, program *Program) (*Library, error) {
	name, ok := md.readString()
	if !ok {
		return nil, malformed("truncated library name")
	}
	tests, err := md.readUnitTests()
	if err != nil {
		return nil, err
	}
	return &Library{Name: name, UnitTests: tests, Program: program}, nil
}

func decodeProgram(code []byte) (*Program, error) {
	d := &decoder{buf: code}
	var insns []Instruction
	for d.pos < len(d.buf) {
		opByte, ok := d.readByte()
		if !ok {
			return nil, malformed("truncated opcode at offset %d", d.pos)
		}
		insn, err := decodeInstruction(d, Opcode(opByte))
		if err != nil {
			return nil, err
		}
		insns = append(insns, insn)
	}
	return &Program{Instructions: insns}, nil
}

func decodeInstruction(d *decoder, op Opcode) (Instruction, error) {
	switch op {
	case OpEq:
		return Eq{}, nil
	case OpNe:
		return Ne{}, nil
	case OpLt:
		return Lt{}, nil
	case OpLe:
		return Le{}, nil
	case OpGt:
		return Gt{}, nil
	case OpGe:
		return Ge{}, nil
	case OpAdd:
		return Add{}, nil
	case OpSub:
		return Sub{}, nil
	case OpMul:
		return Mul{}, nil
	case OpDiv:
		return Div{}, nil
	case OpRem:
		return Rem{}, nil
	case OpNeg:
		return Neg{}, nil
	case OpAnd:
		return And{}, nil
	case OpOr:
		return Or{}, nil
	case OpXor:
		return Xor{}, nil
	case OpNot:
		return Not{}, nil
	case OpPop:
		return Pop{}, nil
	case OpIf:
		return If{}, nil
	case OpElse:
		return Else{}, nil
	case OpEndIf:
		return EndIf{}, nil
	case OpAssert:
		msg, ok := d.readString()
		if !ok {
			return nil, malformed("truncated assert message")
		}
		return Assert{Message: msg}, nil
	case OpExit:
		n, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated exit output size")
		}
		return Exit{OutputSize: int(n)}, nil
	case OpPush:
		t, err := d.readType()
		if err != nil {
			return nil, err
		}
		if t.Tag == TagBool {
			v, ok := d.readBool()
			if !ok {
				return nil, malformed("truncated push boolean value")
			}
			return Push{Type: t, Value: v}, nil
		}
		v, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		return Push{Type: t, Int: v}, nil
	case OpLoad:
		addr, size, err := d.readTwoUvarint("load")
		if err != nil {
			return nil, err
		}
		return Load{Address: addr, Size: size}, nil
	case OpStore:
		addr, size, err := d.readTwoUvarint("store")
		if err != nil {
			return nil, err
		}
		return Store{Address: addr, Size: size}, nil
	case OpLoadByIndex:
		addr, elem, total, err := d.readThreeUvarint("loadbyindex")
		if err != nil {
			return nil, err
		}
		return LoadByIndex{Address: addr, ElemSize: elem, TotalSize: total}, nil
	case OpStoreByIndex:
		addr, elem, total, err := d.readThreeUvarint("storebyindex")
		if err != nil {
			return nil, err
		}
		return StoreByIndex{Address: addr, ElemSize: elem, TotalSize: total}, nil
	case OpCast:
		t, err := d.readType()
		if err != nil {
			return nil, err
		}
		return Cast{Target: t}, nil
	case OpLoopBegin:
		n, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated loopbegin iterations")
		}
		return LoopBegin{Iterations: int(n)}, nil
	case OpLoopEnd:
		n, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated loopend target")
		}
		return LoopEnd{Target: int(n)}, nil
	case OpCall:
		addr, size, err := d.readTwoUvarint("call")
		if err != nil {
			return nil, err
		}
		a := addr
		return &Call{Address: &a, InputSize: size}, nil
	case OpReturn:
		n, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated return output size")
		}
		return Return{OutputSize: int(n)}, nil
	case OpCallLibrary:
		idByte, ok := d.readByte()
		if !ok {
			return nil, malformed("truncated calllibrary id")
		}
		in, out, err := d.readTwoUvarint("calllibrary")
		if err != nil {
			return nil, err
		}
		return CallLibrary{ID: LibraryID(idByte), InputSize: in, OutputSize: out}, nil
	case OpStorageInit:
		project, ok := d.readString()
		if !ok {
			return nil, malformed("truncated storageinit project")
		}
		n, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated storageinit field count")
		}
		fts := make([]Type, n)
		for i := range fts {
			t, err := d.readType()
			if err != nil {
				return nil, err
			}
			fts[i] = t
		}
		return StorageInit{Project: project, FieldTypes: fts}, nil
	case OpStorageLoad:
		idx, size, err := d.readTwoUvarint("storageload")
		if err != nil {
			return nil, err
		}
		return StorageLoad{Index: idx, Size: size}, nil
	case OpStorageStore:
		idx, size, err := d.readTwoUvarint("storagestore")
		if err != nil {
			return nil, err
		}
		return StorageStore{Index: idx, Size: size}, nil
	case OpSetUnconstrained:
		return SetUnconstrained{}, nil
	case OpUnsetUnconstrained:
		return UnsetUnconstrained{}, nil
	case OpDbg:
		format, ok := d.readString()
		if !ok {
			return nil, malformed("truncated dbg format")
		}
		n, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated dbg arg count")
		}
		ats := make([]Type, n)
		for i := range ats {
			t, err := d.readType()
			if err != nil {
				return nil, err
			}
			ats[i] = t
		}
		return Dbg{Format: format, ArgTypes: ats}, nil
	default:
		return nil, malformed("unknown opcode %d", op)
	}
}

// decoder walks a byte slice, tracking the read cursor and making every
// read a bool-checked operation rather than panicking on a truncated
// stream — mirroring the caution the teacher's Dasm takes around
// binary.Uvarint's -1/0 sentinel returns.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readByte() (byte, bool) {
	if d.pos >= len(d.buf) {
		return 0, false
	}
	b := d.buf[d.pos]
	d.pos++
	return b, true
}

func (d *decoder) readExact(dst []byte) bool {
	if d.pos+len(dst) > len(d.buf) {
		return false
	}
	copy(dst, d.buf[d.pos:d.pos+len(dst)])
	d.pos += len(dst)
	return true
}

func (d *decoder) readN(n int) ([]byte, bool) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, false
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, true
}

func (d *decoder) readU16() (uint16, bool) {
	b, ok := d.readN(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (d *decoder) readU32() (uint32, bool) {
	b, ok := d.readN(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

func (d *decoder) readBool() (bool, bool) {
	b, ok := d.readByte()
	return b != 0, ok
}

func (d *decoder) readUvarint() (uint64, bool) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return 0, false
	}
	d.pos += n
	return v, true
}

func (d *decoder) readString() (string, bool) {
	n, ok := d.readUvarint()
	if !ok {
		return "", false
	}
	b, ok := d.readN(int(n))
	if !ok {
		return "", false
	}
	return string(b), true
}

func (d *decoder) readBytesField() ([]byte, bool) {
	n, ok := d.readUvarint()
	if !ok {
		return nil, false
	}
	return d.readN(int(n))
}

func (d *decoder) readVarint() (*big.Int, error) {
	n, ok := d.readUvarint()
	if !ok {
		return nil, malformed("truncated varint length")
	}
	magBytes, ok := d.readN(int(n))
	if !ok {
		return nil, malformed("truncated varint magnitude")
	}
	neg, ok := d.readBool()
	if !ok {
		return nil, malformed("truncated varint sign")
	}
	v := new(big.Int).SetBytes(magBytes)
	if neg {
		v.Neg(v)
	}
	return v, nil
}

func (d *decoder) readTwoUvarint(what string) (int, int, error) {
	a, ok := d.readUvarint()
	if !ok {
		return 0, 0, malformed("truncated %s first argument", what)
	}
	b, ok := d.readUvarint()
	if !ok {
		return 0, 0, malformed("truncated %s second argument", what)
	}
	return int(a), int(b), nil
}

func (d *decoder) readThreeUvarint(what string) (int, int, int, error) {
	a, b, err := d.readTwoUvarint(what)
	if err != nil {
		return 0, 0, 0, err
	}
	c, ok := d.readUvarint()
	if !ok {
		return 0, 0, 0, malformed("truncated %s third argument", what)
	}
	return a, b, int(c), nil
}

func (d *decoder) readUnitTests() ([]UnitTest, error) {
	n, ok := d.readUvarint()
	if !ok {
		return nil, malformed("truncated unit test count")
	}
	tests := make([]UnitTest, n)
	for i := range tests {
		name, ok := d.readString()
		if !ok {
			return nil, malformed("truncated unit test name")
		}
		addr, ok := d.readUvarint()
		if !ok {
			return nil, malformed("truncated unit test address")
		}
		panics, ok := d.readBool()
		if !ok {
			return nil, malformed("truncated unit test should_panic")
		}
		ignored, ok := d.readBool()
		if !ok {
			return nil, malformed("truncated unit test is_ignored")
		}
		tests[i] = UnitTest{Name: name, Address: int(addr), ShouldPanic: panics, IsIgnored: ignored}
	}
	return tests, nil
}

func (d *decoder) readType() (Type, error) {
	tagByte, ok := d.readByte()
	if !ok {
		return Type{}, malformed("truncated type tag")
	}
	tag := TypeTag(tagByte)
	switch tag {
	case TagUnit, TagBool, TagField, TagString:
		return Type{Tag: tag}, nil
	case TagInt:
		signed, ok := d.readBool()
		if !ok {
			return Type{}, malformed("truncated int type signedness")
		}
		bits, ok := d.readUvarint()
		if !ok {
			return Type{}, malformed("truncated int type bitlength")
		}
		return Type{Tag: tag, Signed: signed, Bits: int(bits)}, nil
	case TagArray:
		size, ok := d.readUvarint()
		if !ok {
			return Type{}, malformed("truncated array type size")
		}
		elem, err := d.readType()
		if err != nil {
			return Type{}, err
		}
		return Type{Tag: tag, Size: int(size), Element: &elem}, nil
	case TagTuple:
		n, ok := d.readUvarint()
		if !ok {
			return Type{}, malformed("truncated tuple element count")
		}
		elems := make([]Type, n)
		for i := range elems {
			e, err := d.readType()
			if err != nil {
				return Type{}, err
			}
			elems[i] = e
		}
		return Type{Tag: tag, Elements: elems}, nil
	case TagStruct, TagContract:
		name, ok := d.readString()
		if !ok {
			return Type{}, malformed("truncated struct/contract type name")
		}
		n, ok := d.readUvarint()
		if !ok {
			return Type{}, malformed("truncated struct/contract field count")
		}
		fields := make([]Field, n)
		for i := range fields {
			fname, ok := d.readString()
			if !ok {
				return Type{}, malformed("truncated field name")
			}
			ft, err := d.readType()
			if err != nil {
				return Type{}, err
			}
			fields[i] = Field{Name: fname, Type: ft}
		}
		return Type{Tag: tag, Name: name, Fields: fields}, nil
	case TagEnum:
		name, ok := d.readString()
		if !ok {
			return Type{}, malformed("truncated enum type name")
		}
		n, ok := d.readUvarint()
		if !ok {
			return Type{}, malformed("truncated enum variant count")
		}
		variants := make([]Variant, n)
		for i := range variants {
			vname, ok := d.readString()
			if !ok {
				return Type{}, malformed("truncated variant name")
			}
			v, err := d.readVarint()
			if err != nil {
				return Type{}, err
			}
			variants[i] = Variant{Name: vname, Value: v.Int64()}
		}
		return Type{Tag: tag, Name: name, Variants: variants}, nil
	default:
		return Type{}, malformed("unknown type tag %d", tagByte)
	}
}
