package z80

// InstrFlags records which condition flags a mnemonic writes.
type InstrFlags uint8

const (
	FlagNone InstrFlags = 0
	FlagC    InstrFlags = 1 << iota
	FlagZ
	FlagS
	FlagPV
)

const FlagAll = FlagC | FlagZ | FlagS | FlagPV

// InstrDescriptor is the selector's static knowledge about one emitted
// mnemonic: how many operands its assembler spelling takes and which
// flags it affects. The table covers only the opcodes this selector
// emits, not the full Z80 map; emitting a mnemonic absent from the
// table is an internal invariant violation.
type InstrDescriptor struct {
	Operands int
	Affected InstrFlags
}

var instrDescriptors = map[string]InstrDescriptor{
	// loads and exchanges
	"ld":   {Operands: 2, Affected: FlagNone},
	"ex":   {Operands: 2, Affected: FlagNone},
	"push": {Operands: 1, Affected: FlagNone},
	"pop":  {Operands: 1, Affected: FlagNone},
	"ldir": {Operands: 0, Affected: FlagPV},

	// 8-bit ALU
	"add": {Operands: 2, Affected: FlagAll},
	"adc": {Operands: 2, Affected: FlagAll},
	"sub": {Operands: 1, Affected: FlagAll},
	"sbc": {Operands: 2, Affected: FlagAll},
	"and": {Operands: 1, Affected: FlagAll},
	"or":  {Operands: 1, Affected: FlagAll},
	"xor": {Operands: 1, Affected: FlagAll},
	"cp":  {Operands: 1, Affected: FlagAll},
	"cpl": {Operands: 0, Affected: FlagNone},
	"inc": {Operands: 1, Affected: FlagZ | FlagS | FlagPV},
	"dec": {Operands: 1, Affected: FlagZ | FlagS | FlagPV},

	// shifts and rotates
	"sla": {Operands: 1, Affected: FlagAll},
	"sra": {Operands: 1, Affected: FlagAll},
	"srl": {Operands: 1, Affected: FlagAll},
	"rl":  {Operands: 1, Affected: FlagAll},
	"rr":  {Operands: 1, Affected: FlagAll},
	"rla": {Operands: 0, Affected: FlagC},

	// bit operations
	"bit": {Operands: 2, Affected: FlagZ},
	"set": {Operands: 2, Affected: FlagNone},
	"res": {Operands: 2, Affected: FlagNone},

	// control transfer
	"jp":   {Operands: 1, Affected: FlagNone}, // also the 2-operand conditional form
	"jr":   {Operands: 1, Affected: FlagNone},
	"call": {Operands: 1, Affected: FlagNone},
	"ret":  {Operands: 0, Affected: FlagNone},
	"reti": {Operands: 0, Affected: FlagNone},
	"ei":   {Operands: 0, Affected: FlagNone},
	"di":   {Operands: 0, Affected: FlagNone},
	"nop":  {Operands: 0, Affected: FlagNone},
	"halt": {Operands: 0, Affected: FlagNone},
}

// KnownMnemonic reports whether the selector's descriptor table covers
// mnemonic.
func KnownMnemonic(mnemonic string) bool {
	_, ok := instrDescriptors[mnemonic]
	return ok
}
