// Text format: a reparsable, human-readable dump of a Module, in the
// LLVM-style three-address tradition.
//
// Grammar (informal):
//
//	module    := global* proc*
//	global    := "global" name ":" type ("=" const)? "\n"
//	proc      := "proc" name "(" param,* ")" ("->" type)? "{" "\n" block* "}" "\n"
//	param     := "%" id ":" type
//	block     := label ":" "\n" instr*
//	instr     := ("%" id ":" type "=")? mnemonic operand,* "\n"
//	operand   := "%" id | integer | "@" name ("+" integer)?
//	type      := "void"|"bool"|"i8"|"u8"|"i16"|"u16"|"i32"|"u32"|"i64"|"u64"|"ptr"
package ir

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"zcc/internal/cgtype"
)

func typeName(t cgtype.Type) string {
	if t == nil {
		return "void"
	}
	if _, ok := t.(*cgtype.Pointer); ok {
		return "ptr"
	}
	b, ok := t.(*cgtype.Basic)
	if !ok {
		return "i16" // record/enum/array/function: opaque to the text format
	}
	switch b.Kind {
	case cgtype.Void:
		return "void"
	case cgtype.Bool:
		return "bool"
	case cgtype.Char:
		if b.Signed {
			return "i8"
		}
		return "u8"
	case cgtype.Short, cgtype.Int:
		if b.Signed {
			return "i16"
		}
		return "u16"
	case cgtype.Long:
		if b.Signed {
			return "i32"
		}
		return "u32"
	case cgtype.LongLong, cgtype.Int128:
		if b.Signed {
			return "i64"
		}
		return "u64"
	default:
		return "i16"
	}
}

func parseTypeName(s string) (cgtype.Type, error) {
	switch s {
	case "void":
		return nil, nil
	case "bool":
		return cgtype.BoolType, nil
	case "i8":
		return cgtype.CharType, nil
	case "u8":
		return cgtype.UCharType, nil
	case "i16":
		return cgtype.IntType, nil
	case "u16":
		return cgtype.UIntType, nil
	case "i32":
		return cgtype.LongType, nil
	case "u32":
		return cgtype.ULongType, nil
	case "i64":
		return cgtype.LongLongType, nil
	case "u64":
		return &cgtype.Basic{Kind: cgtype.LongLong, Signed: false}, nil
	case "ptr":
		return &cgtype.Pointer{Elem: cgtype.VoidType}, nil
	default:
		return nil, fmt.Errorf("ir: unknown type spelling %q", s)
	}
}

var binOpNames = map[BinOp]string{
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Mod: "mod",
	Shl: "shl", Shr: "shr", And: "and", Or: "or", Xor: "xor",
	Eq: "eq", Ne: "ne", Lt: "lt", Le: "le", Gt: "gt", Ge: "ge",
}

var binOpByName = func() map[string]BinOp {
	m := make(map[string]BinOp, len(binOpNames))
	for k, v := range binOpNames {
		m[v] = k
	}
	return m
}()

var unOpNames = map[UnOp]string{Neg: "neg", Not: "not", BitNot: "bitnot"}

var unOpByName = func() map[string]UnOp {
	m := make(map[string]UnOp, len(unOpNames))
	for k, v := range unOpNames {
		m[v] = k
	}
	return m
}()

func operandText(o Operand) string {
	switch v := o.(type) {
	case nil:
		return ""
	case Reg:
		return fmt.Sprintf("%%%d", v.ID)
	case Imm:
		return strconv.FormatInt(v.Value, 10)
	case GlobalRef:
		if v.Offset != 0 {
			return fmt.Sprintf("@%s+%d", v.Name, v.Offset)
		}
		return "@" + v.Name
	default:
		return fmt.Sprintf("<%T>", o)
	}
}

// Print renders m in the text format described above.
func Print(m *Module) string {
	var sb strings.Builder
	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "global %s: %s", g.Name, typeName(g.Type))
		if g.Init != nil {
			fmt.Fprintf(&sb, " = %s", initText(g.Init))
		}
		sb.WriteByte('\n')
	}
	if len(m.Globals) > 0 {
		sb.WriteByte('\n')
	}
	for i, p := range m.Procs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		printProc(&sb, p)
	}
	return sb.String()
}

func initText(init Initializer) string {
	switch v := init.(type) {
	case ConstInit:
		return strconv.FormatInt(v.Value, 10)
	case AddrInit:
		if v.Offset != 0 {
			return fmt.Sprintf("@%s+%d", v.Target, v.Offset)
		}
		return "@" + v.Target
	case AggregateInit:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = initText(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}

func printProc(sb *strings.Builder, p *Proc) {
	sb.WriteString("proc ")
	sb.WriteString(p.Name)
	sb.WriteByte('(')
	for i, param := range p.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%%%d:%s", param.Reg.ID, typeName(param.Reg.Type))
	}
	sb.WriteByte(')')
	if p.Return != nil {
		fmt.Fprintf(sb, " -> %s", typeName(p.Return))
	}
	sb.WriteString(" {\n")
	for _, b := range p.Blocks {
		fmt.Fprintf(sb, "%s:\n", b.Label)
		for _, instr := range b.Instrs {
			sb.WriteString("  ")
			sb.WriteString(instrText(instr))
			sb.WriteByte('\n')
		}
		if b.Term != nil {
			sb.WriteString("  ")
			sb.WriteString(instrText(b.Term))
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
}

func instrText(instr Instr) string {
	switch v := instr.(type) {
	case *BinOpInstr:
		name := binOpNames[v.Op]
		if v.Unsigned {
			name = "u" + name
		}
		return fmt.Sprintf("%%%d:%s = %s %s, %s", v.Dst.ID, typeName(v.Dst.Type), name, operandText(v.Lhs), operandText(v.Rhs))
	case *UnOpInstr:
		return fmt.Sprintf("%%%d:%s = %s %s", v.Dst.ID, typeName(v.Dst.Type), unOpNames[v.Op], operandText(v.Operand))
	case *Move:
		return fmt.Sprintf("%%%d:%s = mov %s", v.Dst.ID, typeName(v.Dst.Type), operandText(v.Src))
	case *Convert:
		return fmt.Sprintf("%%%d:%s = conv %s, %s", v.Dst.ID, typeName(v.To), operandText(v.Src), typeName(v.From))
	case *Load:
		return fmt.Sprintf("%%%d:%s = load %s", v.Dst.ID, typeName(v.Type), operandText(v.Addr))
	case *Store:
		return fmt.Sprintf("store %s, %s : %s", operandText(v.Addr), operandText(v.Value), typeName(v.Type))
	case *AddrOf:
		if v.Offset != 0 {
			return fmt.Sprintf("%%%d:ptr = addrof %s+%d", v.Dst.ID, v.Symbol, v.Offset)
		}
		return fmt.Sprintf("%%%d:ptr = addrof %s", v.Dst.ID, v.Symbol)
	case *MemCopy:
		return fmt.Sprintf("memcopy %s, %s, %d", operandText(v.Dst), operandText(v.Src), v.Size)
	case *Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = operandText(a)
		}
		target := v.Func
		if v.ViaPtr != nil {
			target = "*" + operandText(v.ViaPtr)
		}
		call := fmt.Sprintf("call %s(%s)", target, strings.Join(args, ", "))
		if v.HasDst {
			return fmt.Sprintf("%%%d:%s = %s", v.Dst.ID, typeName(v.Dst.Type), call)
		}
		return call
	case *Jump:
		return "jmp " + v.Target
	case *Branch:
		return fmt.Sprintf("br %s, %s, %s", operandText(v.Cond), v.True, v.False)
	case *Return:
		if v.HasValue {
			return "ret " + operandText(v.Value)
		}
		return "ret"
	case *Label:
		return v.Name + ":"
	default:
		return fmt.Sprintf("<unknown instr %T>", instr)
	}
}

// Parse reads text produced by Print back into a Module. Parse is a
// deliberately narrow reader for this repository's own output, not a
// general-purpose assembler: it recovers exactly the instruction
// shapes Print emits.
func Parse(text string) (*Module, error) {
	p := &textParser{sc: bufio.NewScanner(strings.NewReader(text)), regTypes: map[int]cgtype.Type{}}
	m := &Module{}
	for p.advance() {
		line := p.line
		switch {
		case strings.HasPrefix(line, "global "):
			g, err := p.parseGlobal(line)
			if err != nil {
				return nil, err
			}
			m.Globals = append(m.Globals, g)
		case strings.HasPrefix(line, "proc "):
			proc, err := p.parseProc(line)
			if err != nil {
				return nil, err
			}
			m.Procs = append(m.Procs, proc)
		case line == "":
			// blank separator line
		default:
			return nil, fmt.Errorf("ir: unexpected line %q", line)
		}
	}
	return m, nil
}

type textParser struct {
	sc       *bufio.Scanner
	line     string
	regTypes map[int]cgtype.Type
}

func (p *textParser) advance() bool {
	if !p.sc.Scan() {
		return false
	}
	p.line = p.sc.Text()
	return true
}

func (p *textParser) parseGlobal(line string) (*Global, error) {
	rest := strings.TrimPrefix(line, "global ")
	name, rest, ok := cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("ir: malformed global %q", line)
	}
	rest = strings.TrimSpace(rest)
	typePart, initPart, hasInit := cut(rest, "=")
	t, err := parseTypeName(strings.TrimSpace(typePart))
	if err != nil {
		return nil, err
	}
	g := &Global{Name: strings.TrimSpace(name), Type: t}
	if hasInit {
		init, err := parseInit(strings.TrimSpace(initPart))
		if err != nil {
			return nil, err
		}
		g.Init = init
	}
	return g, nil
}

func parseInit(s string) (Initializer, error) {
	if strings.HasPrefix(s, "@") {
		name, offStr, hasOff := cut(s[1:], "+")
		off := 0
		if hasOff {
			v, err := strconv.Atoi(offStr)
			if err != nil {
				return nil, err
			}
			off = v
		}
		return AddrInit{Target: name, Offset: off}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ir: bad initializer %q: %w", s, err)
	}
	return ConstInit{Value: v}, nil
}

func (p *textParser) parseProc(header string) (*Proc, error) {
	rest := strings.TrimPrefix(header, "proc ")
	name, rest, ok := cut(rest, "(")
	if !ok {
		return nil, fmt.Errorf("ir: malformed proc header %q", header)
	}
	paramsPart, rest, ok := cut(rest, ")")
	if !ok {
		return nil, fmt.Errorf("ir: malformed proc header %q", header)
	}
	proc := &Proc{Name: strings.TrimSpace(name)}

	if strings.TrimSpace(paramsPart) != "" {
		for _, ps := range strings.Split(paramsPart, ",") {
			reg, err := p.parseTypedReg(strings.TrimSpace(ps))
			if err != nil {
				return nil, err
			}
			proc.Params = append(proc.Params, Param{Reg: reg})
		}
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "{")
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "->") {
		t, err := parseTypeName(strings.TrimSpace(strings.TrimPrefix(rest, "->")))
		if err != nil {
			return nil, err
		}
		proc.Return = t
	}

	var cur *Block
	for p.advance() {
		line := strings.TrimSpace(p.line)
		if line == "}" {
			break
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			cur = &Block{Label: strings.TrimSuffix(line, ":")}
			proc.Blocks = append(proc.Blocks, cur)
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("ir: instruction %q before any block label", line)
		}
		instr, err := p.parseInstr(line)
		if err != nil {
			return nil, err
		}
		if IsTerminator(instr) {
			cur.Term = instr
		} else {
			cur.Instrs = append(cur.Instrs, instr)
		}
	}
	return proc, nil
}

func (p *textParser) parseTypedReg(s string) (Reg, error) {
	name, typePart, ok := cut(s, ":")
	if !ok || !strings.HasPrefix(name, "%") {
		return Reg{}, fmt.Errorf("ir: malformed register %q", s)
	}
	id, err := strconv.Atoi(name[1:])
	if err != nil {
		return Reg{}, err
	}
	t, err := parseTypeName(strings.TrimSpace(typePart))
	if err != nil {
		return Reg{}, err
	}
	p.regTypes[id] = t
	return Reg{ID: id, Type: t}, nil
}

func (p *textParser) parseOperand(s string) (Operand, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "%"):
		id, err := strconv.Atoi(s[1:])
		if err != nil {
			return nil, err
		}
		return Reg{ID: id, Type: p.regTypes[id]}, nil
	case strings.HasPrefix(s, "@"):
		name, offStr, hasOff := cut(s[1:], "+")
		off := 0
		if hasOff {
			v, err := strconv.Atoi(offStr)
			if err != nil {
				return nil, err
			}
			off = v
		}
		return GlobalRef{Name: name, Offset: off}, nil
	default:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ir: bad operand %q: %w", s, err)
		}
		return Imm{Value: v}, nil
	}
}

func (p *textParser) parseInstr(line string) (Instr, error) {
	dstPart, rhs, hasDst := cut(line, " = ")
	var dst Reg
	if hasDst {
		reg, err := p.parseTypedReg(strings.TrimSpace(dstPart))
		if err != nil {
			return nil, err
		}
		dst = reg
	} else {
		rhs = line
	}
	rhs = strings.TrimSpace(rhs)
	mnemonic, rest, _ := cut(rhs, " ")
	rest = strings.TrimSpace(rest)

	switch {
	case mnemonic == "jmp":
		return &Jump{Target: rest}, nil
	case mnemonic == "br":
		parts := splitArgs(rest)
		if len(parts) != 3 {
			return nil, fmt.Errorf("ir: malformed br %q", line)
		}
		cond, err := p.parseOperand(parts[0])
		if err != nil {
			return nil, err
		}
		return &Branch{Cond: cond, True: parts[1], False: parts[2]}, nil
	case mnemonic == "ret":
		if rest == "" {
			return &Return{}, nil
		}
		v, err := p.parseOperand(rest)
		if err != nil {
			return nil, err
		}
		return &Return{Value: v, HasValue: true}, nil
	case mnemonic == "mov":
		v, err := p.parseOperand(rest)
		if err != nil {
			return nil, err
		}
		return &Move{Dst: dst, Src: v}, nil
	case mnemonic == "load":
		v, err := p.parseOperand(rest)
		if err != nil {
			return nil, err
		}
		return &Load{Dst: dst, Addr: v, Type: dst.Type}, nil
	case mnemonic == "store":
		addrPart, rhs2, _ := cut(rest, ",")
		valuePart, typePart, _ := cut(rhs2, ":")
		addr, err := p.parseOperand(addrPart)
		if err != nil {
			return nil, err
		}
		val, err := p.parseOperand(strings.TrimSpace(strings.Split(valuePart, ":")[0]))
		if err != nil {
			return nil, err
		}
		t, err := parseTypeName(strings.TrimSpace(typePart))
		if err != nil {
			return nil, err
		}
		return &Store{Addr: addr, Value: val, Type: t}, nil
	case mnemonic == "addrof":
		sym, offStr, hasOff := cut(rest, "+")
		off := 0
		if hasOff {
			v, err := strconv.Atoi(offStr)
			if err != nil {
				return nil, err
			}
			off = v
		}
		return &AddrOf{Dst: dst, Symbol: sym, Offset: off}, nil
	case mnemonic == "memcopy":
		parts := splitArgs(rest)
		if len(parts) != 3 {
			return nil, fmt.Errorf("ir: malformed memcopy %q", line)
		}
		d, err := p.parseOperand(parts[0])
		if err != nil {
			return nil, err
		}
		s, err := p.parseOperand(parts[1])
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, err
		}
		return &MemCopy{Dst: d, Src: s, Size: size}, nil
	case mnemonic == "conv":
		parts := splitArgs(rest)
		if len(parts) != 2 {
			return nil, fmt.Errorf("ir: malformed conv %q", line)
		}
		v, err := p.parseOperand(parts[0])
		if err != nil {
			return nil, err
		}
		from, err := parseTypeName(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		return &Convert{Dst: dst, Src: v, From: from, To: dst.Type}, nil
	case mnemonic == "call" || strings.HasPrefix(mnemonic, "call"):
		target, argsStr, ok := cut(rest, "(")
		if !ok {
			return nil, fmt.Errorf("ir: malformed call %q", line)
		}
		argsStr = strings.TrimSuffix(strings.TrimSpace(argsStr), ")")
		var args []Operand
		if strings.TrimSpace(argsStr) != "" {
			for _, a := range splitArgs(argsStr) {
				op, err := p.parseOperand(a)
				if err != nil {
					return nil, err
				}
				args = append(args, op)
			}
		}
		call := &Call{Func: target, Args: args, Dst: dst, HasDst: hasDst}
		if strings.HasPrefix(target, "*") {
			via, err := p.parseOperand(target[1:])
			if err != nil {
				return nil, err
			}
			call.ViaPtr = via
			call.Func = ""
		}
		return call, nil
	default:
		if op, ok := binOpByName[strings.TrimPrefix(mnemonic, "u")]; ok {
			parts := splitArgs(rest)
			if len(parts) != 2 {
				return nil, fmt.Errorf("ir: malformed binop %q", line)
			}
			lhs, err := p.parseOperand(parts[0])
			if err != nil {
				return nil, err
			}
			rhsOp, err := p.parseOperand(parts[1])
			if err != nil {
				return nil, err
			}
			return &BinOpInstr{Dst: dst, Op: op, Lhs: lhs, Rhs: rhsOp, Unsigned: strings.HasPrefix(mnemonic, "u")}, nil
		}
		if op, ok := unOpByName[mnemonic]; ok {
			v, err := p.parseOperand(rest)
			if err != nil {
				return nil, err
			}
			return &UnOpInstr{Dst: dst, Op: op, Operand: v}, nil
		}
		return nil, fmt.Errorf("ir: unknown mnemonic %q in %q", mnemonic, line)
	}
}

// cut splits s at the first occurrence of sep, like strings.Cut but
// named distinctly to avoid assuming a specific Go version's stdlib.
func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// splitArgs splits a comma-separated operand list, trimming whitespace
// around each element.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
