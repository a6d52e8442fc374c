package z80

import (
	"fmt"
	"strings"

	"zcc/internal/cgtype"
	"zcc/internal/ir"
)

// lowerGlobal flattens one IR global's initializer tree into byte runs
// and address words. A global with no initializer stays a bare
// zero-filled reservation.
func lowerGlobal(g *ir.Global) *Global {
	out := &Global{Name: g.Name, Size: sizeOfType(g.Type)}
	if g.Init == nil {
		return out
	}
	out.Items = lowerInit(g.Init, g.Type)
	return out
}

func lowerInit(init ir.Initializer, t cgtype.Type) []DataItem {
	switch v := init.(type) {
	case ir.ConstInit:
		return []DataItem{{Bytes: constBytes(v.Value, sizeOfType(t))}}

	case ir.AddrInit:
		return []DataItem{{Addr: v.Target, Off: v.Offset}}

	case ir.AggregateInit:
		var items []DataItem
		switch ct := t.(type) {
		case *cgtype.Array:
			for i := 0; i < ct.Len; i++ {
				if i < len(v.Elems) && v.Elems[i] != nil {
					items = append(items, lowerInit(v.Elems[i], ct.Elem)...)
				} else {
					items = append(items, DataItem{Bytes: make([]byte, sizeOfType(ct.Elem))})
				}
			}
		case *cgtype.Record:
			at := 0
			for i, f := range ct.Def.Fields {
				if f.ByteOffset > at {
					items = append(items, DataItem{Bytes: make([]byte, f.ByteOffset-at)})
					at = f.ByteOffset
				}
				if f.ByteOffset < at {
					continue // union overlay or bit-field sharing a storage unit
				}
				if i < len(v.Elems) && v.Elems[i] != nil {
					items = append(items, lowerInit(v.Elems[i], f.Type)...)
				} else {
					items = append(items, DataItem{Bytes: make([]byte, sizeOfType(f.Type))})
				}
				at += sizeOfType(f.Type)
			}
			if total := ct.Def.SizeBytes; at < total {
				items = append(items, DataItem{Bytes: make([]byte, total-at)})
			}
		default:
			if len(v.Elems) > 0 {
				items = lowerInit(v.Elems[0], t)
			}
		}
		return items

	default:
		return nil
	}
}

func constBytes(v int64, size int) []byte {
	b := make([]byte, size)
	for i := 0; i < size; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// Text renders the module as assembler source: a fixed origin, the
// code section, and the data section with DB/DW/DS directives. The
// output is deterministic for a given module.
func (m *Module) Text(org int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\tORG %04XH\n", org)
	for _, p := range m.Procs {
		sb.WriteByte('\n')
		for _, in := range p.Instrs {
			sb.WriteString(in.String())
			sb.WriteByte('\n')
		}
	}
	if len(m.Globals) > 0 {
		sb.WriteByte('\n')
	}
	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "%s:", g.Name)
		if len(g.Items) == 0 {
			fmt.Fprintf(&sb, "\n\tDS %d\n", g.Size)
			continue
		}
		sb.WriteByte('\n')
		for _, item := range g.Items {
			if item.Addr != "" {
				fmt.Fprintf(&sb, "\tDW %s\n", symRef(item.Addr, item.Off))
				continue
			}
			parts := make([]string, len(item.Bytes))
			for i, b := range item.Bytes {
				parts[i] = fmt.Sprintf("%d", b)
			}
			fmt.Fprintf(&sb, "\tDB %s\n", strings.Join(parts, ", "))
		}
	}
	return sb.String()
}
