package cgtype

// LayoutRecord computes ByteOffset/BitOffset for every field of def and
// sets def.SizeBytes/AlignBytes/Complete. Layout follows natural
// Z80-oriented alignment: the Z80 has no alignment faults, so every
// member is packed at its natural sequential offset and alignment is
// always 1. Union members all overlay offset zero, sized to the
// largest member.
//
// Bit-fields are carved sequentially out of their declared storage
// unit: consecutive bit-fields sharing the same storage type pack into
// one unit until it is full, a differently-typed bit-field or
// non-bit-field member follows, or a zero-width bit-field forces a
// flush to the next storage unit.
func LayoutRecord(def *RecordDef) {
	if def.Kind == UnionKind {
		layoutUnion(def)
		return
	}
	layoutStruct(def)
}

func layoutUnion(def *RecordDef) {
	maxSize := 0
	for _, f := range def.Fields {
		f.ByteOffset = 0
		f.BitOffset = 0
		size := f.Type.Size()
		if f.HasBitWidth {
			size = f.StorageType.Size()
		}
		if size > maxSize {
			maxSize = size
		}
	}
	def.SizeBytes = maxSize
	def.AlignBytes = 1
	def.Complete = true
}

func layoutStruct(def *RecordDef) {
	offset := 0
	bitCursor := 0
	var curStorage Type

	flush := func() {
		if curStorage != nil {
			offset += curStorage.Size()
			curStorage = nil
			bitCursor = 0
		}
	}

	for _, f := range def.Fields {
		if !f.HasBitWidth {
			flush()
			f.ByteOffset = offset
			offset += f.Type.Size()
			continue
		}
		if f.BitWidth == 0 {
			flush()
			continue
		}
		storageBits := f.StorageType.Size() * 8
		if curStorage == nil || !Equal(curStorage, f.StorageType) || bitCursor+f.BitWidth > storageBits {
			flush()
			curStorage = f.StorageType
		}
		f.ByteOffset = offset
		f.BitOffset = bitCursor
		bitCursor += f.BitWidth
	}
	flush()

	def.SizeBytes = offset
	def.AlignBytes = 1
	def.Complete = true
}

// SizeOf resolves a `sizeof` query against a fully laid-out type.
func SizeOf(t Type) int { return t.Size() }

// AlignOf resolves an alignment query; every type aligns to 1 on this
// target.
func AlignOf(t Type) int { return t.Align() }
