package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/cgtype"
)

func Test_DeclareAndLookup(t *testing.T) {
	module := NewScope(nil)
	ok := module.Declare(Ordinary, &Symbol{Name: "x", Kind: GlobalSymbol, Type: cgtype.IntType})
	require.True(t, ok)

	got := module.Lookup(Ordinary, "x")
	require.NotNil(t, got)
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, GlobalSymbol, got.Kind)
}

func Test_DuplicateDeclareFails(t *testing.T) {
	s := NewScope(nil)
	require.True(t, s.Declare(Ordinary, &Symbol{Name: "x", Type: cgtype.IntType}))
	assert.False(t, s.Declare(Ordinary, &Symbol{Name: "x", Type: cgtype.IntType}))
}

func Test_OrdinaryAndTagAreIndependent(t *testing.T) {
	s := NewScope(nil)
	require.True(t, s.Declare(Tag, &Symbol{Name: "point", Kind: RecordTag}))
	require.True(t, s.Declare(Ordinary, &Symbol{Name: "point", Kind: GlobalSymbol, Type: cgtype.IntType}))

	tagSym := s.Lookup(Tag, "point")
	ordSym := s.Lookup(Ordinary, "point")
	require.NotNil(t, tagSym)
	require.NotNil(t, ordSym)
	assert.Equal(t, RecordTag, tagSym.Kind)
	assert.Equal(t, GlobalSymbol, ordSym.Kind)
}

func Test_ChildScopeSeesParent(t *testing.T) {
	module := NewScope(nil)
	module.Declare(Ordinary, &Symbol{Name: "g", Kind: GlobalSymbol, Type: cgtype.IntType})

	fn := NewScope(module)
	block := NewScope(fn)
	block.Declare(Ordinary, &Symbol{Name: "local", Kind: LocalVariable, Type: cgtype.CharType})

	assert.NotNil(t, block.Lookup(Ordinary, "g"))
	assert.NotNil(t, block.Lookup(Ordinary, "local"))
	assert.Nil(t, module.Lookup(Ordinary, "local"))
}

func Test_ShadowingInnerScopeWins(t *testing.T) {
	outer := NewScope(nil)
	outer.Declare(Ordinary, &Symbol{Name: "x", Kind: GlobalSymbol, Type: cgtype.IntType})

	inner := NewScope(outer)
	inner.Declare(Ordinary, &Symbol{Name: "x", Kind: LocalVariable, Type: cgtype.CharType})

	assert.Equal(t, LocalVariable, inner.Lookup(Ordinary, "x").Kind)
	assert.Equal(t, GlobalSymbol, outer.Lookup(Ordinary, "x").Kind)
}

func Test_LookupLocalDoesNotAscend(t *testing.T) {
	outer := NewScope(nil)
	outer.Declare(Ordinary, &Symbol{Name: "g", Kind: GlobalSymbol, Type: cgtype.IntType})
	inner := NewScope(outer)

	assert.Nil(t, inner.LookupLocal(Ordinary, "g"))
	assert.NotNil(t, inner.Lookup(Ordinary, "g"))
}

func Test_IsTypedef(t *testing.T) {
	module := NewScope(nil)
	module.Declare(Ordinary, &Symbol{Name: "size_t", Kind: TypedefName, Type: cgtype.UIntType})

	fn := NewScope(module)
	assert.True(t, fn.IsTypedef("size_t"))
	assert.False(t, fn.IsTypedef("size_t2"))
}

func Test_IsModule(t *testing.T) {
	module := NewScope(nil)
	fn := NewScope(module)
	assert.True(t, module.IsModule())
	assert.False(t, fn.IsModule())
	assert.Nil(t, module.Parent())
	assert.Same(t, module, fn.Parent())
}
