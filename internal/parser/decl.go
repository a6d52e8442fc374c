package parser

import (
	"zcc/internal/ast"
	"zcc/internal/diag"
	"zcc/internal/lexer"
	"zcc/internal/sym"
)

// startsTypeSpecifier reports whether the current token can begin a
// declaration-specifiers list: a storage class, type specifier,
// qualifier, attribute, or a typedef-name resolved against the current
// scope. Declarator-vs-expression disambiguation is symbol-table-
// driven, not grammar-driven; C cannot be parsed otherwise.
func (p *Parser) startsTypeSpecifier() bool {
	t := p.cur()
	if t.Kind == lexer.Keyword {
		switch t.Text {
		case "void", "char", "short", "int", "long", "signed", "unsigned",
			"_Bool", "__int128", "struct", "union", "enum",
			"const", "volatile", "restrict", "__restrict__",
			"typedef", "extern", "static", "auto", "register",
			"__attribute__", "inline":
			return true
		}
	}
	if t.Kind == lexer.Identifier {
		return p.scope.IsTypedef(t.Text)
	}
	return false
}

func (p *Parser) pushScope() *sym.Scope {
	old := p.scope
	p.scope = sym.NewScope(old)
	return old
}

func (p *Parser) popScope(old *sym.Scope) { p.scope = old }

// declareOrdinary records d's name in the current scope's ordinary
// namespace so later declarator-vs-expression decisions see it. It is
// intentionally lossy about the resolved cgtype (nil here): building
// the real cgtype from a declarator chain is cgen's job; the parser
// only needs Kind to answer IsTypedef.
func (p *Parser) declareOrdinary(d *ast.Declarator, specs ast.DeclSpecs) {
	if d == nil || d.Name == "" {
		return
	}
	kind := sym.GlobalSymbol
	switch {
	case specs.Storage == ast.StorageTypedef:
		kind = sym.TypedefName
	case !p.scope.IsModule():
		kind = sym.LocalVariable
	}
	p.scope.Declare(sym.Ordinary, &sym.Symbol{Name: d.Name, Kind: kind, Pos: d.Position()})
}

func (p *Parser) declareParams(declarator *ast.Declarator) {
	for _, suf := range declarator.Suffixes {
		fs, ok := suf.(*ast.FuncSuffix)
		if !ok {
			continue
		}
		for _, param := range fs.Params {
			if param.Declarator != nil && param.Declarator.Name != "" {
				p.scope.Declare(sym.Ordinary, &sym.Symbol{
					Name: param.Declarator.Name, Kind: sym.Argument, Pos: param.Declarator.Position(),
				})
			}
		}
	}
}

// parseExternalDecl parses one top-level declaration or function
// definition.
func (p *Parser) parseExternalDecl() ast.ExternalDecl {
	if p.is(lexer.Semicolon) {
		p.advance()
		return nil
	}
	mark := p.mark()
	start := p.cur().Pos

	if !p.startsTypeSpecifier() {
		p.errorf(p.cur().Pos, "expected a declaration, found %s %q", p.cur().Kind, p.cur().Text)
		p.syncTo(lexer.Semicolon, lexer.RBrace)
		return nil
	}

	headAttrs := p.parseAttributeList()
	specs, midAttrs := p.parseDeclSpecs()
	attrs := append(headAttrs, midAttrs...)

	if p.is(lexer.Semicolon) {
		p.advance()
		decl := &ast.Declaration{Specs: specs, Attributes: attrs}
		decl.Init(start, p.tokensSince(mark))
		return decl
	}

	declarator := p.parseDeclarator()
	attrs = append(attrs, p.parseAttributeList()...)

	if p.is(lexer.LBrace) {
		if specs.Storage == ast.StorageTypedef {
			p.errorf(declarator.Position(), "function definition declared typedef")
		}
		p.declareOrdinary(declarator, specs)
		outer := p.pushScope()
		p.declareParams(declarator)
		body := p.parseCompoundStmt()
		p.popScope(outer)
		fd := &ast.FunctionDef{Specs: specs, Declarator: declarator, Attributes: attrs, Body: body}
		fd.Init(start, p.tokensSince(mark))
		return fd
	}

	var initDecls []*ast.InitDeclarator
	initDecls = append(initDecls, p.finishInitDeclarator(declarator, specs))
	for p.is(lexer.Comma) {
		p.advance()
		d2 := p.parseDeclarator()
		initDecls = append(initDecls, p.finishInitDeclarator(d2, specs))
	}
	attrs = append(attrs, p.parseAttributeList()...)
	p.expect(lexer.Semicolon)

	decl := &ast.Declaration{Specs: specs, InitDeclarators: initDecls, Attributes: attrs}
	decl.Init(start, p.tokensSince(mark))
	return decl
}

func (p *Parser) finishInitDeclarator(d *ast.Declarator, specs ast.DeclSpecs) *ast.InitDeclarator {
	p.declareOrdinary(d, specs)
	mark := p.mark()
	var init ast.Initializer
	if p.is(lexer.Assign) {
		p.advance()
		init = p.parseInitializer()
	}
	id := &ast.InitDeclarator{Declarator: d, Init: init}
	toks := d.Tokens()
	if extra := p.tokensSince(mark); len(extra) > 0 {
		toks = append(append([]lexer.Token(nil), toks...), extra...)
	}
	id.Pos, id.Toks = d.Position(), toks
	return id
}

// parseAttributeList consumes zero or more `__attribute__((...))`
// specifiers, which may appear in head, middle, or tail position on a
// declaration.
func (p *Parser) parseAttributeList() []*ast.Attribute {
	var attrs []*ast.Attribute
	for p.isKeyword("__attribute__") {
		attrs = append(attrs, p.parseAttributeSpec()...)
	}
	return attrs
}

func (p *Parser) parseAttributeSpec() []*ast.Attribute {
	p.expectKeyword("__attribute__")
	p.expect(lexer.LParen)
	p.expect(lexer.LParen)
	var attrs []*ast.Attribute
	if !p.is(lexer.RParen) {
		for {
			mark := p.mark()
			start := p.cur().Pos
			nameTok := p.advance()
			var args []ast.Expr
			if p.is(lexer.LParen) {
				p.advance()
				if !p.is(lexer.RParen) {
					for {
						args = append(args, p.parseAssignExpr())
						if p.is(lexer.Comma) {
							p.advance()
							continue
						}
						break
					}
				}
				p.expect(lexer.RParen)
			}
			a := &ast.Attribute{Name: nameTok.Text, Args: args}
			a.Init(start, p.tokensSince(mark))
			attrs = append(attrs, a)
			if p.is(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	p.expect(lexer.RParen)
	p.expect(lexer.RParen)
	return attrs
}

// parseDeclSpecs parses a declaration-specifiers list: storage class,
// type specifier(s), and qualifiers in any order. Basic type-specifier
// keyword combinations (`long int`, `unsigned long long`, ...) are
// resolved here into one canonical ast.BasicType, the shape the AST
// has room for; cgen diagnoses combinations this parser accepts
// loosely.
func (p *Parser) parseDeclSpecs() (ast.DeclSpecs, []*ast.Attribute) {
	var specs ast.DeclSpecs
	var attrs []*ast.Attribute

	var voidN, charN, shortN, intN, longN, boolN, int128N int
	sawSigned, sawUnsigned := false, false
	haveBasic := false

	typeStart := p.cur().Pos
	typeMark := p.mark()

	setStorage := func(sc ast.StorageClass) {
		if specs.Storage != ast.StorageNone {
			p.errorf(p.cur().Pos, "multiple storage class specifiers")
		}
		specs.Storage = sc
		p.advance()
	}
	addQual := func(q ast.Qualifiers) {
		if specs.Qualifiers.Has(q) {
			p.diags.Addf(p.cur().Pos, diag.PhaseParser, diag.Warning, "duplicate %q qualifier", p.cur().Text)
		}
		specs.Qualifiers |= q
		p.advance()
	}

loop:
	for {
		switch {
		case p.isKeyword("typedef"):
			setStorage(ast.StorageTypedef)
		case p.isKeyword("extern"):
			setStorage(ast.StorageExtern)
		case p.isKeyword("static"):
			setStorage(ast.StorageStatic)
		case p.isKeyword("auto"):
			setStorage(ast.StorageAuto)
		case p.isKeyword("register"):
			setStorage(ast.StorageRegister)
		case p.isKeyword("const"):
			addQual(ast.QualConst)
		case p.isKeyword("volatile"):
			addQual(ast.QualVolatile)
		case p.isKeyword("restrict"), p.isKeyword("__restrict__"):
			addQual(ast.QualRestrict)
		case p.isKeyword("inline"):
			p.advance() // accepted, not modeled separately; function attribute only
		case p.isKeyword("__attribute__"):
			attrs = append(attrs, p.parseAttributeSpec()...)
		case p.isKeyword("void"):
			voidN++
			haveBasic = true
			p.advance()
		case p.isKeyword("char"):
			charN++
			haveBasic = true
			p.advance()
		case p.isKeyword("short"):
			shortN++
			haveBasic = true
			p.advance()
		case p.isKeyword("int"):
			intN++
			haveBasic = true
			p.advance()
		case p.isKeyword("long"):
			longN++
			haveBasic = true
			p.advance()
		case p.isKeyword("_Bool"):
			boolN++
			haveBasic = true
			p.advance()
		case p.isKeyword("__int128"):
			int128N++
			haveBasic = true
			p.advance()
		case p.isKeyword("signed"):
			sawSigned = true
			haveBasic = true
			p.advance()
		case p.isKeyword("unsigned"):
			sawUnsigned = true
			haveBasic = true
			p.advance()
		case specs.Type == nil && p.isKeyword("struct"):
			specs.Type = p.parseStructOrUnion(ast.Struct)
		case specs.Type == nil && p.isKeyword("union"):
			specs.Type = p.parseStructOrUnion(ast.Union)
		case specs.Type == nil && p.isKeyword("enum"):
			specs.Type = p.parseEnum()
		case specs.Type == nil && !haveBasic && p.cur().Kind == lexer.Identifier && p.scope.IsTypedef(p.cur().Text):
			tn := &ast.TypedefName{Name: p.cur().Text}
			tn.Init(p.cur().Pos, []lexer.Token{p.cur()})
			specs.Type = tn
			p.advance()
		default:
			break loop
		}
	}

	if specs.Type == nil {
		kind, signed, hasSign := resolveBasicKind(voidN, charN, shortN, intN, longN, boolN, int128N, sawSigned, sawUnsigned)
		bt := &ast.BasicType{Kind: kind, Signed: signed, HasSignedness: hasSign}
		bt.Init(typeStart, p.tokensSince(typeMark))
		specs.Type = bt
	}

	return specs, attrs
}

func resolveBasicKind(voidN, charN, shortN, intN, longN, boolN, int128N int, sawSigned, sawUnsigned bool) (ast.BasicKind, bool, bool) {
	hasSign := sawSigned || sawUnsigned
	signed := !sawUnsigned
	switch {
	case voidN > 0:
		return ast.Void, true, false
	case boolN > 0:
		return ast.Bool, true, false
	case int128N > 0:
		return ast.Int128, signed, hasSign
	case charN > 0:
		return ast.Char, signed, hasSign
	case shortN > 0:
		return ast.Short, signed, hasSign
	case longN >= 2:
		return ast.LongLong, signed, hasSign
	case longN == 1:
		return ast.Long, signed, hasSign
	default:
		return ast.Int, signed, hasSign
	}
}

func (p *Parser) parseStructOrUnion(kind ast.RecordKind) *ast.RecordType {
	mark := p.mark()
	start := p.cur().Pos
	p.advance() // 'struct' or 'union'
	rt := &ast.RecordType{Kind: kind}
	if p.is(lexer.Identifier) {
		rt.Tag = p.advance().Text
	}
	if p.is(lexer.LBrace) {
		p.advance()
		rt.HasBody = true
		for !p.is(lexer.RBrace) && !p.is(lexer.EOF) {
			rt.Fields = append(rt.Fields, p.parseFieldDecl()...)
		}
		p.expect(lexer.RBrace)
		if rt.Tag != "" {
			p.scope.Declare(sym.Tag, &sym.Symbol{Name: rt.Tag, Kind: sym.RecordTag, Pos: rt.Position()})
		}
	}
	rt.Init(start, p.tokensSince(mark))
	return rt
}

func (p *Parser) parseFieldDecl() []*ast.FieldDecl {
	mark := p.mark()
	start := p.cur().Pos
	specs, _ := p.parseDeclSpecs()

	var fields []*ast.FieldDecl
	for {
		var d *ast.Declarator
		if !p.is(lexer.Colon) {
			d = p.parseDeclarator()
		}
		var bitWidth ast.Expr
		hasBitWidth := false
		if p.is(lexer.Colon) {
			p.advance()
			bitWidth = p.parseConditionalExpr()
			hasBitWidth = true
		}
		fd := &ast.FieldDecl{Specs: specs, Declarator: d, BitWidth: bitWidth, HasBitWidth: hasBitWidth}
		fieldStart := start
		if d != nil {
			fieldStart = d.Position()
		}
		fd.Init(fieldStart, p.tokensSince(mark))
		fields = append(fields, fd)
		if p.is(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(lexer.Semicolon)
	return fields
}

func (p *Parser) parseEnum() *ast.EnumType {
	mark := p.mark()
	start := p.cur().Pos
	p.advance() // 'enum'
	et := &ast.EnumType{}
	if p.is(lexer.Identifier) {
		et.Tag = p.advance().Text
	}
	if p.is(lexer.LBrace) {
		p.advance()
		et.HasBody = true
		for !p.is(lexer.RBrace) && !p.is(lexer.EOF) {
			et.Enumerators = append(et.Enumerators, p.parseEnumerator())
			if p.is(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
		p.expect(lexer.RBrace)
		if et.Tag != "" {
			p.scope.Declare(sym.Tag, &sym.Symbol{Name: et.Tag, Kind: sym.EnumTag, Pos: et.Position()})
		}
	}
	et.Init(start, p.tokensSince(mark))
	return et
}

func (p *Parser) parseEnumerator() *ast.Enumerator {
	mark := p.mark()
	nameTok := p.expect(lexer.Identifier)
	e := &ast.Enumerator{Name: nameTok.Text}
	if p.is(lexer.Assign) {
		p.advance()
		e.Value = p.parseConditionalExpr()
		e.HasValue = true
	}
	e.Init(nameTok.Pos, p.tokensSince(mark))
	p.scope.Declare(sym.Ordinary, &sym.Symbol{Name: e.Name, Kind: sym.EnumElement, Pos: nameTok.Pos})
	return e
}

// parseDeclarator parses `pointer? direct-declarator`. Called for both
// named declarators and abstract ones (casts, sizeof(type), parameter
// types with no parameter name): an abstract declarator simply never
// matches the Identifier branch in parseDirectDeclarator, leaving Name
// empty.
func (p *Parser) parseDeclarator() *ast.Declarator {
	mark := p.mark()
	start := p.cur().Pos
	p.skipLegacyExtensions()
	var pointers []ast.Qualifiers
	for p.is(lexer.Star) {
		p.advance()
		pointers = append(pointers, p.parseTypeQualifiers())
		p.skipLegacyExtensions()
	}
	d := p.parseDirectDeclarator()
	d.Pointers = append(pointers, d.Pointers...)
	d.Init(start, p.tokensSince(mark))
	return d
}

// qualifier rank in the conventional (const, restrict, volatile)
// spelling order; writing them in reverse of it is diagnosed.
func qualRank(q ast.Qualifiers) int {
	switch q {
	case ast.QualConst:
		return 0
	case ast.QualRestrict:
		return 1
	default:
		return 2
	}
}

func (p *Parser) parseTypeQualifiers() ast.Qualifiers {
	var q ast.Qualifiers
	lastRank := -1
	add := func(f ast.Qualifiers) {
		if q.Has(f) {
			p.diags.Addf(p.cur().Pos, diag.PhaseParser, diag.Warning, "duplicate %q qualifier", p.cur().Text)
		} else if r := qualRank(f); r < lastRank {
			p.diags.Addf(p.cur().Pos, diag.PhaseParser, diag.Warning,
				"qualifier %q not in conventional (const, restrict, volatile) order", p.cur().Text)
		} else {
			lastRank = r
		}
		q |= f
		p.advance()
	}
	for {
		switch {
		case p.isKeyword("const"):
			add(ast.QualConst)
		case p.isKeyword("volatile"):
			add(ast.QualVolatile)
		case p.isKeyword("restrict"), p.isKeyword("__restrict__"):
			add(ast.QualRestrict)
		default:
			return q
		}
	}
}

func (p *Parser) parseDirectDeclarator() *ast.Declarator {
	mark := p.mark()
	start := p.cur().Pos
	d := &ast.Declarator{}
	p.skipLegacyExtensions()
	switch {
	case p.is(lexer.LParen) && p.directDeclaratorStartsNested():
		p.advance()
		inner := p.parseDeclarator()
		p.expect(lexer.RParen)
		d = inner
	case p.is(lexer.Identifier):
		d.Name = p.advance().Text
	default:
		// abstract: no name
	}
	d.Suffixes = append(d.Suffixes, p.parseDeclaratorSuffixes()...)
	d.Init(start, p.tokensSince(mark))
	return d
}

func (p *Parser) directDeclaratorStartsNested() bool {
	nxt := p.peek(1)
	return nxt.Kind == lexer.Star || nxt.Kind == lexer.Identifier || nxt.Kind == lexer.LParen
}

func (p *Parser) parseDeclaratorSuffixes() []ast.DeclaratorSuffix {
	var suffixes []ast.DeclaratorSuffix
	for {
		switch {
		case p.is(lexer.LBracket):
			mark := p.mark()
			start := p.cur().Pos
			p.advance()
			var size ast.Expr
			hasSize := false
			if !p.is(lexer.RBracket) {
				size = p.parseAssignExpr()
				hasSize = true
			}
			p.expect(lexer.RBracket)
			as := &ast.ArraySuffix{Size: size, HasSize: hasSize}
			as.Init(start, p.tokensSince(mark))
			suffixes = append(suffixes, as)
		case p.is(lexer.LParen):
			mark := p.mark()
			start := p.cur().Pos
			p.advance()
			params, variadic := p.parseParamList()
			p.expect(lexer.RParen)
			fs := &ast.FuncSuffix{Params: params, Variadic: variadic}
			fs.Init(start, p.tokensSince(mark))
			suffixes = append(suffixes, fs)
		default:
			return suffixes
		}
	}
}

func (p *Parser) parseParamList() ([]*ast.ParamDecl, bool) {
	if p.is(lexer.RParen) {
		return nil, false
	}
	if p.isKeyword("void") && p.peek(1).Kind == lexer.RParen {
		p.advance()
		return nil, false
	}
	var params []*ast.ParamDecl
	for {
		if p.is(lexer.Ellipsis) {
			p.advance()
			return params, true
		}
		params = append(params, p.parseParamDecl())
		if p.is(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return params, false
}

func (p *Parser) parseParamDecl() *ast.ParamDecl {
	mark := p.mark()
	start := p.cur().Pos
	specs, _ := p.parseDeclSpecs()
	decl := p.parseDeclarator()
	pd := &ast.ParamDecl{Specs: specs, Declarator: decl}
	pd.Init(start, p.tokensSince(mark))
	return pd
}

// parseInitializer parses `expr` or a (possibly designated) braced
// initializer list.
func (p *Parser) parseInitializer() ast.Initializer {
	if p.is(lexer.LBrace) {
		return p.parseListInit()
	}
	mark := p.mark()
	start := p.cur().Pos
	v := p.parseAssignExpr()
	si := &ast.ScalarInit{Value: v}
	si.Init(start, p.tokensSince(mark))
	return si
}

func (p *Parser) parseListInit() *ast.ListInit {
	mark := p.mark()
	start := p.cur().Pos
	p.expect(lexer.LBrace)
	var items []*ast.InitItem
	for !p.is(lexer.RBrace) && !p.is(lexer.EOF) {
		items = append(items, p.parseInitItem())
		if p.is(lexer.Comma) {
			p.advance()
			if p.is(lexer.RBrace) {
				break
			}
			continue
		}
		break
	}
	p.expect(lexer.RBrace)
	li := &ast.ListInit{Items: items}
	li.Init(start, p.tokensSince(mark))
	return li
}

func (p *Parser) parseInitItem() *ast.InitItem {
	mark := p.mark()
	start := p.cur().Pos
	var desigs []ast.Designator
	for {
		switch {
		case p.is(lexer.Dot):
			dmark := p.mark()
			dstart := p.cur().Pos
			p.advance()
			nameTok := p.expect(lexer.Identifier)
			fd := &ast.FieldDesignator{Name: nameTok.Text}
			fd.Init(dstart, p.tokensSince(dmark))
			desigs = append(desigs, fd)
		case p.is(lexer.LBracket):
			dmark := p.mark()
			dstart := p.cur().Pos
			p.advance()
			idx := p.parseAssignExpr()
			p.expect(lexer.RBracket)
			id := &ast.IndexDesignator{Index: idx}
			id.Init(dstart, p.tokensSince(dmark))
			desigs = append(desigs, id)
		default:
			goto done
		}
	}
done:
	if len(desigs) > 0 {
		p.expect(lexer.Assign)
	}
	val := p.parseInitializer()
	item := &ast.InitItem{Designators: desigs, Value: val}
	item.Init(start, p.tokensSince(mark))
	return item
}

// parseTypeName parses an abstract type reference: declaration
// specifiers plus an abstract declarator, used by casts, sizeof(type),
// and compound literals.
func (p *Parser) parseTypeName() *ast.TypeName {
	mark := p.mark()
	start := p.cur().Pos
	specs, _ := p.parseDeclSpecs()
	decl := p.parseDeclarator()
	tn := &ast.TypeName{Specs: specs, Declarator: decl}
	tn.Init(start, p.tokensSince(mark))
	return tn
}
