// Package compiler is a single-pass Pratt parser that compiles Lox source
// straight to bytecode — there is no intermediate AST. It fuses a Pratt
// prefix/infix dispatch table with the usual bytecode-emission tail
// helpers (emitByte, emitJump, patchJump, locals-as-compiler-stack) into
// one pass instead of building then walking a tree.
package compiler

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/estevaofon/lox-vm/internal/chunk"
	"github.com/estevaofon/lox-vm/internal/object"
	"github.com/estevaofon/lox-vm/internal/scanner"
	"github.com/estevaofon/lox-vm/internal/table"
	"github.com/estevaofon/lox-vm/internal/token"
	"github.com/estevaofon/lox-vm/internal/value"
)

const (
	maxLocals    = 256
	maxConstants = chunk.MaxConstants
	maxArity     = 255
	maxJump      = 65535
)

// CompileError aggregates every error raised during one Compile call. The
// parser keeps going after a syntax error (panic-mode recovery), so more
// than one may accumulate.
type CompileError struct {
	Messages []string
}

func (e *CompileError) Error() string {
	if len(e.Messages) == 1 {
		return e.Messages[0]
	}
	s := fmt.Sprintf("%d compile errors:", len(e.Messages))
	for _, m := range e.Messages {
		s += "\n  " + m
	}
	return s
}

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // ()
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// local is compile-time-only bookkeeping for a stack slot. depth == -1
// means "declared but not yet initialised" — the sentinel that rejects
// `var x = x;` inside a block scope.
type local struct {
	name  string
	depth int
}

type functionType int

const (
	typeFunction functionType = iota
	typeScript
)

// funcCompiler is one function's compile-time context: a linked stack of
// scopes, one per nested function body currently being compiled.
type funcCompiler struct {
	enclosing *funcCompiler
	function  *object.Function
	funcType  functionType

	locals     []local
	scopeDepth int
}

// newFuncCompiler allocates the ObjFunction through p.heap (not a bare
// struct literal) so every function compiled — nested or top-level — is
// reachable from the VM's object list like any other heap object, and its
// name (when it has one) is the same interned *object.String the compiler
// would produce for an identifier constant.
func newFuncCompiler(p *parser, enclosing *funcCompiler, ft functionType, name string) *funcCompiler {
	fc := &funcCompiler{
		enclosing: enclosing,
		funcType:  ft,
		function:  p.heap.NewFunction(nil, 0, chunk.New()),
	}
	if name != "" {
		fc.function.Name = table.Intern(p.heap, p.strings, name)
	}
	// Reserve local slot 0 — the currently-executing function/closure itself.
	fc.locals = append(fc.locals, local{name: "", depth: 0})
	return fc
}

// parser drives the scanner and holds all per-compile-call state. There is
// no compiler-package-level mutable state, matching the VM-as-value
// redesign this module applies throughout (see design notes).
type parser struct {
	s *scanner.Scanner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []string

	heap    *object.Heap
	strings *table.Table

	fc *funcCompiler
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LEFT_PAREN:    {grouping, call, precCall},
		token.MINUS:         {unary, binary, precTerm},
		token.PLUS:          {nil, binary, precTerm},
		token.SLASH:         {nil, binary, precFactor},
		token.STAR:          {nil, binary, precFactor},
		token.BANG:          {unary, nil, precNone},
		token.BANG_EQUAL:    {nil, binary, precEquality},
		token.EQUAL_EQUAL:   {nil, binary, precEquality},
		token.GREATER:       {nil, binary, precComparison},
		token.GREATER_EQUAL: {nil, binary, precComparison},
		token.LESS:          {nil, binary, precComparison},
		token.LESS_EQUAL:    {nil, binary, precComparison},
		token.IDENTIFIER:    {variable, nil, precNone},
		token.STRING:        {stringLiteral, nil, precNone},
		token.NUMBER:        {number, nil, precNone},
		token.AND:           {nil, and_, precAnd},
		token.OR:            {nil, or_, precOr},
		token.FALSE:         {literal, nil, precNone},
		token.TRUE:          {literal, nil, precNone},
		token.NIL:           {literal, nil, precNone},
	}
}

func getRule(t token.Type) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, precNone}
}

// Compile compiles source into the implicit top-level function. On
// failure it returns a *CompileError describing every error encountered;
// objects allocated along the way (interned strings, nested ObjFunctions)
// remain on heap regardless — they are freed only when the VM tears down.
func Compile(source string, heap *object.Heap, strings *table.Table) (*object.Function, error) {
	p := &parser{
		s:       scanner.New(source),
		heap:    heap,
		strings: strings,
	}
	p.fc = newFuncCompiler(p, nil, typeScript, "")

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}

	fn := p.endCompiler()

	if p.hadError {
		return nil, &CompileError{Messages: p.errors}
	}
	return fn, nil
}

// ---- token stream plumbing ----

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.s.NextToken()
		if p.current.Type != token.ERROR {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(t token.Type) bool {
	return p.current.Type == t
}

func (p *parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t token.Type, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	where := ""
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		// the message IS the lexeme in that case; no location suffix
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.errors = append(p.errors, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, message))
	p.hadError = true
}

func (p *parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *parser) error(message string)          { p.errorAt(p.previous, message) }

// synchronize leaves panic mode at the next statement boundary: just past
// a ';', or at the next leading statement keyword. The keyword set is
// fixed regardless of which of these are actually implemented statements.
func (p *parser) synchronize() {
	p.panicMode = false

	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		switch p.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// ---- bytecode emission ----

func (p *parser) currentChunk() *chunk.Chunk {
	return p.fc.function.Chunk
}

func (p *parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *parser) emitOp(op chunk.OpCode) {
	p.emitByte(byte(op))
}

func (p *parser) emitBytes(op chunk.OpCode, operand byte) {
	p.emitByte(byte(op))
	p.emitByte(operand)
}

// emitJump writes op followed by a 2-byte placeholder and returns the
// offset of the placeholder's first byte, to be patched once the jump
// target is known.
func (p *parser) emitJump(op chunk.OpCode) int {
	p.emitByte(byte(op))
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > maxJump {
		p.error("Max offset length of jump-instruction exceeded.")
		return
	}
	p.currentChunk().Code[offset] = byte(jump >> 8)
	p.currentChunk().Code[offset+1] = byte(jump & 0xff)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(chunk.OpLoop)
	jump := len(p.currentChunk().Code) - loopStart + 2
	if jump > maxJump {
		p.error("Loop body too large.")
		return
	}
	p.emitByte(byte(jump >> 8))
	p.emitByte(byte(jump & 0xff))
}

func (p *parser) makeConstant(v value.Value) int {
	idx := p.currentChunk().AddConstant(v)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (p *parser) emitConstant(v value.Value) {
	p.emitBytes(chunk.OpConstant, byte(p.makeConstant(v)))
}

// emitReturn emits the function epilogue: an unreachable NIL ahead of the
// RETURN every function body ends with, whether or not the last parsed
// statement was itself a return. Kept uniform rather than special-cased —
// neither affects observable behavior.
func (p *parser) emitReturn() {
	p.emitOp(chunk.OpNil)
	p.emitOp(chunk.OpReturn)
}

func (p *parser) endCompiler() *object.Function {
	p.emitReturn()
	fn := p.fc.function
	p.fc = p.fc.enclosing
	return fn
}

// ---- scopes ----

func (p *parser) beginScope() {
	p.fc.scopeDepth++
}

func (p *parser) endScope() {
	p.fc.scopeDepth--
	for len(p.fc.locals) > 0 &&
		p.fc.locals[len(p.fc.locals)-1].depth > p.fc.scopeDepth {
		p.emitOp(chunk.OpPop)
		p.fc.locals = p.fc.locals[:len(p.fc.locals)-1]
	}
}

// ---- variables ----

func (p *parser) identifierConstant(name string) int {
	s := table.Intern(p.heap, p.strings, name)
	return p.makeConstant(value.NewObj(s))
}

func (p *parser) addLocal(name string) {
	if len(p.fc.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.fc.locals = append(p.fc.locals, local{name: name, depth: -1})
}

// declareVariable rejects a redeclaration of name within the current
// block scope. It first narrows to the slice of locals belonging to this
// scope (walking back past enclosing scopes' locals, which are legal to
// shadow), then asks slices.ContainsFunc rather than hand-rolling the
// membership scan.
func (p *parser) declareVariable() {
	if p.fc.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme

	boundary := len(p.fc.locals)
	for boundary > 0 {
		l := p.fc.locals[boundary-1]
		if l.depth != -1 && l.depth < p.fc.scopeDepth {
			break
		}
		boundary--
	}
	if slices.ContainsFunc(p.fc.locals[boundary:], func(l local) bool { return l.name == name }) {
		p.error("Already a variable with this name in this scope.")
	}

	p.addLocal(name)
}

func (p *parser) parseVariable(message string) int {
	p.consume(token.IDENTIFIER, message)
	p.declareVariable()
	if p.fc.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme)
}

func (p *parser) markInitialized() {
	if p.fc.scopeDepth == 0 {
		return
	}
	p.fc.locals[len(p.fc.locals)-1].depth = p.fc.scopeDepth
}

func (p *parser) defineVariable(global int) {
	if p.fc.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(chunk.OpDefineGlobal, byte(global))
}

func (p *parser) resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := p.resolveLocal(p.fc, name)
	if arg != -1 {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else {
		arg = p.identifierConstant(name)
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && p.match(token.EQUAL) {
		p.expression()
		p.emitBytes(setOp, byte(arg))
	} else {
		p.emitBytes(getOp, byte(arg))
	}
}

// ---- Pratt engine ----

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Type).prefix
	if prefixRule == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		infixRule := getRule(p.previous.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(token.EQUAL) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) expression() {
	p.parsePrecedence(precAssignment)
}

// ---- prefix/infix handlers ----

func number(p *parser, _ bool) {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(value.NewNumber(v))
}

func stringLiteral(p *parser, _ bool) {
	s := table.Intern(p.heap, p.strings, p.previous.Lexeme)
	p.emitConstant(value.NewObj(s))
}

func literal(p *parser, _ bool) {
	switch p.previous.Type {
	case token.FALSE:
		p.emitOp(chunk.OpFalse)
	case token.TRUE:
		p.emitOp(chunk.OpTrue)
	case token.NIL:
		p.emitOp(chunk.OpNil)
	}
}

func variable(p *parser, canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func unary(p *parser, _ bool) {
	opType := p.previous.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case token.BANG:
		p.emitOp(chunk.OpNot)
	case token.MINUS:
		p.emitOp(chunk.OpNegate)
	}
}

func binary(p *parser, _ bool) {
	opType := p.previous.Type
	rule := getRule(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		p.emitOp(chunk.OpEqual)
		p.emitOp(chunk.OpNot)
	case token.EQUAL_EQUAL:
		p.emitOp(chunk.OpEqual)
	case token.GREATER:
		p.emitOp(chunk.OpGreater)
	case token.GREATER_EQUAL:
		p.emitOp(chunk.OpLess)
		p.emitOp(chunk.OpNot)
	case token.LESS:
		p.emitOp(chunk.OpLess)
	case token.LESS_EQUAL:
		p.emitOp(chunk.OpGreater)
		p.emitOp(chunk.OpNot)
	case token.PLUS:
		p.emitOp(chunk.OpAdd)
	case token.MINUS:
		p.emitOp(chunk.OpSubtract)
	case token.STAR:
		p.emitOp(chunk.OpMultiply)
	case token.SLASH:
		p.emitOp(chunk.OpDivide)
	}
}

func and_(p *parser, _ bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func or_(p *parser, _ bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func call(p *parser, _ bool) {
	argc := p.argumentList()
	p.emitBytes(chunk.OpCall, byte(argc))
}

func (p *parser) argumentList() int {
	argc := 0
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.expression()
			if argc == maxArity {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return argc
}

// ---- declarations & statements ----

func (p *parser) declaration() {
	switch {
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

func (p *parser) function(ft functionType) {
	name := p.previous.Lexeme
	p.fc = newFuncCompiler(p, p.fc, ft, name)

	p.beginScope()
	p.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.fc.function.Arity++
			if p.fc.function.Arity > maxArity {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	p.block()

	fn := p.endCompiler()
	idx := p.makeConstant(value.NewObj(fn))
	p.emitBytes(chunk.OpClosure, byte(idx))
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(token.EQUAL) {
		p.expression()
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	p.defineVariable(global)
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.LEFT_BRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitOp(chunk.OpPrint)
}

func (p *parser) returnStatement() {
	if p.fc.funcType == typeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(chunk.OpReturn)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(chunk.OpPop)
}

func (p *parser) ifStatement() {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitOp(chunk.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OpPop)
}

func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitOp(chunk.OpPop)
	}

	if !p.match(token.RIGHT_PAREN) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrementStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OpPop)
	}

	p.endScope()
}
