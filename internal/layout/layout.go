package layout

import (
	"ferry/internal/hosttype"
)

// TypeLayout is the ABI layout of a host type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Record-only:
	FieldOffsets []int
}

// Engine computes and caches memory layout for host types. The export core
// reads record alloc sizes and field byte offsets from here; it never
// computes layout itself.
type Engine struct {
	Target Target
	Types  *hosttype.Interner

	cache map[hosttype.TypeID]cacheEntry
}

type cacheEntry struct {
	layout TypeLayout
	err    *Error
}

func New(target Target, types *hosttype.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  types,
		cache:  make(map[hosttype.TypeID]cacheEntry, 32),
	}
}

type state struct {
	stack []hosttype.TypeID
	index map[hosttype.TypeID]int
}

// LayoutOf computes and caches the layout of a type.
func (e *Engine) LayoutOf(t hosttype.TypeID) (TypeLayout, error) {
	st := &state{index: make(map[hosttype.TypeID]int, 8)}
	l, err := e.layoutOf(t, st)
	if err != nil {
		return l, err
	}
	return l, nil
}

// SizeOf returns the size of a type in bytes.
func (e *Engine) SizeOf(t hosttype.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *Engine) AlignOf(t hosttype.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a record field by declaration index.
func (e *Engine) FieldOffset(record hosttype.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(record)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}

func (e *Engine) layoutOf(t hosttype.TypeID, st *state) (TypeLayout, *Error) {
	canon := e.Types.Canonical(t)
	if cached, ok := e.cache[canon]; ok {
		return cached.layout, cached.err
	}

	if idx, ok := st.index[canon]; ok {
		cycle := append([]hosttype.TypeID(nil), st.stack[idx:]...)
		cycle = append(cycle, canon)
		err := &Error{Kind: ErrRecursiveUnsized, Type: canon, Cycle: cycle}
		e.cache[canon] = cacheEntry{layout: TypeLayout{Size: 0, Align: 1}, err: err}
		return TypeLayout{Size: 0, Align: 1}, err
	}

	st.index[canon] = len(st.stack)
	st.stack = append(st.stack, canon)
	l, err := e.compute(canon, st)
	st.stack = st.stack[:len(st.stack)-1]
	delete(st.index, canon)

	e.cache[canon] = cacheEntry{layout: l, err: err}
	return l, err
}

func (e *Engine) compute(id hosttype.TypeID, st *state) (TypeLayout, *Error) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}

	switch tt.Kind {
	case hosttype.KindBuiltin:
		return e.builtinLayout(tt.Builtin), nil

	case hosttype.KindPointer, hosttype.KindFunction:
		return e.ptrLayout(), nil

	case hosttype.KindVector:
		elem, err := e.layoutOf(tt.Elem, st)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		// Width-3 vectors occupy a 4-element slot; that padding is exactly
		// why the checker restricts vec3 arrays.
		count := int(tt.Count)
		if count == 3 {
			count = 4
		}
		return TypeLayout{Size: elem.Size * count, Align: elem.Align * count}, nil

	case hosttype.KindArray:
		elem, err := e.layoutOf(tt.Elem, st)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		stride := roundUp(elem.Size, elem.Align)
		return TypeLayout{Size: stride * int(tt.Count), Align: elem.Align}, nil

	case hosttype.KindRecord:
		return e.recordLayout(id, st)

	default:
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}
}

func (e *Engine) builtinLayout(bk hosttype.BuiltinKind) TypeLayout {
	switch bk {
	case hosttype.BuiltinBool, hosttype.BuiltinChar, hosttype.BuiltinUChar:
		return scalarLayout(1)
	case hosttype.BuiltinShort, hosttype.BuiltinUShort:
		return scalarLayout(2)
	case hosttype.BuiltinInt, hosttype.BuiltinUInt, hosttype.BuiltinFloat, hosttype.BuiltinWChar:
		return scalarLayout(4)
	case hosttype.BuiltinLong, hosttype.BuiltinULong, hosttype.BuiltinDouble:
		return scalarLayout(8)
	case hosttype.BuiltinLongDouble:
		return scalarLayout(16)
	default:
		return TypeLayout{Size: 0, Align: 1}
	}
}

func (e *Engine) recordLayout(id hosttype.TypeID, st *state) (TypeLayout, *Error) {
	info, ok := e.Types.RecordInfo(id)
	if !ok || !info.Defined {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUndefinedRecord, Type: id}
	}
	offsets := make([]int, len(info.Fields))

	if info.Union {
		size := 0
		align := 1
		for i := range info.Fields {
			fl, err := e.layoutOf(info.Fields[i].Type, st)
			if err != nil {
				return TypeLayout{Size: 0, Align: 1}, err
			}
			offsets[i] = 0
			size = maxInt(size, fl.Size)
			align = maxInt(align, fl.Align)
		}
		return TypeLayout{Size: roundUp(size, align), Align: align, FieldOffsets: offsets}, nil
	}

	if info.Packed {
		size := 0
		for i := range info.Fields {
			fl, err := e.layoutOf(info.Fields[i].Type, st)
			if err != nil {
				return TypeLayout{Size: 0, Align: 1}, err
			}
			offsets[i] = size
			size += fl.Size
		}
		return TypeLayout{Size: size, Align: 1, FieldOffsets: offsets}, nil
	}

	size := 0
	align := 1
	for i := range info.Fields {
		fl, err := e.layoutOf(info.Fields[i].Type, st)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := maxInt(fl.Align, 1)
		size = roundUp(size, fAlign)
		offsets[i] = size
		size += fl.Size
		align = maxInt(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{Size: size, Align: align, FieldOffsets: offsets}, nil
}

func (e *Engine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayout(size int) TypeLayout {
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
