package core

import "errors"

// assembler groups classified lines into stacks.
//
// Boundary rules:
//   - A footer closes the current stack; the next line starts a new one.
//   - Without a footer type, a header starts a new stack unless it is the
//     first line of the current stack.
//   - A trailing empty stack (left behind by a final footer) is dropped.
//
// Every stack boundary clears the unique caches of all record types.
type assembler struct {
	file *File
	reg  *Registry

	stacks []*Stack
	cur    int // current stack number, 0-based
	seen   int // lines consumed in the current stack
	line   int // lines consumed overall, 1-based after feed
}

func newAssembler(f *File) *assembler {
	return &assembler{
		file:   f,
		reg:    f.registry,
		stacks: []*Stack{{}},
	}
}

func (a *assembler) current() *Stack { return a.stacks[a.cur] }

// feed consumes one line.
func (a *assembler) feed(line string) error {
	a.line++

	class, rt, err := a.reg.classify(line, a.line, a.cur+1)
	if err != nil {
		return err
	}

	if class == ClassHeader && a.reg.footer == nil && a.seen > 0 {
		a.startStack()
	}

	e, cached, err := a.decode(rt, line)
	if err != nil {
		return err
	}

	switch class {
	case ClassHeader:
		if err := a.check(cached); err != nil {
			return err
		}
		a.current().Header = &e
		a.seen++

	case ClassFooter:
		if err := a.check(cached); err != nil {
			return err
		}
		a.current().Footer = &e
		a.seen++
		a.startStack()

	default:
		stack := a.current()
		verr := ValidateBody(stack, e)
		if verr == nil {
			verr = cached
		}
		if err := a.check(verr); err != nil {
			return err
		}
		stack.Body = append(stack.Body, e)
		a.seen++
	}
	return nil
}

// decode runs the codec for rt. cached holds a unique violation reported by
// the codec's own cache; the record is still returned in that case.
func (a *assembler) decode(rt *RecordType, line string) (e Entry, cached error, err error) {
	rec, err := rt.Codec().Decode(line)
	if err == nil {
		return Entry{Type: rt, Record: rec}, nil, nil
	}

	var uv *UniqueConstraintViolation
	if errors.As(err, &uv) && rec != nil {
		return Entry{Type: rt, Record: rec}, err, nil
	}

	return Entry{}, nil, &DecodeError{
		Line:  a.line,
		Stack: a.cur + 1,
		Kind:  rt.Kind(),
		Err:   err,
	}
}

// check applies the ignore policy to a unique violation. It returns nil when
// there is no violation or it was downgraded to a warning.
func (a *assembler) check(verr error) error {
	if verr == nil {
		return nil
	}
	perr := &PositionError{Line: a.line, Stack: a.cur + 1, Err: verr}
	if !a.file.ignoreUnique {
		return perr
	}
	a.file.warn(perr)
	return nil
}

func (a *assembler) startStack() {
	a.stacks = append(a.stacks, &Stack{})
	a.cur++
	a.seen = 0
	a.reg.ResetUniqueCaches()
}

// finish returns the assembled stacks without a trailing empty stack.
func (a *assembler) finish() []*Stack {
	if n := len(a.stacks); n > 0 && a.stacks[n-1].IsEmpty() {
		a.stacks = a.stacks[:n-1]
	}
	return a.stacks
}
