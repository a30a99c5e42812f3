package core

// Classify decides whether line is a header, a footer or a body line, and
// returns the record type that accepts it.
//
// Header and footer types accept a line when either configured criterion
// matches. Body types need every configured criterion to match; when several
// body types accept the line the last registered one wins, unless the
// registry rejects ambiguous matches.
func (r *Registry) Classify(line string) (Class, *RecordType, error) {
	return r.classify(line, 0, 0)
}

func (r *Registry) classify(line string, lineNo, stackNo int) (Class, *RecordType, error) {
	n := lineLength(line)

	if r.header != nil && r.header.acceptsAny(line, n) {
		return ClassHeader, r.header, nil
	}
	if r.footer != nil && r.footer.acceptsAny(line, n) {
		return ClassFooter, r.footer, nil
	}

	var match *RecordType
	var kinds []string
	for _, rt := range r.body {
		if !rt.acceptsAll(line, n) {
			continue
		}
		match = rt
		kinds = append(kinds, rt.Kind())
	}

	if match == nil {
		return ClassBody, nil, &NoMatchingTypeError{Line: lineNo, Stack: stackNo, Length: n}
	}
	if r.rejectAmbiguous && len(kinds) > 1 {
		return ClassBody, nil, &AmbiguousMatchError{Line: lineNo, Stack: stackNo, Kinds: kinds}
	}
	return ClassBody, match, nil
}
