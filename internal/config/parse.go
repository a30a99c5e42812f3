package config

import (
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/lineio"
	"github.com/JonMunkholm/flr/internal/schema"
)

// EncodingFor returns the encoding for files of schema s. The schema's own
// encoding wins over FLR_ENCODING.
func (p ParseConfig) EncodingFor(s *schema.Schema) string {
	if s.Encoding != "" {
		return s.Encoding
	}
	return p.Encoding
}

// LineBreakFor returns the line break token for files of schema s, or ""
// to detect it on read.
func (p ParseConfig) LineBreakFor(s *schema.Schema) (string, error) {
	if s.LineBreak != "" {
		return schema.ParseLineBreak(s.LineBreak)
	}
	return schema.ParseLineBreak(p.LineBreak)
}

// ReaderOptions returns the line reader options for files of schema s.
func (p ParseConfig) ReaderOptions(s *schema.Schema) (lineio.Options, error) {
	lb, err := p.LineBreakFor(s)
	if err != nil {
		return lineio.Options{}, err
	}
	return lineio.Options{
		Encoding:    p.EncodingFor(s),
		LineBreak:   lb,
		MaxLineSize: p.MaxLineSize,
	}, nil
}

// NewFile returns an empty file for schema s with the parse defaults
// applied. opts are applied last.
func (p ParseConfig) NewFile(s *schema.Schema, opts ...core.Option) (*core.File, error) {
	lb, err := p.LineBreakFor(s)
	if err != nil {
		return nil, err
	}
	base := []core.Option{
		core.WithEncoding(p.EncodingFor(s)),
		core.WithLineBreak(lb),
		core.WithIgnoreUniqueConstraint(p.IgnoreUnique),
		core.WithMaxLines(p.MaxLines),
		core.WithMaxLineSize(p.MaxLineSize),
	}
	f, err := s.NewFile(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if p.RejectAmbiguous {
		f.Registry().SetRejectAmbiguous(true)
	}
	return f, nil
}
