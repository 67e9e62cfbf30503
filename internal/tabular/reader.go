package tabular

import (
	"slices"
)

// Reader parses identifier files of a declared format into an
// IdentifierRecord. A Reader is safe for concurrent use.
type Reader struct {
	normalizer columnNormalizer
	validator  *Validator
}

// Option configures a Reader.
type Option func(*Reader)

// WithColumn sets the canonical identifier column name.
func WithColumn(name string) Option {
	return func(r *Reader) {
		if name != "" {
			r.normalizer.canonical = name
		}
	}
}

// WithAliases replaces the accepted alias header names.
func WithAliases(aliases ...string) Option {
	return func(r *Reader) {
		r.normalizer.aliases = slices.Clone(aliases)
	}
}

// WithValidator replaces the identifier validator.
func WithValidator(v *Validator) Option {
	return func(r *Reader) {
		if v != nil {
			r.validator = v
		}
	}
}

// NewReader returns a Reader using the canonical "Uid" column, the default
// aliases and the default validator unless overridden.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		normalizer: columnNormalizer{canonical: DefaultColumn, aliases: slices.Clone(DefaultAliases)},
		validator:  NewValidator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Column returns the canonical identifier column name.
func (r *Reader) Column() string {
	return r.normalizer.canonical
}

// Read parses path as format and returns its identifiers.
func (r *Reader) Read(path string, format Format) (IdentifierRecord, error) {
	ins, err := r.Inspect(path, format)
	if err != nil {
		return IdentifierRecord{}, err
	}
	return ins.Record, nil
}

// Inspection is the outcome of reading a file: where the identifiers came
// from and what the validator saw.
type Inspection struct {
	Path       string           `json:"-"`
	Format     Format           `json:"format"`
	Columns    []string         `json:"columns"`
	Column     string           `json:"column"`
	ResolvedBy Resolution       `json:"resolved_by"`
	Total      int              `json:"total"`
	Samples    []string         `json:"samples"`
	Record     IdentifierRecord `json:"-"`
}

// Inspect runs the full read pipeline and reports how the identifier column
// was resolved. It fails exactly when Read fails.
func (r *Reader) Inspect(path string, format Format) (*Inspection, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, &Error{Kind: ErrUnsupportedFormat, Path: path, Format: format}
	}

	table, err := decode(path)
	if err != nil {
		return nil, parseError(path, format, err)
	}

	col, how, ok := r.normalizer.normalize(table)
	if !ok {
		return nil, &Error{
			Kind:    ErrMissingColumn,
			Path:    path,
			Format:  format,
			Column:  r.normalizer.canonical,
			Columns: table.Names(),
		}
	}

	values := compact(col.Values)
	if len(values) == 0 {
		return nil, parseError(path, format, errNoRows)
	}

	if err := r.validator.Validate(path, values); err != nil {
		return nil, annotate(err, func(te *Error) { te.Format = format })
	}

	sample, _ := r.validator.Check(values)
	return &Inspection{
		Path:       path,
		Format:     format,
		Columns:    table.Names(),
		Column:     col.Name,
		ResolvedBy: how,
		Total:      len(values),
		Samples:    slices.Clone(sample),
		Record:     IdentifierRecord{values: values},
	}, nil
}
