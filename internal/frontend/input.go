// Package frontend adapts the entity list produced by a C++ parsing frontend
// into the ir graph. The rest of the pipeline depends only on ir; swapping
// the parser means producing the same Input.
package frontend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Entity kinds accepted in RawEntity.Kind.
const (
	EntityFunction    = "function"
	EntityMethod      = "method"
	EntityConstructor = "constructor"
	EntityDestructor  = "destructor"
	EntityClass       = "class"
	EntityStruct      = "struct"
	EntityEnum        = "enum"
	EntityTypedef     = "typedef"
	EntityTemplate    = "template"
)

var entityKinds = map[string]bool{
	EntityFunction: true, EntityMethod: true, EntityConstructor: true,
	EntityDestructor: true, EntityClass: true, EntityStruct: true,
	EntityEnum: true, EntityTypedef: true, EntityTemplate: true,
}

// Input is the frontend's complete output for one run.
type Input struct {
	Headers  []string    `json:"headers" cbor:"headers"`
	Entities []RawEntity `json:"entities" cbor:"entities"`
}

// RawEntity is one declaration as reported by the frontend. Type references
// are C++ spellings; unqualified names are resolved against the entity's
// enclosing scopes.
type RawEntity struct {
	Name string `json:"name" cbor:"name"`
	Kind string `json:"kind" cbor:"kind"`
	// Class is the qualified owner of a method, constructor or destructor.
	Class  string `json:"class,omitempty" cbor:"class,omitempty"`
	Header string `json:"header,omitempty" cbor:"header,omitempty"`

	Params []RawParam `json:"params,omitempty" cbor:"params,omitempty"`
	Return string     `json:"return,omitempty" cbor:"return,omitempty"`

	Fields         []RawField   `json:"fields,omitempty" cbor:"fields,omitempty"`
	Bases          []string     `json:"bases,omitempty" cbor:"bases,omitempty"`
	TemplateParams []string     `json:"template_params,omitempty" cbor:"template_params,omitempty"`
	Target         string       `json:"target,omitempty" cbor:"target,omitempty"`
	Variants       []RawVariant `json:"variants,omitempty" cbor:"variants,omitempty"`

	Static      bool `json:"static,omitempty" cbor:"static,omitempty"`
	Const       bool `json:"const,omitempty" cbor:"const,omitempty"`
	Virtual     bool `json:"virtual,omitempty" cbor:"virtual,omitempty"`
	PureVirtual bool `json:"pure_virtual,omitempty" cbor:"pure_virtual,omitempty"`
	Deleted     bool `json:"deleted,omitempty" cbor:"deleted,omitempty"`

	// Traits is nil when the frontend could not derive them.
	Traits     *RawTraits `json:"traits,omitempty" cbor:"traits,omitempty"`
	Incomplete bool       `json:"incomplete,omitempty" cbor:"incomplete,omitempty"`
	IllFormed  bool       `json:"ill_formed,omitempty" cbor:"ill_formed,omitempty"`
}

// RawParam is one function parameter. An empty name is allowed.
type RawParam struct {
	Name string `json:"name,omitempty" cbor:"name,omitempty"`
	Type string `json:"type" cbor:"type"`
}

// RawField is a non-static data member. Private covers protected members
// too: they take part in classification but are never exposed.
type RawField struct {
	Name    string `json:"name" cbor:"name"`
	Type    string `json:"type" cbor:"type"`
	Private bool   `json:"private,omitempty" cbor:"private,omitempty"`
}

// RawVariant is one enumerator; Value holds the initializer as written.
type RawVariant struct {
	Name  string `json:"name" cbor:"name"`
	Value string `json:"value,omitempty" cbor:"value,omitempty"`
}

// RawTraits are the special-member facts of a record as the frontend saw
// them.
type RawTraits struct {
	CopyConstructible    bool `json:"copy_constructible" cbor:"copy_constructible"`
	MoveConstructible    bool `json:"move_constructible" cbor:"move_constructible"`
	TriviallyRelocatable bool `json:"trivially_relocatable" cbor:"trivially_relocatable"`
	UserDestructor       bool `json:"user_destructor" cbor:"user_destructor"`
	Abstract             bool `json:"abstract" cbor:"abstract"`
	AddressSensitive     bool `json:"address_sensitive,omitempty" cbor:"address_sensitive,omitempty"`
}

// Validate checks the fields every entity must carry.
func (in *Input) Validate() error {
	for i, e := range in.Entities {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("entity %d: missing name", i)
		}
		if !entityKinds[e.Kind] {
			return fmt.Errorf("entity %s: unknown kind %q", e.Name, e.Kind)
		}
		switch e.Kind {
		case EntityMethod, EntityConstructor, EntityDestructor:
			if e.Class == "" {
				return fmt.Errorf("entity %s: %s without owning class", e.Name, e.Kind)
			}
		}
	}
	return nil
}

// DecodeJSON reads an Input encoded as JSON.
func DecodeJSON(r io.Reader) (*Input, error) {
	var in Input
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("frontend: decode json: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("frontend: %w", err)
	}
	return &in, nil
}

// DecodeCBOR reads an Input encoded as CBOR.
func DecodeCBOR(r io.Reader) (*Input, error) {
	dm, err := cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("frontend: cbor mode: %w", err)
	}
	var in Input
	if err := dm.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("frontend: decode cbor: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("frontend: %w", err)
	}
	return &in, nil
}

// EncodeJSON writes in as indented JSON.
func EncodeJSON(w io.Writer, in *Input) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(in); err != nil {
		return fmt.Errorf("frontend: encode json: %w", err)
	}
	return nil
}

// EncodeCBOR writes in using canonical CBOR so identical inputs encode to
// identical bytes.
func EncodeCBOR(w io.Writer, in *Input) error {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("frontend: cbor mode: %w", err)
	}
	if err := em.NewEncoder(w).Encode(in); err != nil {
		return fmt.Errorf("frontend: encode cbor: %w", err)
	}
	return nil
}

// Load reads an Input file, choosing the decoder by extension.
func Load(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeJSON(bytes.NewReader(data))
	case ".cbor":
		return DecodeCBOR(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("frontend: %s: unsupported entity file extension", path)
	}
}

// Save writes an Input file, choosing the encoder by extension.
func Save(path string, in *Input) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := EncodeJSON(&buf, in); err != nil {
			return err
		}
	case ".cbor":
		if err := EncodeCBOR(&buf, in); err != nil {
			return err
		}
	default:
		return fmt.Errorf("frontend: %s: unsupported entity file extension", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("frontend: %w", err)
	}
	return nil
}
