package rulepack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format selects the rule pack syntax.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatJSON, fmt.Errorf("unknown rule pack format %q (want json or yaml)", s)
}

// FormatFromPath picks the format from the file extension. Anything that is
// not .json is read as YAML, which also accepts JSON documents.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and validates the rule pack at path.
func Load(fs afero.Fs, path string) (*RulePack, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading rule pack %q: %w", path, err)
	}
	pack, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", path).
		Int("required", len(pack.RequiredColumns)).
		Int("numeric", len(pack.NumericRules)).
		Int("crossField", len(pack.CrossFieldRules)).
		Msg("rule pack loaded")
	return pack, nil
}

// Parse decodes and validates a rule pack held in memory.
func Parse(data []byte, format Format) (*RulePack, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return doc.RulePack()
}

// Decode reads the document without validating rule semantics. Syntax and
// type errors are configuration errors.
func Decode(data []byte, format Format) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, configErrorf("rule pack is empty")
	}

	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, wrapConfig(err, "decoding JSON rule pack")
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, configErrorf("decoding JSON rule pack: unexpected data after the top-level object")
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, configErrorf("rule pack is empty")
			}
			return nil, wrapConfig(err, "decoding YAML rule pack")
		}
	}
	return &doc, nil
}

// Encode writes a document in the requested format with a trailing newline.
func Encode(doc *Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("marshalling yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshalling yaml: %w", err)
		}
		return buf.Bytes(), nil
	}

	// Operators such as "<=" must stay readable.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshalling json: %w", err)
	}
	return buf.Bytes(), nil
}
