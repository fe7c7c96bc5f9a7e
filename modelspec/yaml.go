package modelspec

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

// FormatVersion is the document envelope version written by Encode and
// required by Decode.
const FormatVersion = "1.0"

// envelope is the outer YAML document. The model body is held as a raw node
// and decoded a second time once the kind is known, mirroring a tagged
// union.
type envelope struct {
	FormatVersion string    `yaml:"format_version"`
	Kind          Kind      `yaml:"kind"`
	Model         yaml.Node `yaml:"model"`
}

// Encode writes s to w as a versioned YAML document.
//
// The document validates before writing, so a malformed spec never reaches
// disk. Floats serialize in shortest-round-trip form; decoding the output
// yields a spec whose predictions are bit-identical to the original's.
func Encode(w io.Writer, s Spec) error {
	const op = "modelspec.Encode"
	if s == nil {
		return errors.NewValueError(op, "spec must not be nil")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	var body yaml.Node
	if err := body.Encode(s); err != nil {
		return errors.Wrapf(err, "%s: failed to encode model body", op)
	}
	env := envelope{
		FormatVersion: FormatVersion,
		Kind:          s.Kind(),
		Model:         body,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&env); err != nil {
		return errors.Wrapf(err, "%s: failed to encode document", op)
	}
	return enc.Close()
}

// Decode reads one model document from r and returns the typed spec.
//
// Unknown envelope or body fields, a missing or mismatched format_version,
// an unknown kind and any structural defect all fail with an error wrapping
// ErrInvalidModel.
func Decode(r io.Reader) (Spec, error) {
	const op = "modelspec.Decode"

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var env envelope
	if err := dec.Decode(&env); err != nil {
		if err == io.EOF {
			return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: empty document", op)
		}
		return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: %v", op, err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, errors.Wrapf(errors.ErrInvalidModel,
			"%s: unsupported format version %q (want %q)", op, env.FormatVersion, FormatVersion)
	}
	if env.Model.IsZero() {
		return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: model body is required", op)
	}

	var s Spec
	switch env.Kind {
	case KindLinear:
		var l Linear
		if err := strictDecodeNode(&env.Model, &l); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: %v", op, err)
		}
		s = &l
	case KindTreeEnsemble:
		var e Ensemble
		if err := strictDecodeNode(&env.Model, &e); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: %v", op, err)
		}
		s = &e
	case "":
		return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: kind is required", op)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidModel, "%s: unknown model kind %q", op, env.Kind)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// strictDecodeNode re-decodes a raw node with unknown-field checking.
// yaml.Node.Decode has no strict mode, so the node goes through an
// encoder/decoder pair; model bodies are small enough that the extra pass
// does not matter.
func strictDecodeNode(node *yaml.Node, out interface{}) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// WriteFile encodes s into path, creating or truncating the file.
func WriteFile(path string, s Spec) (err error) {
	const op = "modelspec.WriteFile"
	f, cerr := os.Create(path)
	if cerr != nil {
		return errors.Wrapf(cerr, "%s: failed to create file", op)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "%s: failed to close file", op)
		}
	}()

	if err = Encode(f, s); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("modelspec")
	logger.Debug("model document written",
		log.ModelNameKey, string(s.Kind()),
		"path", path,
	)
	return nil
}

// ReadFile decodes one model document from path.
func ReadFile(path string) (Spec, error) {
	const op = "modelspec.ReadFile"
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to open file", op)
	}
	defer f.Close()
	return Decode(f)
}
