package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/services/normalizer"
)

// openInput returns the named file, or stdin for "" and "-".
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	return f, nil
}

// readVectors decodes one or more JSON documents from r. Each document is a
// single object or an array of objects. With raw set they are decoded as
// raw signals and normalized.
func readVectors(r io.Reader, raw bool, n *normalizer.Normalizer) ([]domain.FeatureVector, error) {
	dec := json.NewDecoder(r)

	var out []domain.FeatureVector
	for {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errors.Wrap(err, "decode input")
		}

		docs := []json.RawMessage{msg}
		if len(msg) > 0 && msg[0] == '[' {
			docs = nil
			if err := json.Unmarshal(msg, &docs); err != nil {
				return nil, errors.Wrap(err, "decode input array")
			}
		}

		for _, doc := range docs {
			fv, err := decodeVector(doc, raw, n)
			if err != nil {
				return nil, errors.Wrapf(err, "input #%d", len(out)+1)
			}
			out = append(out, fv)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no input documents")
	}
	return out, nil
}

func decodeVector(doc json.RawMessage, raw bool, n *normalizer.Normalizer) (domain.FeatureVector, error) {
	if raw {
		var signals normalizer.RawSignals
		if err := json.Unmarshal(doc, &signals); err != nil {
			return domain.FeatureVector{}, err
		}
		return n.Normalize(signals), nil
	}

	var fv domain.FeatureVector
	if err := json.Unmarshal(doc, &fv); err != nil {
		return domain.FeatureVector{}, err
	}
	return fv, nil
}
