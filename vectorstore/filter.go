package vectorstore

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// Filter keys honoured by Search. Any other key is ignored.
const (
	FilterDocumentID = "document_id"
	FilterFundID     = "fund_id"
)

// Filter holds equality constraints on chunk metadata.
type Filter map[string]any

// resolve converts the whitelisted keys into a repository filter.
func (f Filter) resolve(logger *slog.Logger) (storage.EmbeddingFilter, error) {
	var out storage.EmbeddingFilter
	for key, value := range f {
		var target *core.ID
		switch key {
		case FilterDocumentID:
			target = &out.DocumentID
		case FilterFundID:
			target = &out.FundID
		default:
			logger.Debug("ignoring unsupported filter key", "key", key)
			continue
		}

		id, err := toID(value)
		if err != nil {
			return storage.EmbeddingFilter{}, fmt.Errorf("%w: %s=%v: %w", ErrInvalidFilter, key, value, err)
		}
		*target = id
	}
	return out, nil
}

func toID(value any) (core.ID, error) {
	switch v := value.(type) {
	case core.ID:
		return v, nil
	case int:
		return signedID(int64(v))
	case int32:
		return signedID(int64(v))
	case int64:
		return signedID(v)
	case uint:
		return core.ID(v), nil
	case uint32:
		return core.ID(v), nil
	case uint64:
		return core.ID(v), nil
	case float64:
		// JSON numbers decode as float64
		if v < 0 || v != math.Trunc(v) || v > math.MaxUint64 {
			return 0, errors.New("not an integer")
		}
		return core.ID(v), nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return core.ID(n), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func signedID(v int64) (core.ID, error) {
	if v < 0 {
		return 0, errors.New("negative")
	}
	return core.ID(v), nil
}
