package operations

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ourzora/drops-deployer/pkg/logger"
)

// IsSerializable reports whether v can be marshaled to JSON. Reports are written to disk and
// replayed on resume, so values such as channels or funcs are rejected.
func IsSerializable(lggr logger.Logger, v any) bool {
	if v == nil {
		return true
	}

	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	return true
}

// constructUniqueHashFrom returns a hash identifying an execution of def with input. The input is
// normalized through a generic JSON value first so a typed input and the same input read back
// from disk as map[string]any hash identically.
func constructUniqueHashFrom(cache *sync.Map, def Definition, input any) (string, error) {
	version := ""
	if def.Version != nil {
		version = def.Version.String()
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal input: %w", err)
	}

	key := def.ID + "|" + version + "|" + string(raw)
	if cache != nil {
		if h, ok := cache.Load(key); ok {
			return h.(string), nil
		}
	}

	var generic any
	if err = json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("normalize input: %w", err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("normalize input: %w", err)
	}

	sum := sha256.Sum256([]byte(def.ID + "|" + version + "|" + string(normalized)))
	h := hex.EncodeToString(sum[:])
	if cache != nil {
		cache.Store(key, h)
	}

	return h, nil
}
