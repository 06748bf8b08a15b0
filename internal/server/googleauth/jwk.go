package googleauth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rakutentech/jwk-go/jwk"
)

type parsedKey struct {
	kid string
	key interface{}
}

func parseJWK(raw json.RawMessage) (*parsedKey, error) {
	spec, err := jwk.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing jwk: %w", err)
	}
	if spec.KeyID == "" {
		return nil, errors.New("jwk has no kid")
	}
	return &parsedKey{kid: spec.KeyID, key: spec.Key}, nil
}
