package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// rw_prot envelope constants, fixed by the device firmware.
const (
	protocolVersion   = "1.0.1"
	directionDownlink = "down"
)

// wireEntry is a single named write in a rw_prot downlink. Values are
// stringified numbers; the firmware parses them on its side.
type wireEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type envelope struct {
	RWProt envelopeBody `json:"rw_prot"`
}

type envelopeBody struct {
	Ver   string      `json:"Ver"`
	Dir   string      `json:"dir"`
	ID    string      `json:"id"`
	WData []wireEntry `json:"w_data"`
}

// Encode validates cmd and serializes it into the rw_prot downlink
// envelope published on the command topic:
//
//	{"rw_prot":{"Ver":"1.0.1","dir":"down","id":"<uuid>","w_data":[...]}}
//
// Validation failures are returned before any envelope is built, so an
// out-of-range command never produces a partial publish.
func Encode(cmd Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	env := envelope{
		RWProt: envelopeBody{
			Ver:   protocolVersion,
			Dir:   directionDownlink,
			ID:    uuid.New().String(),
			WData: cmd.wireEntries(),
		},
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return payload, nil
}
