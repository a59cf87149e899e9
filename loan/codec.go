package loan

import (
	"encoding/json"

	"github.com/solventa/lending-engine/engine"
)

// Schedule cache payloads are plain JSON. The format is private to this
// package: producer and consumer are the same code, so there is no
// versioning concern beyond "fails to decode means rebuild".

func encodeSchedule(entries []engine.ScheduleEntry) ([]byte, error) {
	return json.Marshal(entries)
}

func decodeSchedule(payload []byte) ([]engine.ScheduleEntry, error) {
	var entries []engine.ScheduleEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
