package locks

import (
	"encoding/json"
	"os"
	"time"
)

// Record is the on-disk JSON body of a lock file.
type Record struct {
	PID       int       `json:"pid"`
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"created_at"`
	TaskID    string    `json:"task_id,omitempty"`
	TimeoutSec int      `json:"timeout_sec,omitempty"`
}

func newRecord(taskID string, timeoutSec int) Record {
	host, _ := os.Hostname()
	return Record{
		PID:        os.Getpid(),
		Host:       host,
		CreatedAt:  time.Now().UTC(),
		TaskID:     taskID,
		TimeoutSec: timeoutSec,
	}
}

func marshalRecord(r Record) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func unmarshalRecord(data []byte) (Record, error) {
	var r Record
	err := json.Unmarshal(data, &r)
	return r, err
}
