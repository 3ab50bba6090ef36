package datarecording

import "strings"

// NewForTarget picks the backend from the target. A "clickhouse://" DSN
// selects ClickHouse; anything else names a SQLite file without its
// extension.
func NewForTarget(target string) (DataRecorder, error) {
	if !strings.HasPrefix(target, "clickhouse://") {
		return New(target), nil
	}

	r, err := NewClickHouseRecorder(target, 0)
	if err != nil {
		return nil, err
	}

	return r, nil
}
