package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ChecklistMap holds a session's checklist state: item key -> bool, or
// item key -> nested group of sub-item bools. Arbitrary keys are allowed;
// only the evaluator decides which keys count toward completion.
type ChecklistMap map[string]interface{}

func (m ChecklistMap) Value() (driver.Value, error) {
	if m == nil {
		m = ChecklistMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *ChecklistMap) Scan(value interface{}) error {
	if value == nil {
		*m = ChecklistMap{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan checklist from %T", value)
	}

	if len(data) == 0 {
		*m = ChecklistMap{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return errors.New("invalid checklist payload: " + err.Error())
	}
	return nil
}

// Merge applies delta on top of m, key by key. Last writer wins per key;
// a session has a single owning worker so this is sufficient.
func (m ChecklistMap) Merge(delta ChecklistMap) ChecklistMap {
	out := ChecklistMap{}
	for k, v := range m {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}
