package common

import (
	"encoding/json"
)

// ConvertInterfaceToInterface copies from into to through their JSON form.
// It is used to turn typed values into plain maps and slices.
func ConvertInterfaceToInterface(from any, to any) error {
	if from == nil {
		return nil
	}

	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, to)
}
