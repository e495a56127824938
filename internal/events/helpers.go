package events

import (
	"encoding/json"
	"fmt"
)

// SetData stores data (a struct from this package) in the Data field.
func (e *Event) SetData(data interface{}) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert %T: %w", data, err)
	}
	e.Data = dataMap
	return nil
}

// GetRemediationActionData retrieves RemediationActionData from the Data field.
func (e *Event) GetRemediationActionData() (*RemediationActionData, error) {
	var data RemediationActionData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse RemediationActionData: %w", err)
	}
	return &data, nil
}

// GetClusterCompletedData retrieves ClusterCompletedData from the Data field.
func (e *Event) GetClusterCompletedData() (*ClusterCompletedData, error) {
	var data ClusterCompletedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse ClusterCompletedData: %w", err)
	}
	return &data, nil
}

// GetRunCompletedData retrieves RunCompletedData from the Data field.
func (e *Event) GetRunCompletedData() (*RunCompletedData, error) {
	var data RunCompletedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse RunCompletedData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to a map[string]interface{} using JSON marshaling.
func structToMap(data interface{}) (map[string]interface{}, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// mapToStruct converts a map[string]interface{} to a struct using JSON unmarshaling.
func mapToStruct(dataMap map[string]interface{}, target interface{}) error {
	bytes, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}
