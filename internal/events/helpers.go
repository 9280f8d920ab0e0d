package events

import (
	"encoding/json"
	"fmt"
)

// SetSaveData sets the Data field with SaveData in a type-safe way.
func (e *Event) SetSaveData(data SaveData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert SaveData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetSaveData retrieves SaveData from the Data field.
func (e *Event) GetSaveData() (*SaveData, error) {
	var data SaveData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse SaveData: %w", err)
	}
	return &data, nil
}

// SetReloadData sets the Data field with ReloadData in a type-safe way.
func (e *Event) SetReloadData(data ReloadData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert ReloadData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetReloadData retrieves ReloadData from the Data field.
func (e *Event) GetReloadData() (*ReloadData, error) {
	var data ReloadData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse ReloadData: %w", err)
	}
	return &data, nil
}

// SetMigrationData sets the Data field with MigrationData in a type-safe way.
func (e *Event) SetMigrationData(data MigrationData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert MigrationData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetMigrationData retrieves MigrationData from the Data field.
func (e *Event) GetMigrationData() (*MigrationData, error) {
	var data MigrationData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse MigrationData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
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
