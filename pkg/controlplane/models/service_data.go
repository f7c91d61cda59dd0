package models

import (
	"encoding/json"
	"time"
)

// ServiceData is the payload one consumer add-on registered for a service.
type ServiceData struct {
	Slug      string    `gorm:"primaryKey;size:64" json:"slug"`
	Addon     string    `gorm:"primaryKey;size:64" json:"addon"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for ServiceData.
func (ServiceData) TableName() string {
	return "service_data"
}

// ParsePayload unmarshals the JSON payload.
func (d *ServiceData) ParsePayload() (map[string]any, error) {
	out := map[string]any{}
	if d.Payload == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(d.Payload), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPayload marshals payload into the JSON payload field.
func (d *ServiceData) SetPayload(payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	d.Payload = string(data)
	return nil
}
