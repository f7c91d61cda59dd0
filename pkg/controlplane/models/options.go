package models

import "time"

// CoreOptionsID is the primary key of the single CoreOptions row.
const CoreOptionsID = 1

// DefaultCorePort is the API port of a freshly installed core app.
const DefaultCorePort = 8123

// CoreOptions is the persisted operational configuration of the core app.
// There is exactly one row.
type CoreOptions struct {
	ID                     uint      `gorm:"primaryKey" json:"-" yaml:"-"`
	Boot                   bool      `gorm:"not null" json:"boot" yaml:"boot"`
	Image                  *string   `gorm:"size:255" json:"image" yaml:"image" validate:"omitempty,image_ref"`
	Port                   int       `gorm:"not null" json:"port" yaml:"port" validate:"min=1,max=65535"`
	SSL                    bool      `gorm:"not null" json:"ssl" yaml:"ssl"`
	Watchdog               bool      `gorm:"not null" json:"watchdog" yaml:"watchdog"`
	RefreshToken           *string   `gorm:"type:text" json:"refresh_token" yaml:"refresh_token"`
	AudioInput             *string   `gorm:"size:255" json:"audio_input" yaml:"audio_input"`
	AudioOutput            *string   `gorm:"size:255" json:"audio_output" yaml:"audio_output"`
	BackupsExcludeDatabase bool      `gorm:"not null" json:"backups_exclude_database" yaml:"backups_exclude_database"`
	OverrideImage          bool      `gorm:"not null" json:"override_image" yaml:"override_image"`
	Version                string    `gorm:"size:64" json:"version" yaml:"version"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

// TableName returns the table name for CoreOptions.
func (CoreOptions) TableName() string {
	return "core_options"
}

// DefaultCoreOptions returns the options of a core app that has never been
// configured.
func DefaultCoreOptions() CoreOptions {
	return CoreOptions{
		ID:       CoreOptionsID,
		Boot:     true,
		Port:     DefaultCorePort,
		Watchdog: true,
	}
}

// Clone returns a deep copy; nullable fields get their own pointers.
func (o CoreOptions) Clone() CoreOptions {
	c := o
	c.Image = cloneString(o.Image)
	c.RefreshToken = cloneString(o.RefreshToken)
	c.AudioInput = cloneString(o.AudioInput)
	c.AudioOutput = cloneString(o.AudioOutput)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
