package types

// Task is a background task run by the in-process scheduler. Schedule uses
// the six-field form with seconds.
type Task struct {
	Name        string `yaml:"name" json:"name"`
	Schedule    string `yaml:"schedule" json:"schedule"`
	Handler     string `yaml:"handler" json:"handler"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Description string `yaml:"description" json:"description"`
}

// TaskConfig represents the background scheduler configuration
type TaskConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent"`
	Predefined    []Task `yaml:"predefined" json:"predefined"`
}
