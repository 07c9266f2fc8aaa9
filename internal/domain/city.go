package domain

// City is one work unit of a generation run.
type City struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	State      string `json:"state" yaml:"state"`
	StateName  string `json:"stateName" yaml:"stateName"`
	Region     string `json:"region" yaml:"region"`
	Population int    `json:"population" yaml:"population"`
}

// Theme is a satirical premise used to diversify content.
type Theme struct {
	ID    int
	Title string
}
