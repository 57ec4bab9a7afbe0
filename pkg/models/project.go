package models

import "time"

// Project is the engineering context a goal executes within.
type Project struct {
	ID           ProjectID     `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Config       ProjectConfig `json:"config"`
	Phases       []PhaseID     `json:"phases"`
	CurrentPhase PhaseID       `json:"current_phase"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ProjectConfig captures the project's conventions and tooling.
type ProjectConfig struct {
	TechStack      []string         `json:"tech_stack"`
	Structure      DirStructure     `json:"structure"`
	QualityProfile QualityProfileID `json:"quality_profile"`
	Tools          ToolConfig       `json:"tools"`
}

// DirStructure records required directories and layout conventions.
type DirStructure struct {
	Dirs        []string `json:"dirs"`
	Conventions []string `json:"conventions"`
}

// ToolConfig names the project's build and verification tooling.
type ToolConfig struct {
	Build         string   `json:"build"`
	TestFramework string   `json:"test_framework"`
	Linters       []string `json:"linters"`
	Formatters    []string `json:"formatters"`
}
