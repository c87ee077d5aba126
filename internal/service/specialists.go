package service

import "github.com/cura-ai/cura/internal/core"

// DefaultSpecialist is appended by the selector when too few valid
// names survive validation, and serves as the safety-net reviewer.
const DefaultSpecialist = "General Practitioner"

// DefaultSelection is the fixed fallback returned when automatic
// selection fails entirely.
func DefaultSelection() []string {
	return []string{"Cardiologist", "Psychologist", "Pulmonologist"}
}

// DefaultSpecialists returns the built-in specialist catalog in
// display order. Each entry names the embedded prompt template that
// builds its consultation directive.
func DefaultSpecialists() []core.SpecialistDefinition {
	return []core.SpecialistDefinition{
		{Name: "Cardiologist", DisplayName: "Cardiologist", Icon: "heart", Template: "specialist-cardiologist"},
		{Name: "Psychologist", DisplayName: "Psychologist", Icon: "brain", Template: "specialist-psychologist"},
		{Name: "Pulmonologist", DisplayName: "Pulmonologist", Icon: "lungs", Template: "specialist-pulmonologist"},
		{Name: "Neurologist", DisplayName: "Neurologist", Icon: "nerve", Template: "specialist-neurologist"},
		{Name: "Endocrinologist", DisplayName: "Endocrinologist", Icon: "hormone", Template: "specialist-endocrinologist"},
		{Name: "Oncologist", DisplayName: "Oncologist", Icon: "ribbon", Template: "specialist-oncologist"},
		{Name: "Dermatologist", DisplayName: "Dermatologist", Icon: "skin", Template: "specialist-dermatologist"},
		{Name: "Gastroenterologist", DisplayName: "Gastroenterologist", Icon: "stomach", Template: "specialist-gastroenterologist"},
		{Name: "Orthopedist", DisplayName: "Orthopedist", Icon: "bone", Template: "specialist-orthopedist"},
		{Name: DefaultSpecialist, DisplayName: DefaultSpecialist, Icon: "stethoscope", Template: "specialist-general-practitioner"},
	}
}

// NewDefaultRegistry builds a registry from the built-in catalog.
func NewDefaultRegistry() *core.Registry {
	return core.NewRegistry(DefaultSpecialists())
}
