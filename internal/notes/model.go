package notes

import "time"

const (
	StatusDraft = "draft"
	StatusFinal = "final"
)

// Section is one named block of note content.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Note is a clinical note attached to a patient, optionally tied to a
// specific appointment.
type Note struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"org_id"`
	PatientID     string    `json:"patient_id"`
	AppointmentID *string   `json:"appointment_id,omitempty"`
	Title         string    `json:"title"`
	Sections      []Section `json:"sections"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SectionPrompt steers generation of one note section.
type SectionPrompt struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Template is an org-scoped set of section prompts.
type Template struct {
	ID        string          `json:"id"`
	OrgID     string          `json:"org_id"`
	Name      string          `json:"name"`
	Sections  []SectionPrompt `json:"sections"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DefaultTemplate is the seeded SOAP layout every org starts with.
func DefaultTemplate(orgID string) Template {
	return Template{
		OrgID: orgID,
		Name:  "SOAP",
		Sections: []SectionPrompt{
			{Name: "subjective", Prompt: "Summarize what the client reported about their own experience, mood, and concerns."},
			{Name: "objective", Prompt: "Describe observable presentation: affect, speech, engagement."},
			{Name: "assessment", Prompt: "Give the clinician's assessment of progress relative to treatment goals."},
			{Name: "plan", Prompt: "State the plan: interventions, homework, and next session focus."},
		},
	}
}

// ValidStatus reports whether s is an accepted note status.
func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusFinal
}
