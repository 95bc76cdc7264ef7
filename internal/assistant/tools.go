package assistant

import (
	"github.com/google/generative-ai-go/genai"

	"github.com/smileworks/dental-ai-platform/internal/dispatch"
)

// toolDeclarations describes every dispatcher operation to the model. The
// declaration names must match the dispatcher's operation names exactly;
// the relay passes them through untranslated.
func toolDeclarations() []*genai.FunctionDeclaration {
	emailParam := &genai.Schema{
		Type:        genai.TypeString,
		Description: "The patient's contact email address",
	}

	return []*genai.FunctionDeclaration{
		{
			Name:        dispatch.OpBook,
			Description: "Book a new dental appointment once all details are collected.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":           {Type: genai.TypeString, Description: "Patient's full name"},
					"preferred_date": {Type: genai.TypeString, Description: "Preferred date in the patient's own words, e.g. 'tomorrow' or '5 March'"},
					"time":           {Type: genai.TypeString, Description: "Preferred time in the patient's own words, e.g. '10:30 AM'"},
					"reason":         {Type: genai.TypeString, Description: "Reason for the visit"},
					"contact_email":  emailParam,
					"contact_phone":  {Type: genai.TypeString, Description: "Optional 10-digit mobile number"},
				},
				Required: []string{"name", "preferred_date", "time", "reason", "contact_email"},
			},
		},
		{
			Name:        dispatch.OpCheckSlot,
			Description: "Check whether a specific date and time slot is free, without booking it.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date": {Type: genai.TypeString, Description: "Date in the patient's own words"},
					"time": {Type: genai.TypeString, Description: "Time in the patient's own words"},
				},
				Required: []string{"date", "time"},
			},
		},
		{
			Name:        dispatch.OpReschedule,
			Description: "Move the patient's nearest upcoming appointment to a new date and time.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"contact_email": emailParam,
					"new_date":      {Type: genai.TypeString, Description: "New date in the patient's own words"},
					"new_time":      {Type: genai.TypeString, Description: "New time in the patient's own words"},
				},
				Required: []string{"contact_email", "new_date", "new_time"},
			},
		},
		{
			Name:        dispatch.OpCancel,
			Description: "Cancel the patient's nearest upcoming appointment.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"contact_email": emailParam},
				Required:   []string{"contact_email"},
			},
		},
		{
			Name:        dispatch.OpLookup,
			Description: "Look up the patient's nearest upcoming appointment.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"contact_email": emailParam},
				Required:   []string{"contact_email"},
			},
		},
		{
			Name:        dispatch.OpUpdatePreferences,
			Description: "Save preferences the patient states, such as preferred visit times or dental anxiety.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"contact_email": emailParam,
					"preferences": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"preferred_times":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
							"preferred_dentist":       {Type: genai.TypeString},
							"insurance_provider":      {Type: genai.TypeString},
							"dental_anxiety":          {Type: genai.TypeBoolean},
							"prefers_brief_responses": {Type: genai.TypeBoolean},
							"prefers_emojis":          {Type: genai.TypeBoolean},
							"tone":                    {Type: genai.TypeString},
						},
					},
				},
				Required: []string{"contact_email", "preferences"},
			},
		},
		{
			Name:        dispatch.OpGetPreferences,
			Description: "Retrieve the preferences stored for the patient.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"contact_email": emailParam},
				Required:   []string{"contact_email"},
			},
		},
		{
			Name:        dispatch.OpModerationGuard,
			Description: "Report an abusive or inappropriate patient message.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
		},
	}
}
