package assistant

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileworks/dental-ai-platform/internal/dispatch"
)

func TestToolDeclarationsMatchDispatcherOps(t *testing.T) {
	want := []string{
		dispatch.OpBook,
		dispatch.OpCheckSlot,
		dispatch.OpReschedule,
		dispatch.OpCancel,
		dispatch.OpLookup,
		dispatch.OpUpdatePreferences,
		dispatch.OpGetPreferences,
		dispatch.OpModerationGuard,
	}

	decls := toolDeclarations()
	var got []string
	for _, d := range decls {
		got = append(got, d.Name)
	}
	assert.ElementsMatch(t, want, got)
}

func TestBookDeclarationRequiresCoreFields(t *testing.T) {
	for _, d := range toolDeclarations() {
		if d.Name != dispatch.OpBook {
			continue
		}
		assert.ElementsMatch(t,
			[]string{"name", "preferred_date", "time", "reason", "contact_email"},
			d.Parameters.Required,
		)
		assert.NotContains(t, d.Parameters.Required, "contact_phone", "phone stays optional")
		return
	}
	t.Fatal("book declaration missing")
}

func TestFunctionCallAndTextExtraction(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []genai.Part{
					genai.Text("Let me check that. "),
					genai.FunctionCall{Name: dispatch.OpCheckSlot, Args: map[string]any{"date": "tomorrow", "time": "10 AM"}},
				},
			},
		}},
	}

	calls := functionCalls(resp)
	require.Len(t, calls, 1)
	assert.Equal(t, dispatch.OpCheckSlot, calls[0].Name)
	assert.Equal(t, "Let me check that.", responseText(resp))
}

func TestHistoryTrim(t *testing.T) {
	a := &Assistant{histories: make(map[string][]*genai.Content)}

	var history []*genai.Content
	for i := 0; i < historyLimit+10; i++ {
		history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text("hi")}})
	}
	a.storeHistory("s1", history)
	assert.Len(t, a.history("s1"), historyLimit)

	a.ForgetSession("s1")
	assert.Empty(t, a.history("s1"))
}
