package ai

import (
	"fmt"
	"strings"

	"github.com/gracebase/content-pipeline/internal/schemas"
	"github.com/gracebase/content-pipeline/internal/types"
)

// contentDescriptions gives the model a one-line brief per content type.
var contentDescriptions = map[types.ContentType]string{
	types.ContentDevotion:        "a daily devotion with a title, a reflective body, and the scripture reference it is built on",
	types.ContentVerse:           "a Bible verse of the day with its text and canonical reference",
	types.ContentFigure:          "a profile of a biblical figure with their name, a short summary, and a longer biography",
	types.ContentQuiz:            "a Bible knowledge quiz with a title, numbered questions, and matching answers",
	types.ContentStudy:           "a Bible study with a title, teaching body, and discussion questions",
	types.ContentDevotionPlan:    "a multi-day devotion plan with a title, description, and a day-by-day outline",
	types.ContentTopicalCategory: "a topical scripture category with a name and description",
	types.ContentTopicalVerse:    "a verse matched to a spiritual topic, with the topic, verse text, and reference",
	types.ContentShareableImage:  "a shareable verse image with a caption and an image generation prompt",
}

// BuildPrompt constructs the single-shot generation prompt: the model must
// return one JSON object whose keys are the content type's fields and whose
// values map language codes to text.
func BuildPrompt(req types.GenerationRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate %s.\n\n", contentDescriptions[req.ContentType])

	if req.CustomPrompt != "" {
		fmt.Fprintf(&sb, "Additional direction from the requesting church: %s\n\n", req.CustomPrompt)
	}

	fmt.Fprintf(&sb, "Produce every field in each of these languages: %s.\n", strings.Join(req.Languages, ", "))
	sb.WriteString("Respond with a single JSON object. Each key is a field name; each value is an object mapping a language code to the text in that language.\n")
	fmt.Fprintf(&sb, "Required fields: %s.\n", strings.Join(schemas.RequiredFields[req.ContentType], ", "))
	sb.WriteString("Do not include any keys other than the field names. Do not wrap the JSON in markdown.\n")

	return sb.String()
}

// BuildStreamPrompt constructs the streaming generation prompt: the model
// emits newline-delimited delta objects so partial content can be rendered
// as it is produced, ending with a line containing only DONE.
func BuildStreamPrompt(req types.GenerationRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate %s.\n\n", contentDescriptions[req.ContentType])

	if req.CustomPrompt != "" {
		fmt.Fprintf(&sb, "Additional direction from the requesting church: %s\n\n", req.CustomPrompt)
	}

	fmt.Fprintf(&sb, "Produce every field in each of these languages: %s.\n", strings.Join(req.Languages, ", "))
	fmt.Fprintf(&sb, "Required fields: %s.\n", strings.Join(schemas.RequiredFields[req.ContentType], ", "))
	sb.WriteString("Emit the content incrementally as newline-delimited JSON objects, one per line, of the form\n")
	sb.WriteString(`{"path": "<field>/<language>", "append": "<next portion of text>"}` + "\n")
	sb.WriteString("Write each field in order, a few sentences per line at most. ")
	sb.WriteString("When every field is complete in every language, emit a final line containing exactly DONE. ")
	sb.WriteString("Emit nothing except these lines.\n")

	return sb.String()
}
