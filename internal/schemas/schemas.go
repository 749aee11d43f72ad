// Package schemas provides JSON Schema validation for generated content payloads.
package schemas

import "github.com/gracebase/content-pipeline/internal/types"

// localizedField is the schema fragment for one field of a content payload:
// a non-empty map of language code (or "*") to text.
const localizedField = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {"type": "string", "minLength": 1}
}`

// contentSchemas maps each content type to the JSON Schema its generated
// payload must satisfy before it may enter a job result or content record.
var contentSchemas = map[types.ContentType]string{
	types.ContentDevotion: `{
  "type": "object",
  "required": ["title", "body", "scriptureReference"],
  "properties": {
    "title": ` + localizedField + `,
    "body": ` + localizedField + `,
    "scriptureReference": ` + localizedField + `,
    "prayer": ` + localizedField + `
  }
}`,
	types.ContentVerse: `{
  "type": "object",
  "required": ["verseText", "reference"],
  "properties": {
    "verseText": ` + localizedField + `,
    "reference": ` + localizedField + `,
    "reflection": ` + localizedField + `
  }
}`,
	types.ContentFigure: `{
  "type": "object",
  "required": ["name", "summary", "biography"],
  "properties": {
    "name": ` + localizedField + `,
    "summary": ` + localizedField + `,
    "biography": ` + localizedField + `,
    "keyVerses": ` + localizedField + `
  }
}`,
	types.ContentQuiz: `{
  "type": "object",
  "required": ["title", "questions", "answers"],
  "properties": {
    "title": ` + localizedField + `,
    "questions": ` + localizedField + `,
    "answers": ` + localizedField + `
  }
}`,
	types.ContentStudy: `{
  "type": "object",
  "required": ["title", "body", "discussionQuestions"],
  "properties": {
    "title": ` + localizedField + `,
    "body": ` + localizedField + `,
    "discussionQuestions": ` + localizedField + `
  }
}`,
	types.ContentDevotionPlan: `{
  "type": "object",
  "required": ["title", "description", "outline"],
  "properties": {
    "title": ` + localizedField + `,
    "description": ` + localizedField + `,
    "outline": ` + localizedField + `
  }
}`,
	types.ContentTopicalCategory: `{
  "type": "object",
  "required": ["name", "description"],
  "properties": {
    "name": ` + localizedField + `,
    "description": ` + localizedField + `
  }
}`,
	types.ContentTopicalVerse: `{
  "type": "object",
  "required": ["topic", "verseText", "reference"],
  "properties": {
    "topic": ` + localizedField + `,
    "verseText": ` + localizedField + `,
    "reference": ` + localizedField + `
  }
}`,
	types.ContentShareableImage: `{
  "type": "object",
  "required": ["caption", "imagePrompt"],
  "properties": {
    "caption": ` + localizedField + `,
    "imagePrompt": ` + localizedField + `
  }
}`,
}

// RequiredFields returns the required field names for a content type, in the
// order the schema declares them. Used by prompt construction.
var RequiredFields = map[types.ContentType][]string{
	types.ContentDevotion:        {"title", "body", "scriptureReference"},
	types.ContentVerse:           {"verseText", "reference"},
	types.ContentFigure:          {"name", "summary", "biography"},
	types.ContentQuiz:            {"title", "questions", "answers"},
	types.ContentStudy:           {"title", "body", "discussionQuestions"},
	types.ContentDevotionPlan:    {"title", "description", "outline"},
	types.ContentTopicalCategory: {"name", "description"},
	types.ContentTopicalVerse:    {"topic", "verseText", "reference"},
	types.ContentShareableImage:  {"caption", "imagePrompt"},
}
