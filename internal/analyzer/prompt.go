package analyzer

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/sozercan/instrument-lens/apimodels"
	"github.com/sozercan/instrument-lens/internal/llm"
)

// resultSchema enumerates the AnalysisResult fields. Both the analysis and
// the reformat prompt use it so the model is always asked for one schema.
var resultSchema = strings.TrimSpace(fmt.Sprintf(dedent.Dedent(`
	- brand (string): manufacturer name, "Unknown" if it cannot be identified
	- brandModel (string): model name or number, "Unknown" if it cannot be identified
	- finish (string or null): finish or color name as the manufacturer calls it, null if not visible
	- musicalInstrumentCategory (string): kind of instrument or gear, e.g. "Electric Guitar", "Synthesizer", "Snare Drum"
	- condition (string): exactly one of %s
	- notedBlemishes (array of strings): visible wear or damage, each entry at most 40 characters; [] if none
	- metadataSummary (object):
	  - serialNumber (string or null): serial number if legible, otherwise null
	  - colors (array of strings or null): dominant colors
	  - materials (array of strings or null): visible materials, e.g. "maple", "rosewood", "steel"
	  - estimatedValue (string or null): estimated used market value, e.g. "$800"
`), quoteList(apimodels.Conditions)))

const resultExample = `{"brand": "Fender", "brandModel": "American Professional II Stratocaster", "finish": "3-Color Sunburst", "musicalInstrumentCategory": "Electric Guitar", "condition": "Great", "notedBlemishes": ["Light pick wear near the pickguard", "Small ding on lower bout edge"], "metadataSummary": {"serialNumber": "US21034567", "colors": ["sunburst", "white"], "materials": ["alder", "maple", "rosewood"], "estimatedValue": "$1,250"}}`

var analysisPrompt = strings.TrimSpace(dedent.Dedent(`
	You are an expert appraiser of musical instruments and music gear.

	You are given %d image(s) of the same item, in this order: %s.

	Analyze the images collectively as one item. Combine what every image shows into a single assessment; do not describe the images one by one.

	Respond with exactly ONE JSON object (not an array). The entire response must be that object, with these fields:
	%s

	Example response:
	%s

	Respond ONLY with the JSON object. Do not wrap it in markdown code fences and do not add any text before or after it.
`))

const formatterSystemPrompt = "You are a strict JSON formatter. You convert text into a single valid JSON object and output nothing else."

var reformatPrompt = strings.TrimSpace(dedent.Dedent(`
	The text below is an analysis of %d image(s) of a musical instrument. Image filenames: %s.

	Convert it into a single JSON object with exactly these fields:
	%s

	Use null for nullable fields the text does not mention. Output only the JSON object, without markdown code fences or commentary.

	Text to convert:
	%s
`))

// Filenames returns the filename of every image in order, substituting
// image-N for entries without one.
func Filenames(images []apimodels.ImageInput) []string {
	names := make([]string, len(images))
	for i, img := range images {
		name := strings.TrimSpace(img.Filename)
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		names[i] = name
	}
	return names
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// BuildPrompt returns the analysis request: one image part per image, in
// order, followed by the instruction text.
func BuildPrompt(images []apimodels.ImageInput) llm.Message {
	parts := make([]llm.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, llm.ImagePart(img.Content))
	}

	text := fmt.Sprintf(analysisPrompt, len(images), quoteList(Filenames(images)), resultSchema, resultExample)
	parts = append(parts, llm.TextPart(text))

	return llm.UserMessage(parts...)
}

// BuildReformatPrompt asks the model to turn its earlier free-form reply into
// the canonical JSON object.
func BuildReformatPrompt(filenames []string, reply string) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(formatterSystemPrompt),
		llm.UserMessage(llm.TextPart(fmt.Sprintf(reformatPrompt, len(filenames), quoteList(filenames), resultSchema, reply))),
	}
}
