package intent

import "encoding/json"

// systemPrompt is the instruction for intent extraction.
const systemPrompt = `You analyze B2B prospecting requests. The user describes what their business sells and who they want to reach. Extract a structured profile of the offer and the ideal customer.

Rules:
- Keep phrases short (at most 6 words) and in the language of the request.
- keywords are search terms a buyer would use for the offer, not the seller's slogans.
- synonyms are alternative names for the same product or service.
- geoScope is "cis" for Russia and CIS countries, "custom" when specific other countries are named, "global" when no geography applies.
- buyingSignals are phrases a buyer would write when looking for this offer (for example "ищем подрядчика", "looking for").
- negatives are topics the user explicitly excluded.
- Leave a list empty rather than guessing.`

// intentSchema is the JSON Schema of an extraction reply.
var intentSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "productOrService": {"type": "string"},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "synonyms": {"type": "array", "items": {"type": "string"}},
    "domains": {"type": "array", "items": {"type": "string"}},
    "geo": {"type": "array", "items": {"type": "string"}},
    "geoScope": {"type": "string", "enum": ["cis", "global", "custom"]},
    "countries": {"type": "array", "items": {"type": "string"}},
    "companySize": {"type": "string"},
    "industries": {"type": "array", "items": {"type": "string"}},
    "roles": {"type": "array", "items": {"type": "string"}},
    "mustHave": {"type": "array", "items": {"type": "string"}},
    "mustNotHave": {"type": "array", "items": {"type": "string"}},
    "buyingSignals": {"type": "array", "items": {"type": "string"}},
    "negatives": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["productOrService", "keywords"]
}`)

// reply is the decoded extraction reply.
type reply struct {
	ProductOrService string   `json:"productOrService"`
	Keywords         []string `json:"keywords"`
	Synonyms         []string `json:"synonyms"`
	Domains          []string `json:"domains"`
	Geo              []string `json:"geo"`
	GeoScope         string   `json:"geoScope"`
	Countries        []string `json:"countries"`
	CompanySize      string   `json:"companySize"`
	Industries       []string `json:"industries"`
	Roles            []string `json:"roles"`
	MustHave         []string `json:"mustHave"`
	MustNotHave      []string `json:"mustNotHave"`
	BuyingSignals    []string `json:"buyingSignals"`
	Negatives        []string `json:"negatives"`
}
