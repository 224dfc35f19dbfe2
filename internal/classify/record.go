package classify

import (
	"encoding/json"
	"strings"
)

// Admissibility results used in the Result field.
const (
	ResultAllow         = "Allow"
	ResultNotAllow      = "Not Allow"
	ResultWithCondition = "With Condition"
)

// Record is the structured answer the model is asked to produce.
type Record struct {
	Item                     string   `json:"Item"`
	ShipFrom                 string   `json:"ShipFrom"`
	ShipTo                   string   `json:"ShipTo"`
	Result                   string   `json:"Result"`
	Classification           string   `json:"Classification"`
	HSCode                   string   `json:"HSCode"`
	EstFee                   string   `json:"EstFee"`
	ExportTax                string   `json:"ExportTax"`
	ImportTax                string   `json:"ImportTax"`
	KeyRegulation            string   `json:"KeyRegulation"`
	LimitationAndPrecautions []string `json:"LimitationAndPrecautions"`
	Source                   sources  `json:"Source"`
}

// sources accepts either a single string or a list of strings.
type sources []string

func (s *sources) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one != "" {
			*s = sources{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// ParseRecord extracts the first JSON object in text, tolerating code fences
// and surrounding prose. It is for display only and never changes how a
// response is classified.
func ParseRecord(text string) (Record, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Record{}, false
	}
	var r Record
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return Record{}, false
	}
	if r.Item == "" && r.Result == "" {
		return Record{}, false
	}
	return r, true
}
