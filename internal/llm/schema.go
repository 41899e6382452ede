package llm

// BuildRowJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map describing the array of transaction rows the model must emit when asked
// to extract transactions from raw document text.
func BuildRowJSONSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"date":        map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
				"description": map[string]any{"type": "string", "minLength": 1},
				"amount":      amountProp(),
				"type":        map[string]any{"type": "string", "enum": []string{"credit", "debit"}},
			},
			"required": []string{"date", "description", "amount"},
		},
	}
}

// BuildMatchJSONSchema describes the array of match records the model emits
// for a reconciliation request.
func BuildMatchJSONSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"bankTransactionId":      map[string]any{"type": "string", "minLength": 1},
				"secondaryTransactionId": map[string]any{"type": "string"},
				"confidence":             map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
				"explanation":            map[string]any{"type": "string"},
				"suggestedAction": map[string]any{
					"type": "string",
					"enum": []string{"match", "flag", "split", "defer"},
				},
			},
			"required": []string{"bankTransactionId", "confidence"},
		},
	}
}

func amountProp() map[string]any {
	// Amounts travel as JSON numbers or decimal strings; both validate.
	return map[string]any{
		"anyOf": []map[string]any{
			{"type": "number"},
			{"type": "string", "pattern": `^-?\d+(\.\d{1,4})?$`},
		},
	}
}
