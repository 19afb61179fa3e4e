package domain

import (
	"encoding/json"
	"fmt"
)

// EncodeJSON serializes a cacheable value to its transport form.
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return data, nil
}

// DecodeRetrievalResult reconstructs a typed RetrievalResult from its
// cached form, restoring the non-nil Tables invariant on every chunk.
func DecodeRetrievalResult(data []byte) (*RetrievalResult, error) {
	var result RetrievalResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode retrieval result: %w", err)
	}
	result.Normalize()
	return &result, nil
}

// DecodeSideData reconstructs typed SideData from its cached form.
func DecodeSideData(data []byte) (*SideData, error) {
	var side SideData
	if err := json.Unmarshal(data, &side); err != nil {
		return nil, fmt.Errorf("failed to decode side data: %w", err)
	}
	if side.Tables == nil {
		side.Tables = []TableRecord{}
	}
	if side.Images == nil {
		side.Images = []ImageCaption{}
	}
	return &side, nil
}
