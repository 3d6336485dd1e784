package models

import (
	"bytes"
	"encoding/json"
)

// DiseaseRecord is one entry of the merged rare-disease dataset, keyed by
// disease name in the dataset file.
type DiseaseRecord struct {
	DiseaseInfo *DiseaseInfo `json:"disease_info,omitempty"`
	Papers      []Paper      `json:"papers,omitempty"`
}

// DiseaseInfo holds the Orphanet-derived clinical sections. The four
// sub-mappings are kept as raw JSON so that rendering preserves the key
// order of the dataset file.
type DiseaseInfo struct {
	Definition       string          `json:"definition,omitempty"`
	ClinicalFeatures json.RawMessage `json:"clinical_features,omitempty"`
	GeneticInfo      json.RawMessage `json:"genetic_info,omitempty"`
	NaturalHistory   json.RawMessage `json:"natural_history,omitempty"`
	Epidemiology     json.RawMessage `json:"epidemiology,omitempty"`

	hasKeys bool
}

// UnmarshalJSON records whether the dataset mapping had any keys at all.
// IsEmpty depends on key presence, not on the values behind the keys.
func (di *DiseaseInfo) UnmarshalJSON(data []byte) error {
	type plain DiseaseInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*di = DiseaseInfo(p)
	di.hasKeys = len(keys) > 0
	return nil
}

// IsEmpty reports whether disease_info was absent or an empty mapping.
// A mapping whose values are themselves empty still counts as clinical
// content: {"definition": ""} keeps its clinical_info document.
func (di *DiseaseInfo) IsEmpty() bool {
	if di == nil {
		return true
	}
	if di.hasKeys {
		return false
	}
	return di.Definition == "" &&
		sectionAbsent(di.ClinicalFeatures) &&
		sectionAbsent(di.GeneticInfo) &&
		sectionAbsent(di.NaturalHistory) &&
		sectionAbsent(di.Epidemiology)
}

func sectionAbsent(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0
}

// Paper is a PubMed abstract record attached to a disease.
type Paper struct {
	PaperID         string          `json:"paper_id"`
	Title           string          `json:"title"`
	Abstract        string          `json:"abstract"`
	Authors         []string        `json:"authors"`
	Journal         string          `json:"journal"`
	PublicationDate PublicationDate `json:"publication_date"`
}

// PublicationDate carries at least a year when present. Year unmarshals
// from either a JSON number or a string; its zero value renders empty.
type PublicationDate struct {
	Year json.Number `json:"year,omitempty"`
}
