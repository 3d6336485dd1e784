package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ewa/raredx/internal/models"
)

// Load reads the merged rare-disease dataset: a JSON object mapping disease
// name to its record. A missing or malformed file is a fatal startup error
// for the caller; nothing here is recovered.
func Load(path string) (map[string]models.DiseaseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	var records map[string]models.DiseaseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s contains no diseases", path)
	}

	return records, nil
}

// DiseaseNames returns the dataset's disease names in sorted order,
// for scope selectors and deterministic document building.
func DiseaseNames(records map[string]models.DiseaseRecord) []string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
