package docs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/pkg/dataset"
)

// Build turns the dataset into flat text documents tagged with retrieval
// metadata. Diseases are visited in sorted name order so output is
// deterministic; papers keep their dataset order. One record yields at most
// one clinical_info document plus one research_paper document per paper.
// Papers are not deduplicated across diseases: the same paper listed under
// two disease keys yields two documents.
func Build(records map[string]models.DiseaseRecord) []models.Document {
	var documents []models.Document

	for _, name := range dataset.DiseaseNames(records) {
		record := records[name]

		if !record.DiseaseInfo.IsEmpty() {
			documents = append(documents, models.Document{
				Text: renderClinicalInfo(name, record.DiseaseInfo),
				Metadata: map[string]string{
					models.MetaDisease: name,
					models.MetaType:    models.DocTypeClinicalInfo,
					models.MetaSource:  models.SourceOrphanet,
				},
			})
		}

		for _, paper := range record.Papers {
			documents = append(documents, models.Document{
				Text: renderPaper(paper),
				Metadata: map[string]string{
					models.MetaDisease: name,
					models.MetaType:    models.DocTypeResearchPaper,
					models.MetaSource:  models.SourcePubMed,
					models.MetaPaperID: paper.PaperID,
				},
			})
		}
	}

	return documents
}

func renderClinicalInfo(name string, info *models.DiseaseInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Disease Name: %s\n", name)
	fmt.Fprintf(&b, "Clinical Definition: %s\n", info.Definition)
	fmt.Fprintf(&b, "\nClinical Features:\n%s\n", renderSection(info.ClinicalFeatures))
	fmt.Fprintf(&b, "\nGenetic Information:\n%s\n", renderSection(info.GeneticInfo))
	fmt.Fprintf(&b, "\nNatural History:\n%s\n", renderSection(info.NaturalHistory))
	fmt.Fprintf(&b, "\nEpidemiology:\n%s\n", renderSection(info.Epidemiology))

	return b.String()
}

// renderSection re-indents the raw dataset JSON so the key order of the
// source file survives into the rendered document. Absent or null sections
// render as an empty object.
func renderSection(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}"
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, trimmed, "", "  "); err != nil {
		return "{}"
	}
	return indented.String()
}

func renderPaper(paper models.Paper) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", paper.Title)
	fmt.Fprintf(&b, "\nAbstract:\n%s\n", paper.Abstract)
	fmt.Fprintf(&b, "\nAuthors: %s\n", strings.Join(paper.Authors, ", "))
	fmt.Fprintf(&b, "Journal: %s\n", paper.Journal)
	fmt.Fprintf(&b, "Publication Date: %s\n", paper.PublicationDate.Year)

	return b.String()
}
