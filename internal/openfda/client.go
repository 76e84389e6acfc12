// Package openfda downloads FDA drug-label data and reshapes it into
// per-section leaflet fragments.
package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/medisage/leaflet-rag/internal/rag"
)

const DefaultBaseURL = "https://api.fda.gov/drug/label.json"

// DefaultMedications is the reference set of common medications to index.
var DefaultMedications = []string{
	"Ibuprofen",
	"Acetaminophen",
	"Aspirin",
	"Naproxen",
	"Metformin",
	"Lisinopril",
	"Amlodipine",
	"Atorvastatin",
	"Omeprazole",
	"Sertraline",
}

// Medication is one downloaded drug label, reduced to the controlled
// section vocabulary. Sections that clean to empty text are omitted.
type Medication struct {
	DrugName string
	Sections map[rag.Section]string
	Source   string
	SourceID string
}

// Fragments fans a medication out into one fragment per non-empty section,
// in the fixed vocabulary order.
func (m *Medication) Fragments() []rag.Fragment {
	var out []rag.Fragment
	for _, sec := range rag.Sections {
		text, ok := m.Sections[sec]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, rag.Fragment{
			DrugName: m.DrugName,
			Section:  sec,
			Text:     text,
			Source:   m.Source,
			SourceID: m.SourceID,
		})
	}
	return out
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

type labelResponse struct {
	Results []labelResult `json:"results"`
}

type labelResult struct {
	ID      string `json:"id"`
	OpenFDA struct {
		GenericName []string `json:"generic_name"`
		BrandName   []string `json:"brand_name"`
	} `json:"openfda"`

	DosageAndAdministration []string `json:"dosage_and_administration"`
	Warnings                []string `json:"warnings"`
	DrugInteractions        []string `json:"drug_interactions"`
	Contraindications       []string `json:"contraindications"`
	AdverseReactions        []string `json:"adverse_reactions"`
	IndicationsAndUsage     []string `json:"indications_and_usage"`
	WarningsAndCautions     []string `json:"warnings_and_cautions"`
	Precautions             []string `json:"precautions"`
	Overdosage              []string `json:"overdosage"`
	InformationForPatients  []string `json:"information_for_patients"`
}

// FetchLabel downloads the first matching label for a drug name.
// Returns nil without error when the API has no entry for the drug.
func (c *Client) FetchLabel(ctx context.Context, drugName string) (*Medication, error) {
	params := url.Values{}
	params.Set("search", fmt.Sprintf(`openfda.generic_name:%q OR openfda.brand_name:%q`, drugName, drugName))
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", drugName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfda returned status %d for %s", resp.StatusCode, drugName)
	}

	var label labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&label); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", drugName, err)
	}
	if len(label.Results) == 0 {
		return nil, nil
	}

	res := label.Results[0]
	return &Medication{
		DrugName: extractDrugName(res, drugName),
		Sections: extractSections(res),
		Source:   "OpenFDA",
		SourceID: res.ID,
	}, nil
}

// extractSections maps raw label fields onto the section vocabulary.
// warnings_and_cautions wins over warnings when both are present, matching
// the order the fields are applied in.
func extractSections(res labelResult) map[rag.Section]string {
	fields := []struct {
		data    []string
		section rag.Section
	}{
		{res.DosageAndAdministration, rag.SectionDosage},
		{res.Warnings, rag.SectionWarnings},
		{res.DrugInteractions, rag.SectionDrugInteractions},
		{res.Contraindications, rag.SectionContraindications},
		{res.AdverseReactions, rag.SectionSideEffects},
		{res.IndicationsAndUsage, rag.SectionIndications},
		{res.WarningsAndCautions, rag.SectionWarnings},
		{res.Precautions, rag.SectionPrecautions},
		{res.Overdosage, rag.SectionOverdosage},
		{res.InformationForPatients, rag.SectionPatientInfo},
	}

	sections := make(map[rag.Section]string)
	for _, f := range fields {
		if len(f.data) == 0 {
			continue
		}
		cleaned := Clean(strings.Join(f.data, " "))
		if cleaned != "" {
			sections[f.section] = cleaned
		}
	}
	return sections
}

func extractDrugName(res labelResult, fallback string) string {
	if len(res.OpenFDA.GenericName) > 0 && res.OpenFDA.GenericName[0] != "" {
		return titleCase(res.OpenFDA.GenericName[0])
	}
	if len(res.OpenFDA.BrandName) > 0 && res.OpenFDA.BrandName[0] != "" {
		return titleCase(res.OpenFDA.BrandName[0])
	}
	return titleCase(fallback)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
