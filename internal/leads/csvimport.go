package leads

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/phone"

	"github.com/google/uuid"
)

// ImportRow is one parsed CSV row, preserved verbatim so the confirm step
// can replay the preview without re-uploading the file.
type ImportRow struct {
	Row    int               `json:"row"`
	Name   string            `json:"name"`
	Email  string            `json:"email,omitempty"`
	Phone  string            `json:"phone,omitempty"`
	Extras map[string]string `json:"extras,omitempty"`
}

// ImportDuplicate pairs a CSV row with the existing lead it collides with.
type ImportDuplicate struct {
	Row      ImportRow      `json:"row"`
	Existing DuplicateMatch `json:"existing"`
}

// ImportPreview is the dry-run result of a CSV upload.
type ImportPreview struct {
	NewLeads   []ImportRow       `json:"new_leads"`
	Duplicates []ImportDuplicate `json:"duplicates"`
	TotalRows  int               `json:"total_rows"`
	Skipped    int               `json:"skipped"`
}

// ImportResult summarizes a confirmed import.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Importer parses lead CSVs and stages them through a preview/confirm flow.
type Importer struct {
	detector *Detector
}

func NewImporter(detector *Detector) *Importer {
	return &Importer{detector: detector}
}

// knownHeaders maps accepted CSV header spellings to canonical fields.
var knownHeaders = map[string]string{
	"name":      "name",
	"full name": "name",
	"full_name": "name",
	"lead name": "name",
	"email":     "email",
	"e-mail":    "email",
	"phone":     "phone",
	"mobile":    "phone",
	"phone no":  "phone",
	"phone_no":  "phone",
	"contact":   "phone",
}

// Preview parses the CSV and splits rows into new leads and duplicates
// against the organization's existing lead set. Rows without a name and
// without a phone are counted as skipped, not errors.
func (im *Importer) Preview(ctx context.Context, r io.Reader, orgID uuid.UUID) (ImportPreview, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return ImportPreview{}, err
	}

	preview := ImportPreview{
		NewLeads:   make([]ImportRow, 0, len(rows)),
		Duplicates: make([]ImportDuplicate, 0),
		TotalRows:  len(rows),
	}

	// Phones already seen earlier in this file, so the same number twice in
	// one upload only imports once.
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		if row.Name == "" && row.Phone == "" {
			preview.Skipped++
			continue
		}

		normalized := phone.Normalize(row.Phone)
		if normalized != "" && seen[normalized] {
			preview.Skipped++
			continue
		}

		if normalized != "" {
			match, err := im.detector.Check(ctx, row.Phone, orgID)
			if err != nil {
				return ImportPreview{}, apperr.Wrap(apperr.KindInternal, "duplicate check failed", err)
			}
			if match != nil {
				preview.Duplicates = append(preview.Duplicates, ImportDuplicate{Row: row, Existing: *match})
				seen[normalized] = true
				continue
			}
			seen[normalized] = true
		}

		preview.NewLeads = append(preview.NewLeads, row)
	}

	return preview, nil
}

// ConfirmParams is the confirm-step payload: the staged rows plus which of
// the flagged duplicates the admin chose to import anyway.
type ConfirmParams struct {
	Rows               []ImportRow `json:"rows" validate:"required,dive"`
	IncludedDuplicates []ImportRow `json:"included_duplicates"`
	SkippedDuplicates  int         `json:"skipped_duplicates"`
}

func parseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperr.Validation("CSV file is empty")
	}
	if err != nil {
		return nil, apperr.Validation("could not read CSV header")
	}

	fieldFor := make(map[int]string, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := knownHeaders[key]; ok {
			fieldFor[i] = canonical
		} else if key != "" {
			fieldFor[i] = "extra:" + key
		}
	}
	if !hasField(fieldFor, "name") && !hasField(fieldFor, "phone") {
		return nil, apperr.Validation("CSV must have a name or phone column")
	}

	var rows []ImportRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validation("malformed CSV: " + err.Error())
		}
		line++

		row := ImportRow{Row: line}
		for i, value := range record {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			switch field := fieldFor[i]; {
			case field == "name":
				row.Name = value
			case field == "email":
				row.Email = value
			case field == "phone":
				row.Phone = value
			case strings.HasPrefix(field, "extra:"):
				if row.Extras == nil {
					row.Extras = make(map[string]string)
				}
				row.Extras[strings.TrimPrefix(field, "extra:")] = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func hasField(fieldFor map[int]string, name string) bool {
	for _, f := range fieldFor {
		if f == name {
			return true
		}
	}
	return false
}
