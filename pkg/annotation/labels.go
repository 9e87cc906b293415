package annotation

// CategoryDuplicateDocument marks annotations that flag a document as a
// duplicate of another. Their text payload is blanked on creation so
// large duplicated passages are not stored twice.
const CategoryDuplicateDocument = "DuplicateDocument"

// Category is one label taxonomy: a category name and the label
// strings belonging to it.
type Category struct {
	Name   string
	Labels []string
}

// Categories is the fixed, ordered label taxonomy. The order matters:
// CategoryForLabel returns the first category containing a label, and
// "diagnosis" appears in both DiseaseDisorder and Disability, an
// ambiguity inherited from the source taxonomy and left as-is.
var Categories = []Category{
	{Name: "Deduplication", Labels: []string{"duplicate", "near_duplicate"}},
	{Name: "PHI", Labels: []string{"patient", "doctor", "hospital", "date", "id", "phone", "age", "location"}},
	{Name: "DiseaseDisorder", Labels: []string{"diagnosis", "problem", "disease"}},
	{Name: "Disability", Labels: []string{"diagnosis", "impairment"}},
	{Name: "SignSymptom", Labels: []string{"sign", "symptom", "finding"}},
	{Name: "Medication", Labels: []string{"medication", "drug", "dosage", "frequency"}},
	{Name: "Lab", Labels: []string{"lab", "test", "result", "value"}},
	{Name: CategoryDuplicateDocument, Labels: []string{"duplicate_document"}},
}

// CategoryForLabel returns the name of the first category containing
// the given label.
func CategoryForLabel(label string) (string, bool) {
	for _, cat := range Categories {
		for _, l := range cat.Labels {
			if l == label {
				return cat.Name, true
			}
		}
	}
	return "", false
}
