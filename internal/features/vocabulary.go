package features

import "sort"

// Vocabulary assigns stable integer codes to categorical values.
// Codes follow ascending string order so two builds over the same data agree.
type Vocabulary struct {
	Stores     []string `json:"stores"`
	Products   []string `json:"products"`
	Conditions []string `json:"conditions"`
}

// NewVocabulary builds a vocabulary from the distinct values given.
func NewVocabulary(stores, products, conditions []string) Vocabulary {
	return Vocabulary{
		Stores:     distinctSorted(stores),
		Products:   distinctSorted(products),
		Conditions: distinctSorted(append(conditions, DefaultCondition)),
	}
}

// StoreCode returns the code of a store seen in training.
func (v Vocabulary) StoreCode(id string) (int, bool) { return indexOf(v.Stores, id) }

// ProductCode returns the code of a product seen in training.
func (v Vocabulary) ProductCode(name string) (int, bool) { return indexOf(v.Products, name) }

// ConditionCode maps unseen weather conditions to a shared trailing bucket.
func (v Vocabulary) ConditionCode(cond string) int {
	if i, ok := indexOf(v.Conditions, cond); ok {
		return i
	}
	return len(v.Conditions)
}

func indexOf(sorted []string, s string) (int, bool) {
	i := sort.SearchStrings(sorted, s)
	if i < len(sorted) && sorted[i] == s {
		return i, true
	}
	return 0, false
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
