package data

import (
	"fmt"
	"math"
)

// Cohort column names.
const (
	ColAge        = "age"
	ColSex        = "sex"
	ColTreatment  = "treatment"
	ColTime       = "time"
	ColEvent      = "event"
	ColPropensity = "propensity_score"
	ColWeight     = "ip_weight"
)

// CohortColumns are the base columns produced by the simulator.
var CohortColumns = []string{ColAge, ColSex, ColTreatment, ColTime, ColEvent}

// Schema describes the structure of a dataset.
type Schema struct {
	FeatureNames []string
	Types        []string // "float" or "binary"
}

// CohortSchema is the schema of a freshly simulated cohort.
var CohortSchema = Schema{
	FeatureNames: CohortColumns,
	Types:        []string{"float", "binary", "binary", "float", "binary"},
}

// Check verifies that t carries every column of s and that binary columns
// only hold 0 or 1.
func (s Schema) Check(t *Table) error {
	for j, name := range s.FeatureNames {
		c, err := t.Column(name)
		if err != nil {
			return err
		}
		if j < len(s.Types) && s.Types[j] == "binary" {
			if err := CheckBinary(name, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckBinary returns an error naming the first value of x that is not 0 or 1.
func CheckBinary(name string, x []float64) error {
	for i, v := range x {
		if v != 0 && v != 1 {
			return fmt.Errorf("column %q row %d: value %v is not 0/1", name, i, v)
		}
	}
	return nil
}

// CheckFinite returns an error naming the first NaN or infinite value of x.
func CheckFinite(name string, x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("column %q row %d: value %v is not finite", name, i, v)
		}
	}
	return nil
}
