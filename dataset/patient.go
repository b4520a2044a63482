package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

const (
	ColumnAge     = "Age"
	ColumnFever   = "Fever"
	ColumnBP      = "BP"
	ColumnSugar   = "Sugar"
	ColumnDisease = "Disease"
)

// Columns lists every column a patient table must carry.
var Columns = []string{ColumnAge, ColumnFever, ColumnBP, ColumnSugar, ColumnDisease}

// FeatureColumns lists the numeric inputs in model order.
var FeatureColumns = []string{ColumnAge, ColumnFever, ColumnBP, ColumnSugar}

// Patient is one training row.
type Patient struct {
	Age     float64 `json:"age"`
	Fever   float64 `json:"fever"`
	BP      float64 `json:"bp"`
	Sugar   float64 `json:"sugar"`
	Disease string  `json:"disease"`
}

func (p Patient) Vector() []float64 {
	return []float64{p.Age, p.Fever, p.BP, p.Sugar}
}

// Table is an in-memory patient dataset.
type Table struct {
	Columns []string  `json:"columns"`
	Rows    []Patient `json:"rows"`
}

func NewTable(rows []Patient) *Table {
	columns := make([]string, len(Columns))
	copy(columns, Columns)
	return &Table{Columns: columns, Rows: rows}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) []Patient {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	head := make([]Patient, n)
	copy(head, t.Rows[:n])
	return head
}

func (t *Table) Features() [][]float64 {
	features := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		features[i] = row.Vector()
	}
	return features
}

func (t *Table) Labels() []string {
	labels := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = row.Disease
	}
	return labels
}

// Digest identifies the table content. Two tables with the same rows in the
// same order share a digest regardless of where they were loaded from.
func (t *Table) Digest() string {
	h := sha256.New()
	buf := make([]byte, 0, 64)
	for _, row := range t.Rows {
		buf = buf[:0]
		for _, v := range row.Vector() {
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, row.Disease)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Bound describes a bounded number input.
type Bound struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Clamp pulls v into [Min, Max]. NaN takes the default.
func (b Bound) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Default
	}
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

var (
	AgeBound   = Bound{Name: "age", Label: "Age", Min: 0, Max: 120, Default: 25}
	FeverBound = Bound{Name: "fever", Label: "Fever (°F)", Min: 90, Max: 110, Default: 98}
	BPBound    = Bound{Name: "bp", Label: "Blood Pressure", Min: 60, Max: 200, Default: 120}
	SugarBound = Bound{Name: "sugar", Label: "Sugar Level", Min: 50, Max: 300, Default: 110}
)

// Bounds returns the input bounds in feature order.
func Bounds() []Bound {
	return []Bound{AgeBound, FeverBound, BPBound, SugarBound}
}

// Vitals is the feature vector a user submits for prediction.
type Vitals struct {
	Age   float64 `json:"age"`
	Fever float64 `json:"fever"`
	BP    float64 `json:"bp"`
	Sugar float64 `json:"sugar"`
}

func DefaultVitals() Vitals {
	return Vitals{
		Age:   AgeBound.Default,
		Fever: FeverBound.Default,
		BP:    BPBound.Default,
		Sugar: SugarBound.Default,
	}
}

// Clamp pulls every field into its input bound.
func (v Vitals) Clamp() Vitals {
	return Vitals{
		Age:   AgeBound.Clamp(v.Age),
		Fever: FeverBound.Clamp(v.Fever),
		BP:    BPBound.Clamp(v.BP),
		Sugar: SugarBound.Clamp(v.Sugar),
	}
}

func (v Vitals) Vector() []float64 {
	return []float64{v.Age, v.Fever, v.BP, v.Sugar}
}

// VitalsFromValues builds vitals from a feature-ordered slice.
func VitalsFromValues(values []float64) (Vitals, error) {
	if len(values) != len(FeatureColumns) {
		return Vitals{}, fmt.Errorf("expected %d values, got %d", len(FeatureColumns), len(values))
	}
	return Vitals{Age: values[0], Fever: values[1], BP: values[2], Sugar: values[3]}, nil
}
