// Package validation screens training datasets before they reach a model:
// schema conformance, likely PII, statistical outliers and a content fingerprint.
package validation

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// AnomalyZThreshold is the absolute z-score above which a value is an outlier.
const AnomalyZThreshold = 3.0

const (
	issuePenalty   = 0.1
	anomalyPenalty = 0.01
	piiRisk        = 0.2
	anomalyRisk    = 0.005
	minStdDev      = 1e-6

	proceedAction = "Proceed to training"
	piiAction     = "Remove or hash PII columns before training"
	outlierAction = "Inspect outliers and consider clipping or normalization"
)

// Required numeric features of every record.
var features = []string{"feature1", "feature2", "feature3"}

const labelField = "label"

// ErrNoRecords is returned for an empty dataset.
var ErrNoRecords = errors.New("validation: records must contain at least one row")

// Record is one dataset row as decoded from JSON.
type Record map[string]any

// Result summarises a dataset check.
type Result struct {
	IsValid            bool     `json:"is_valid"`
	Issues             []string `json:"issues"`
	DataQualityScore   float64  `json:"data_quality_score"`
	RiskScore          float64  `json:"risk_score"`
	RecommendedActions []string `json:"recommended_actions"`
	DatasetFingerprint string   `json:"dataset_fingerprint"`
	PIIColumns         []string `json:"pii_columns"`
	Anomalies          int      `json:"anomalies"`
}

// Validate checks records. Columns are considered in name order.
func Validate(records []Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoRecords
	}

	columns := columnNames(records)
	issues := []string{}
	actions := []string{}

	if err := checkSchema(records); err != nil {
		issues = append(issues, "Schema validation failed: "+err.Error())
	}

	pii := piiColumns(records, columns)
	if len(pii) > 0 {
		issues = append(issues, "Possible PII detected in columns: "+strings.Join(pii, ", "))
		actions = append(actions, piiAction)
	}

	anomalies := countAnomalies(records, columns)
	if anomalies > 0 {
		issues = append(issues, fmt.Sprintf("Detected %d potential anomalies via z-score > %g", anomalies, AnomalyZThreshold))
		actions = append(actions, outlierAction)
	}

	quality := math.Max(0, 1-(float64(len(issues))*issuePenalty+float64(anomalies)*anomalyPenalty))
	risk := math.Min(1, piiRisk*float64(len(pii))+float64(anomalies)*anomalyRisk)

	fingerprint, err := Fingerprint(records)
	if err != nil {
		return Result{}, err
	}

	if len(actions) == 0 {
		actions = append(actions, proceedAction)
	}
	return Result{
		IsValid:            len(issues) == 0,
		Issues:             issues,
		DataQualityScore:   round3(quality),
		RiskScore:          round3(risk),
		RecommendedActions: actions,
		DatasetFingerprint: fingerprint,
		PIIColumns:         pii,
		Anomalies:          anomalies,
	}, nil
}

// checkSchema reports the first record that does not fit the training schema.
func checkSchema(records []Record) error {
	for i, rec := range records {
		for _, f := range features {
			v, ok := rec[f]
			if !ok {
				return fmt.Errorf("record %d: %s is required", i, f)
			}
			if _, ok := asFloat(v); !ok {
				return fmt.Errorf("record %d: %s must be a number", i, f)
			}
		}
		v, ok := rec[labelField]
		if !ok {
			return fmt.Errorf("record %d: %s is required", i, labelField)
		}
		label, ok := asFloat(v)
		if !ok || label != math.Trunc(label) {
			return fmt.Errorf("record %d: %s must be an integer", i, labelField)
		}
		if label != 0 && label != 1 {
			return fmt.Errorf("record %d: %s must be 0 or 1", i, labelField)
		}
	}
	return nil
}

// asFloat accepts JSON numbers and numeric strings.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func piiColumns(records []Record, columns []string) []string {
	out := []string{}
	for _, col := range columns {
		for _, rec := range records {
			v, ok := rec[col]
			if ok && strings.Contains(cell(v), "@") {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// countAnomalies counts values more than AnomalyZThreshold population standard
// deviations from their column mean. Only columns holding JSON numbers exclusively are used.
func countAnomalies(records []Record, columns []string) int {
	var total int
	for _, col := range columns {
		values, ok := numericColumn(records, col)
		if !ok {
			continue
		}
		mean, std := meanStd(values)
		if std == 0 {
			std = minStdDev
		}
		for _, v := range values {
			if math.Abs((v-mean)/std) > AnomalyZThreshold {
				total++
			}
		}
	}
	return total
}

// numericColumn returns the present values of col when all of them are numbers.
func numericColumn(records []Record, col string) ([]float64, bool) {
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		v, ok := rec[col]
		if !ok || v == nil {
			continue
		}
		f, isNum := v.(float64)
		if !isNum {
			return nil, false
		}
		values = append(values, f)
	}
	return values, len(values) > 0
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(values)))
}

// Fingerprint is the SHA-256 of the dataset rendered as CSV with a header row
// of column names in name order. Missing cells are empty.
func Fingerprint(records []Record) (string, error) {
	columns := columnNames(records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = ""
			if v, ok := rec[col]; ok {
				row[i] = cell(v)
			}
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func columnNames(records []Record) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, rec := range records {
		for k := range rec {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	slices.Sort(out)
	return out
}

// cell renders a value the way it appears in the CSV form.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := jsonAPI.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
