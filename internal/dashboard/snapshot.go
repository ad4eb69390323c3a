package dashboard

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload field names.
const (
	fieldLatestMetrics = "latest_metrics"
	fieldRegistry      = "registry"
	fieldDeployedRunID = "deployed_run_id"
	fieldApprovals     = "approvals"
	fieldDriftScore    = "drift_score"
)

// Snapshot is one decoded dashboard payload. Every field is opaque.
type Snapshot struct {
	LatestMetrics Value
	Registry      Value
	DeployedRunID Value
	Approvals     Value
	DriftScore    Value
}

// DecodeSnapshot parses a payload body. The body must be a JSON object;
// unknown members are ignored and missing ones stay absent.
func DecodeSnapshot(body []byte) (Snapshot, error) {
	if !jsonAPI.Valid(body) {
		return Snapshot{}, fmt.Errorf("%w: body is not valid JSON", ErrInvalidSnapshot)
	}
	var fields map[string]json.RawMessage
	if err := jsonAPI.Unmarshal(body, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if fields == nil {
		return Snapshot{}, fmt.Errorf("%w: payload is null", ErrInvalidSnapshot)
	}

	pick := func(name string) Value {
		raw, ok := fields[name]
		if !ok {
			return Value{}
		}
		return RawValue(raw)
	}

	return Snapshot{
		LatestMetrics: pick(fieldLatestMetrics),
		Registry:      pick(fieldRegistry),
		DeployedRunID: pick(fieldDeployedRunID),
		Approvals:     pick(fieldApprovals),
		DriftScore:    pick(fieldDriftScore),
	}, nil
}

// Deployed returns the deployed run id as display text, or "none".
func (s Snapshot) Deployed() string {
	return s.DeployedRunID.Text(noneText)
}

// Alerts combines approvals and drift score into one object.
// Absent members are omitted; explicit nulls are kept.
func (s Snapshot) Alerts() Value {
	buf := []byte{'{'}
	add := func(name string, v Value) {
		if !v.Present() {
			return
		}
		if len(buf) > 1 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = append(buf, name...)
		buf = append(buf, '"', ':')
		buf = append(buf, v.raw...)
	}
	add(fieldApprovals, s.Approvals)
	add(fieldDriftScore, s.DriftScore)
	buf = append(buf, '}')
	return RawValue(buf)
}
