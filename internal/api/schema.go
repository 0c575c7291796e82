package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/clauseguard/internal/model"
)

// RiskPolicy decides what happens to risk levels outside high/medium/low
type RiskPolicy struct {
	// Clamp maps unknown levels to Fallback instead of rejecting the payload
	Clamp    bool
	Fallback model.RiskLevel
}

// StrictRiskPolicy rejects unknown levels as a malformed payload
func StrictRiskPolicy() RiskPolicy {
	return RiskPolicy{Fallback: model.RiskMedium}
}

// RiskPolicyFromConfig builds a policy from api.risk_policy / api.fallback_risk
func RiskPolicyFromConfig(cfg model.APIConfig) RiskPolicy {
	fallback, ok := model.ParseRiskLevel(cfg.FallbackRisk)
	if !ok {
		fallback = model.RiskMedium
	}
	return RiskPolicy{
		Clamp:    strings.EqualFold(cfg.RiskPolicy, "clamp"),
		Fallback: fallback,
	}
}

// wireResponse is the analysis payload as sent by the service
type wireResponse struct {
	Clauses *[]wireClause `json:"clauses"`
}

// wireClause accepts both field spellings the service is known to emit
type wireClause struct {
	ID          json.RawMessage `json:"id"`
	Text        string          `json:"text"`
	ClauseText  string          `json:"clause_text"`
	RiskLevel   string          `json:"risk_level"`
	Severity    string          `json:"severity"`
	Explanation string          `json:"explanation"`
	Reason      string          `json:"reason"`
}

// clauseRecord is a wire clause after alias resolution
type clauseRecord struct {
	ID          string
	Text        string `validate:"required"`
	Risk        string `validate:"required"`
	Explanation string
}

var schemaValidator = validator.New()

// DecodeClauses parses an analysis payload into clauses.
//
// Required per record: text (text|clause_text) and risk (risk_level|severity).
// Optional: id (string or number, defaults to 1-based position) and
// explanation (explanation|reason, defaults to "").
func DecodeClauses(body []byte, policy RiskPolicy, log *slog.Logger) ([]model.Clause, error) {
	var resp wireResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if resp.Clauses == nil {
		return nil, fmt.Errorf("%w: missing \"clauses\"", ErrMalformedPayload)
	}

	wire := *resp.Clauses
	clauses := make([]model.Clause, 0, len(wire))
	for i, w := range wire {
		rec, err := w.resolve(i)
		if err != nil {
			return nil, fmt.Errorf("%w: clause %d: %v", ErrMalformedPayload, i+1, err)
		}
		if err := schemaValidator.Struct(rec); err != nil {
			return nil, fmt.Errorf("%w: clause %d: %v", ErrMalformedPayload, i+1, err)
		}

		level, known := model.ParseRiskLevel(rec.Risk)
		if !known {
			if !policy.Clamp {
				return nil, fmt.Errorf("%w: clause %d: unknown risk level %q", ErrMalformedPayload, i+1, rec.Risk)
			}
			if log != nil {
				log.Warn("unknown risk level clamped", "clause", rec.ID, "value", rec.Risk, "fallback", policy.Fallback)
			}
			level = policy.Fallback
		}

		clauses = append(clauses, model.Clause{
			ID:          rec.ID,
			Text:        rec.Text,
			RiskLevel:   level,
			Explanation: rec.Explanation,
		})
	}

	return clauses, nil
}

// resolve applies alias precedence: text over clause_text, risk_level over
// severity, explanation over reason
func (w wireClause) resolve(index int) (clauseRecord, error) {
	id, err := decodeID(w.ID)
	if err != nil {
		return clauseRecord{}, err
	}
	if id == "" {
		id = strconv.Itoa(index + 1)
	}

	return clauseRecord{
		ID:          id,
		Text:        firstNonBlank(w.Text, w.ClauseText),
		Risk:        firstNonBlank(w.RiskLevel, w.Severity),
		Explanation: firstNonBlank(w.Explanation, w.Reason),
	}, nil
}

// decodeID accepts a JSON string, a JSON number, null, or nothing
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}

	return "", fmt.Errorf("id must be a string or number, got %s", string(raw))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
