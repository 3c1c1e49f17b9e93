package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"vulnfeed/internal/models"
)

// ErrMalformedImpact is returned alongside an all-sentinel matrix when the impact
// structure cannot be read.
var ErrMalformedImpact = errors.New("malformed impact structure")

var impactJSON = jsoniter.Config{UseNumber: true}.Froze()

// ExtractCVSS builds the score matrix from an impact structure. impact may be
// nil, serialized JSON (string, []byte, json.RawMessage), or a decoded object.
// The matrix is always complete; on error it is all-sentinel and the error
// describes what could not be read.
func ExtractCVSS(impact any) (models.CVSSMatrix, error) {
	obj, err := impactObject(impact)
	if err != nil || obj == nil {
		return models.NewCVSSMatrix(), err
	}

	matrix, err := scoreMatrix(obj)
	if err != nil {
		return models.NewCVSSMatrix(), fmt.Errorf("%w: %w", ErrMalformedImpact, err)
	}

	return matrix, nil
}

func scoreMatrix(impact map[string]any) (models.CVSSMatrix, error) {
	matrix := models.NewCVSSMatrix()

	if pair, err := versionPair(impact, "baseMetricV2", "cvssV2"); err != nil {
		return matrix, err
	} else if pair != nil {
		matrix.V20 = *pair
	}

	if err := routeV3(impact, &matrix); err != nil {
		return matrix, err
	}

	if pair, err := versionPair(impact, "baseMetricV4", "cvssV4"); err != nil {
		return matrix, err
	} else if pair != nil {
		matrix.V40 = *pair
	}

	return matrix, nil
}

// routeV3 places the v3 scores in the 3.0 or 3.1 columns by the declared
// version. Other versions populate neither.
func routeV3(impact map[string]any, matrix *models.CVSSMatrix) error {
	pair, err := versionPair(impact, "baseMetricV3", "cvssV3")
	if err != nil || pair == nil {
		return err
	}

	// versionPair already checked both levels are objects
	cvss := impact["baseMetricV3"].(map[string]any)["cvssV3"].(map[string]any)

	version := ""
	if v, ok := cvss["version"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cvssV3.version is %T, want string", v)
		}

		version = s
	}

	switch {
	case strings.HasPrefix(version, "3.0"):
		matrix.V30 = *pair
	case strings.HasPrefix(version, "3.1"):
		matrix.V31 = *pair
	}

	return nil
}

// versionPair reads block.<inner>.baseScore and block.exploitabilityScore.
// It returns nil when the block or its inner metric object is absent.
func versionPair(impact map[string]any, block, inner string) (*models.ScorePair, error) {
	b, err := object(impact, block)
	if err != nil || b == nil {
		return nil, err
	}

	metric, err := object(b, inner)
	if err != nil || metric == nil {
		return nil, err
	}

	base, err := score(metric["baseScore"])
	if err != nil {
		return nil, fmt.Errorf("%s.%s.baseScore: %w", block, inner, err)
	}

	exploitability, err := score(b["exploitabilityScore"])
	if err != nil {
		return nil, fmt.Errorf("%s.exploitabilityScore: %w", block, err)
	}

	return &models.ScorePair{Base: base, Exploitability: exploitability}, nil
}

func object(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s is %T, want object", key, v)
	}

	return obj, nil
}

// score renders a score value; absent or null is the sentinel.
func score(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return models.ScoreNone, nil
	case string:
		return s, nil
	case float64:
		return formatFloat(s), nil
	case int:
		return strconv.Itoa(s), nil
	case bool:
		return strconv.FormatBool(s), nil
	case fmt.Stringer:
		// json.Number keeps the literal from the feed
		return s.String(), nil
	default:
		return "", fmt.Errorf("score is %T, want scalar", v)
	}
}

// formatFloat renders f with at least one decimal place, as feeds write scores.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

// impactObject parses serialized input lazily and checks the top level is an object.
func impactObject(impact any) (map[string]any, error) {
	var raw []byte

	switch v := impact.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		return nil, fmt.Errorf("%w: impact is %T", ErrMalformedImpact, impact)
	}

	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var decoded any
	if err := impactJSON.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedImpact, err)
	}

	switch v := decoded.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: impact is %T, want object", ErrMalformedImpact, decoded)
	}
}
