package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// InvalidParamFormatError reports a path or query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// RankParams are the query parameters of GET /products/{product_id}/incidents.
type RankParams struct {
	Limit         *int     `form:"limit,omitempty"`
	SortBy        *string  `form:"sort_by,omitempty"`
	RiskDomain    *string  `form:"risk_domain,omitempty"`
	MinSimilarity *float64 `form:"min_similarity,omitempty"`
	MinRisk       *float64 `form:"min_risk,omitempty"`
}

// ScoreParams are the query parameters of the single scoring route.
type ScoreParams struct {
	Mode  *string `form:"mode,omitempty"`
	Scale *string `form:"scale,omitempty"`
}

// TopParams are the query parameters of GET /products/{product_id}/prism/top.
type TopParams struct {
	Limit *int    `form:"limit,omitempty"`
	Mode  *string `form:"mode,omitempty"`
	Scale *string `form:"scale,omitempty"`
}

// ExplainParams are the query parameters of the explanation route.
type ExplainParams struct {
	Mode *string `form:"mode,omitempty"`
}

// UsageParams are the query parameters of GET /usage.
type UsageParams struct {
	Period *string `form:"period,omitempty"`
}

func bindPathID(r *http.Request, name string) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return id, nil
}

// bindQuery binds one optional form-style query parameter into dest.
func bindQuery(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return nil
}

func bindRankParams(r *http.Request) (RankParams, error) {
	var p RankParams
	bindings := []struct {
		name string
		dest any
	}{
		{"limit", &p.Limit},
		{"sort_by", &p.SortBy},
		{"risk_domain", &p.RiskDomain},
		{"min_similarity", &p.MinSimilarity},
		{"min_risk", &p.MinRisk},
	}
	for _, b := range bindings {
		if err := bindQuery(r, b.name, b.dest); err != nil {
			return RankParams{}, err
		}
	}
	return p, nil
}

func bindScoreParams(r *http.Request) (ScoreParams, error) {
	var p ScoreParams
	if err := bindQuery(r, "mode", &p.Mode); err != nil {
		return ScoreParams{}, err
	}
	if err := bindQuery(r, "scale", &p.Scale); err != nil {
		return ScoreParams{}, err
	}
	return p, nil
}

func bindTopParams(r *http.Request) (TopParams, error) {
	var p TopParams
	if err := bindQuery(r, "limit", &p.Limit); err != nil {
		return TopParams{}, err
	}
	if err := bindQuery(r, "mode", &p.Mode); err != nil {
		return TopParams{}, err
	}
	if err := bindQuery(r, "scale", &p.Scale); err != nil {
		return TopParams{}, err
	}
	return p, nil
}

func bindExplainParams(r *http.Request) (ExplainParams, error) {
	var p ExplainParams
	if err := bindQuery(r, "mode", &p.Mode); err != nil {
		return ExplainParams{}, err
	}
	return p, nil
}

func bindUsageParams(r *http.Request) (UsageParams, error) {
	var p UsageParams
	if err := bindQuery(r, "period", &p.Period); err != nil {
		return UsageParams{}, err
	}
	return p, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
