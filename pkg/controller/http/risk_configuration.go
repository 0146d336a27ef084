package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"github.com/secmon-lab/riskscale/pkg/utils/errutil"
)

const maxRequestBodySize = 1 << 20

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type levelResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Order int     `json:"order"`
	Color string  `json:"color,omitempty"`
}

type scoreLevelResponse struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

type riskScoreRequest struct {
	ImpactScore      *float64 `json:"impact_score"`
	ProbabilityScore *float64 `json:"probability_score"`
}

type riskScoreResponse struct {
	RiskScore        float64             `json:"risk_score"`
	ImpactScore      float64             `json:"impact_score"`
	ProbabilityScore float64             `json:"probability_score"`
	ImpactLevel      *levelResponse      `json:"impact_level,omitempty"`
	ProbabilityLevel *levelResponse      `json:"probability_level,omitempty"`
	ScoreLevel       *scoreLevelResponse `json:"score_level,omitempty"`
	ConfigurationID  string              `json:"configuration_id"`
}

type criteriaScoreRequest struct {
	CriteriaScores map[string]float64 `json:"criteria_scores"`
}

type criteriaScoreResponse struct {
	RiskScore       float64             `json:"risk_score"`
	CriteriaScores  map[string]float64  `json:"criteria_scores"`
	ScoreLevel      *scoreLevelResponse `json:"score_level,omitempty"`
	ConfigurationID string              `json:"configuration_id"`
}

type validationResponse struct {
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors"`
	Advisories []string `json:"advisories"`
}

func toScoreLevelResponse(sl *model.ScoreLevel) *scoreLevelResponse {
	if sl == nil {
		return nil
	}
	return &scoreLevelResponse{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: sl.Order}
}

// classifyOptional attaches the band when the score is covered. A gap is not
// an error for scoring endpoints.
func classifyOptional(cfg *model.RiskConfiguration, score float64) *scoreLevelResponse {
	level, err := cfg.Classify(score)
	if err != nil {
		return nil
	}
	return toScoreLevelResponse(level)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataResponse{Success: true, Data: data}); err != nil {
		_ = errutil.Handle(r.Context(), err, "failed to encode response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return false
	}
	return true
}

func orgIDParam(r *http.Request) types.OrganizationID {
	return types.OrganizationID(chi.URLParam(r, "orgID"))
}

func configIDParam(r *http.Request) types.ConfigurationID {
	return types.ConfigurationID(chi.URLParam(r, "configID"))
}

func (s *Server) listConfigurations(w http.ResponseWriter, r *http.Request) {
	configs, err := s.riskConfig.ListConfigurations(r.Context(), orgIDParam(r))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}

	data := make([]model.ConfigArray, len(configs))
	for i, cfg := range configs {
		data[i] = cfg.ToConfigArray()
	}
	writeJSON(w, r, http.StatusOK, data)
}

func (s *Server) getConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.riskConfig.GetConfiguration(r.Context(), orgIDParam(r), configIDParam(r))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, cfg.ToConfigArray())
}

func (s *Server) createConfiguration(w http.ResponseWriter, r *http.Request) {
	var req model.ConfigArray
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.riskConfig.CreateConfiguration(r.Context(), orgIDParam(r), req.ToInput())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusCreated, created.ToConfigArray())
}

// updateConfiguration accepts the same shape returned by GET. The version
// field, when non-zero, guards against overwriting a concurrent edit.
func (s *Server) updateConfiguration(w http.ResponseWriter, r *http.Request) {
	var req model.ConfigArray
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.riskConfig.UpdateConfiguration(r.Context(), orgIDParam(r), configIDParam(r), req.ToInput(), req.Version)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, updated.ToConfigArray())
}

func (s *Server) deleteConfiguration(w http.ResponseWriter, r *http.Request) {
	if err := s.riskConfig.DeleteConfiguration(r.Context(), orgIDParam(r), configIDParam(r)); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, nil)
}

func (s *Server) activateConfiguration(w http.ResponseWriter, r *http.Request) {
	activated, err := s.riskConfig.ActivateConfiguration(r.Context(), orgIDParam(r), configIDParam(r))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, activated.ToConfigArray())
}

func (s *Server) validateConfiguration(w http.ResponseWriter, r *http.Request) {
	var req model.ConfigArray
	if !decodeJSON(w, r, &req) {
		return
	}

	result := s.riskConfig.ValidateConfiguration(req.ToInput())
	resp := validationResponse{
		Valid:      result.Valid(),
		Errors:     result.Errors(),
		Advisories: result.Advisories(),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Advisories == nil {
		resp.Advisories = []string{}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) calculateRiskScore(w http.ResponseWriter, r *http.Request) {
	var req riskScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImpactScore == nil || req.ProbabilityScore == nil {
		errutil.HandleHTTP(r.Context(), w,
			goerr.Wrap(model.ErrInvalidScore, "impact_score and probability_score are required"), 0)
		return
	}

	result, err := s.riskConfig.CalculateRiskScore(r.Context(), orgIDParam(r), *req.ImpactScore, *req.ProbabilityScore)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}

	resp := riskScoreResponse{
		RiskScore:        result.RiskScore,
		ImpactScore:      result.ImpactScore,
		ProbabilityScore: result.ProbabilityScore,
		ScoreLevel:       classifyOptional(result.Configuration, result.RiskScore),
		ConfigurationID:  result.Configuration.ID.String(),
	}
	if l := result.ImpactLevel; l != nil {
		resp.ImpactLevel = &levelResponse{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
	}
	if l := result.ProbabilityLevel; l != nil {
		resp.ProbabilityLevel = &levelResponse{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) calculateRiskScoreWithCriteria(w http.ResponseWriter, r *http.Request) {
	var req criteriaScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.riskConfig.CalculateRiskScoreWithCriteria(r.Context(), orgIDParam(r), req.CriteriaScores)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}

	writeJSON(w, r, http.StatusOK, criteriaScoreResponse{
		RiskScore:       result.RiskScore,
		CriteriaScores:  result.CriteriaScores,
		ScoreLevel:      classifyOptional(result.Configuration, result.RiskScore),
		ConfigurationID: result.Configuration.ID.String(),
	})
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("score")
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w,
			goerr.Wrap(model.ErrInvalidScore, "score query parameter must be a number", goerr.V(model.ScoreKey, raw)), 0)
		return
	}

	level, err := s.riskConfig.Classify(r.Context(), orgIDParam(r), score)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, toScoreLevelResponse(level))
}

func (s *Server) riskMatrixData(w http.ResponseWriter, r *http.Request) {
	data, err := s.riskConfig.GetRiskMatrixData(r.Context(), orgIDParam(r))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}
