package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/engine"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
	"github.com/aescanero/dago-pathway-router/internal/router"
)

// RouteResponse is the body of POST /v1/route
type RouteResponse struct {
	RequestID string                    `json:"request_id"`
	Results   []router.ActivationResult `json:"results"`
}

// PathwaySummary is one entry of GET /v1/pathways
type PathwaySummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version string `json:"version,omitempty"`
	Nodes   int    `json:"nodes"`
}

// PathwayList is the body of GET /v1/pathways
type PathwayList struct {
	Version  string           `json:"version,omitempty"`
	Pathways []PathwaySummary `json:"pathways"`
}

// UTICalcRequest is the body of POST /v1/uticalc
type UTICalcRequest struct {
	AgeMonths     *float64 `json:"age_months" binding:"required,gte=0"`
	Sex           string   `json:"sex" binding:"required,oneof=female male"`
	Circumcised   *bool    `json:"circumcised" binding:"required_if=Sex male"`
	TmaxC         *float64 `json:"tmax_c" binding:"omitempty,gte=30,lte=45"`
	TmaxAtLeast39 *bool    `json:"tmax_ge_39"`
	OtherSource   *bool    `json:"other_source"`
}

// record converts the request into the patient fields the UTICalc lookup reads.
func (r UTICalcRequest) record() patient.Record {
	rec := patient.Record{
		"age_months": *r.AgeMonths,
		"sex":        r.Sex,
	}
	if r.Circumcised != nil {
		rec["circumcised"] = *r.Circumcised
	}
	if r.TmaxC != nil {
		rec["tmax_c"] = *r.TmaxC
	}
	if r.TmaxAtLeast39 != nil {
		rec["tmax_ge_39"] = *r.TmaxAtLeast39
	}
	if r.OtherSource != nil {
		rec["other_source"] = *r.OtherSource
	}
	return rec
}

// UTICalcResponse is the body returned by POST /v1/uticalc
type UTICalcResponse struct {
	Values  map[string]any `json:"values"`
	Summary string         `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleRoute routes a patient record; ?all=true returns every pathway
func (s *Server) handleRoute(c *gin.Context) {
	var rec patient.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid patient record: " + err.Error()})
		return
	}

	all, _ := strconv.ParseBool(c.Query("all"))
	route := s.deps.Router.Route
	if all {
		route = s.deps.Router.RouteAll
	}

	results, err := route(c.Request.Context(), rec)
	if err != nil {
		s.logger.Warn("routing request aborted",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RouteResponse{
		RequestID: c.GetString("request_id"),
		Results:   results,
	})
}

// handleListPathways lists pathways in manifest order
func (s *Server) handleListPathways(c *gin.Context) {
	list := PathwayList{
		Version:  s.deps.Store.Manifest().Version,
		Pathways: []PathwaySummary{},
	}
	for _, id := range s.deps.Store.ListIDs() {
		p, err := s.deps.Store.Get(id)
		if err != nil {
			continue
		}
		list.Pathways = append(list.Pathways, PathwaySummary{
			ID:      p.ID,
			Title:   p.Title,
			Version: p.Version,
			Nodes:   len(p.Nodes),
		})
	}
	c.JSON(http.StatusOK, list)
}

// handleGetPathway returns one pathway graph
func (s *Server) handleGetPathway(c *gin.Context) {
	p, err := s.deps.Store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, pathway.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleUTICalc runs the UTICalc lookup on its own
func (s *Server) handleUTICalc(c *gin.Context) {
	var req UTICalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	values, summary := engine.UTICalc{}.Compute(req.record())
	c.JSON(http.StatusOK, UTICalcResponse{
		Values:  values,
		Summary: summary,
	})
}
