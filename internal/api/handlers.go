package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// argsKey holds the positional arguments in a call body; every other key
// is a named argument.
const argsKey = "args"

// handleCall invokes one entry point with dynamically typed arguments.
// POST /api/v1/gtd7, /api/v1/gtd7d
func (s *Server) handleCall(method msis.Method) gin.HandlerFunc {
	return func(c *gin.Context) {
		args, err := decodeArgs(c.Request)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := s.adapter.Call(method, args)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resultBody(method, res))
	}
}

func decodeArgs(r *http.Request) (msis.Args, error) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return msis.Args{}, fmt.Errorf("invalid JSON body: %w", err)
	}

	var args msis.Args
	if raw, ok := body[argsKey]; ok {
		pos, ok := raw.([]any)
		if !ok {
			return msis.Args{}, fmt.Errorf("%q must be an array", argsKey)
		}
		args.Positional = pos
		delete(body, argsKey)
	}
	if len(body) > 0 {
		args.Named = body
	}
	return args, nil
}

// modelRequest is the body of the time-based endpoint. Indices left out
// are looked up in the space weather table. ap_a and flags stay untyped
// so they are checked the same way as on the call endpoints.
type modelRequest struct {
	Time      time.Time `json:"time"`
	Alt       float64   `json:"alt"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	LST       *float64  `json:"lst"`
	F107A     *float64  `json:"f107a"`
	F107      *float64  `json:"f107"`
	Ap        *float64  `json:"ap"`
	ApA       any       `json:"ap_a"`
	ApHistory bool      `json:"ap_history"` // fill ap_a from the table, switch 9 = -1
	Flags     any       `json:"flags"`
	Method    string    `json:"method"`
}

// handleModel evaluates the model at a time and place.
// POST /api/v1/model
func (s *Server) handleModel(c *gin.Context) {
	var req modelRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}
	if req.Time.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time is required"})
		return
	}
	method, err := msis.ParseMethod(req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := msis.Options{LST: req.LST, Method: method}
	if req.ApA != nil {
		if opts.ApA, err = msis.BindApList(req.ApA); err != nil {
			s.writeError(c, err)
			return
		}
	}
	if req.Flags != nil {
		if opts.Flags, err = msis.BindFlagList(req.Flags); err != nil {
			s.writeError(c, err)
			return
		}
	}

	needIndices := req.F107A == nil || req.F107 == nil || req.Ap == nil || req.ApHistory
	if needIndices && s.indices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no space weather table configured; give f107a, f107 and ap"})
		return
	}

	var drv spaceweather.Drivers
	if s.indices != nil {
		drv, err = spaceweather.ResolveDrivers(s.indices, req.Time, req.Ap, req.F107, req.F107A)
	} else {
		drv = spaceweather.Drivers{Ap: *req.Ap, F107: *req.F107, F107A: *req.F107A}
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	if req.ApHistory {
		hist, err := s.indices.ApArray(req.Time)
		if err != nil {
			s.writeError(c, err)
			return
		}
		opts.ApA = hist[:]
		opts.Flags = msis.ApModeFlags(opts.Flags)
	}

	res, err := s.adapter.AtTime(req.Time, req.Alt, req.Lat, req.Lon, drv.F107A, drv.F107, drv.Ap, opts)
	if err != nil {
		s.writeError(c, err)
		return
	}

	body := resultBody(method, res)
	body["inputs"] = gin.H{
		"time":  req.Time.UTC().Format(time.RFC3339Nano),
		"f107a": drv.F107A,
		"f107":  drv.F107,
		"ap":    drv.Ap,
		"ap_a":  opts.ApA,
	}
	c.JSON(http.StatusOK, body)
}

// handleIndices returns one day of space weather and the drivers derived
// from it.
// GET /api/v1/indices/:date
func (s *Server) handleIndices(c *gin.Context) {
	if s.indices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no space weather table configured"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	day, err := s.indices.Day(date)
	if err != nil {
		s.writeError(c, err)
		return
	}

	body := gin.H{
		"date":     day.Date.Format("2006-01-02"),
		"kp":       day.Kp,
		"ap":       day.Ap,
		"Ap":       day.DayAp,
		"ssn":      day.SSN,
		"f107_obs": day.F107Obs,
		"f107_adj": day.F107Adj,
		"missing":  uint8(day.Missing),
		"def":      day.Def,
	}
	if drv, err := s.indices.Drivers(date); err == nil {
		body["drivers"] = gin.H{"ap": drv.Ap, "f107": drv.F107, "f107a": drv.F107A}
	}
	c.JSON(http.StatusOK, body)
}

// =============================================================================
// Responses
// =============================================================================

func resultBody(method msis.Method, res msis.Result) gin.H {
	named := make(gin.H, len(msis.OutputFields))
	for i, v := range res.Flat() {
		named[msis.OutputFields[i].Name] = v
	}
	return gin.H{
		"method":       method.String(),
		"densities":    res.Densities,
		"temperatures": res.Temperatures,
		"outputs":      named,
	}
}

// writeError maps adapter and lookup errors to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, msis.ErrArgumentBinding):
		status = http.StatusBadRequest
	case errors.Is(err, msis.ErrArgumentValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, msis.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, spaceweather.ErrNoData):
		status = http.StatusNotFound
	}

	body := gin.H{"error": err.Error()}
	var argErr *msis.ArgumentError
	if errors.As(err, &argErr) {
		body["argument"] = argErr.Arg
		body["kind"] = argErr.Kind.Error()
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	c.JSON(status, body)
}
