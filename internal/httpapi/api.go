// Package httpapi exposes the broker over a small JSON API. Reads go straight
// to the broker, writes are run on the goroutine that drives the server.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/server"
)

// API serves one binding server.
type API struct {
	srv    *server.Server
	broker *broker.Broker
	runner *Runner
}

func New(srv *server.Server, runner *Runner) *API {
	return &API{srv: srv, broker: srv.Broker(), runner: runner}
}

// Handler builds the gin engine with every route registered.
func (a *API) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog)

	r.GET("/variables", a.handleListVariables)
	r.GET("/variables/:id", a.handleGetVariable)
	r.PUT("/variables/:id", a.handlePutVariable)
	r.GET("/results", a.handleListResults)
	r.GET("/results/:id", a.handleGetResult)
	r.GET("/state", a.handleGetState)
	r.PUT("/state", a.handlePutState)
	r.PUT("/lock", a.handlePutLock)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func requestLog(c *gin.Context) {
	c.Next()
	log.V(1).Infof("http: %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
}

type variableJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Unit  string `json:"unit,omitempty"`
	Type  string `json:"type"`
	Flags string `json:"flags"`
	Class string `json:"class"`
	Value string `json:"value"`
	State string `json:"state,omitempty"`
}

func (a *API) variableJSON(v *broker.Variable) variableJSON {
	d := v.Definition()
	out := variableJSON{
		ID:    "0x" + strconv.FormatUint(uint64(d.ID), 16),
		Name:  d.Name,
		Unit:  d.Unit,
		Type:  d.Type.String(),
		Flags: v.CurFlags().String(),
		Value: v.Cur().String(),
	}
	if c, ok := a.broker.Class(v); ok {
		out.Class = c.String()
	}
	if st, ok := v.StateName(); ok {
		out.State = st
	}
	return out
}

type resultJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Flags     string `json:"flags"`
	Type      string `json:"type"`
	BlockSize int    `json:"block_size"`
	Blocks    int    `json:"blocks"`
	Committed uint64 `json:"committed"`
	Data      []byte `json:"data,omitempty"`
}

func resultInfo(r *broker.Result) resultJSON {
	d := r.Definition()
	_, committed, _ := r.Latest()
	return resultJSON{
		ID:        "0x" + strconv.FormatUint(uint64(d.ID), 16),
		Name:      d.Name,
		Flags:     r.CurFlags().String(),
		Type:      d.Type.String(),
		BlockSize: d.BlockSize,
		Blocks:    r.Blocks(),
		Committed: committed,
	}
}

// parseKey accepts a numeric id or a full name.
func parseKey(s string) (uint32, bool) {
	id, err := strconv.ParseUint(s, 0, 32)
	return uint32(id), err == nil
}

func (a *API) lookupVariable(key string) (*broker.Variable, bool) {
	if id, ok := parseKey(key); ok {
		return a.broker.Variable(id)
	}
	return a.broker.VariableByName(key)
}

func (a *API) lookupResult(key string) (*broker.Result, bool) {
	if id, ok := parseKey(key); ok {
		return a.broker.Result(id)
	}
	return a.broker.ResultByName(key)
}

func (a *API) handleListVariables(c *gin.Context) {
	vars := a.broker.Variables()
	out := make([]variableJSON, 0, len(vars))
	for _, v := range vars {
		out = append(out, a.variableJSON(v))
	}
	c.JSON(http.StatusOK, gin.H{"variables": out})
}

func (a *API) handleGetVariable(c *gin.Context) {
	v, ok := a.lookupVariable(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "variable not found"})
		return
	}
	c.JSON(http.StatusOK, a.variableJSON(v))
}

// valueText returns a JSON string's contents or a number's literal text.
func valueText(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
		return text, nil
	}
	if s == "" || s == "null" {
		return "", errors.New("missing value")
	}
	return s, nil
}

func (a *API) handlePutVariable(c *gin.Context) {
	v, ok := a.lookupVariable(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "variable not found"})
		return
	}
	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text, err := valueText(body.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	val, err := v.ParseState(text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var werr error
	if err := a.runner.Do(c.Request.Context(), func() { werr = v.Write(val) }); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if werr != nil {
		log.Warningf("http: write %s = %v rejected: %v", v.Name(), val, werr)
		status := http.StatusInternalServerError
		if errors.Is(werr, broker.ErrReadonly) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": werr.Error()})
		return
	}
	c.JSON(http.StatusOK, a.variableJSON(v))
}

func (a *API) handleListResults(c *gin.Context) {
	results := a.broker.Results()
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultInfo(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (a *API) handleGetResult(c *gin.Context) {
	r, ok := a.lookupResult(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	out := resultInfo(r)
	block, committed, ok := r.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data"})
		return
	}
	out.Data, out.Committed = block, committed
	c.JSON(http.StatusOK, out)
}

func (a *API) handleGetState(c *gin.Context) {
	var locked bool
	if err := a.runner.Do(c.Request.Context(), func() { locked = a.srv.Locked() }); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": a.broker.State().String(), "locked": locked})
}

func (a *API) handlePutState(c *gin.Context) {
	var body struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next, err := broker.ParseState(body.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.runner.Do(c.Request.Context(), func() { a.srv.SetState(next) }); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	got := a.broker.State()
	if got != next {
		log.Warningf("http: state %s refused, now %s", next, got)
	}
	c.JSON(http.StatusOK, gin.H{"state": got.String()})
}

func (a *API) handlePutLock(c *gin.Context) {
	var body struct {
		Locked *bool `json:"locked"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Locked == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing locked"})
		return
	}
	lock := *body.Locked
	if err := a.runner.Do(c.Request.Context(), func() { a.srv.SetLocked(lock) }); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": lock})
}
