package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/frak/beam/internal/auth"
	"github.com/frak/beam/internal/notify"
	"github.com/gin-gonic/gin"
)

// SupportedVersion is the report schema version this manager accepts.
// Detectors declaring any other version are refused outright.
const SupportedVersion = 2

// handlePostCases ingests a report from an authenticated detector. The
// report's cluster and receive time come from the credential, never from
// the body.
func (s *Server) handlePostCases(c *gin.Context) {
	subj := auth.SubjectFrom(c)

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not a JSON object"})
		return
	}

	raw, ok := body["version"]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API violation: must define 'version'"})
		return
	}
	var version int
	if err := json.Unmarshal(raw, &version); err != nil || version != SupportedVersion {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Client API version (%s) does not match server (%d)", raw, SupportedVersion),
		})
		return
	}

	report := make(map[string][]map[string]interface{}, len(body)-1)
	for name, blob := range body {
		if name == "version" {
			continue
		}
		var entries []map[string]interface{}
		if err := json.Unmarshal(blob, &entries); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("sub-report %q is not a list of objects", name),
			})
			return
		}
		report[name] = entries
	}

	receipts, err := s.Engine.Ingest(c.Request.Context(), subj.Cluster, subj.Epoch, report)
	if err != nil {
		respondError(c, err)
		return
	}

	// Notifications are fanned out after the commit and off the request
	// path; delivery failures never affect the response.
	go func() {
		for _, r := range receipts {
			s.Dispatcher.Dispatch(notify.ReportReceived(r.Type, subj.Cluster, r.Summary))
		}
	}()

	c.JSON(http.StatusCreated, gin.H{"status": "OK"})
}

// handleGetCases returns the current view of one case type on the
// authenticated component's cluster. A cluster with no current cases of
// the type yields a JSON null body.
func (s *Server) handleGetCases(c *gin.Context) {
	subj := auth.SubjectFrom(c)

	name := c.Query("report")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API violation: must include 'report' parameter"})
		return
	}
	view, err := s.Engine.Current(c.Request.Context(), subj.Cluster, name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleGetCase returns one case by ID, regardless of type or cluster.
func (s *Server) handleGetCase(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	row, err := s.Engine.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
