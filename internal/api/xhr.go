package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/frak/beam/internal/auth"
	"github.com/frak/beam/internal/cases"
	"github.com/frak/beam/internal/ticketing"
	"github.com/gin-gonic/gin"
)

// handleXHRCases returns the current views of every registered case type
// for one cluster, keyed by type name. Types with no current cases map to
// null.
func (s *Server) handleXHRCases(c *gin.Context) {
	cluster := c.Query("cluster")
	if cluster == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "must include 'cluster' parameter"})
		return
	}

	views, err := s.currentViews(c, cluster)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// currentViews collects every registered type's current view for a cluster.
func (s *Server) currentViews(c *gin.Context, cluster string) (map[string]*cases.View, error) {
	views := make(map[string]*cases.View)
	for _, name := range s.Engine.Registry().Names() {
		view, err := s.Engine.Current(c.Request.Context(), cluster, name)
		if err != nil {
			return nil, err
		}
		views[name] = view
	}
	return views, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func (s *Server) handleXHRCase(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	row, err := s.Engine.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) handleXHREvents(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	events, err := s.Engine.Events(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// handleXHRUpdate applies an ordered list of analyst updates to a case and
// returns the refreshed current view of the case's cluster.
func (s *Server) handleXHRUpdate(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	ident := auth.IdentityFrom(c)

	var updates []cases.Update
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not a list of updates"})
		return
	}
	if err := s.Engine.ApplyUpdates(c.Request.Context(), id, ident.ID, updates); err != nil {
		respondError(c, err)
		return
	}

	row, err := s.Engine.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := s.currentViews(c, asString(row["cluster"]))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// handleXHRTicket opens a ticket for a case through the ticketing system
// and links it to the case. The first suggested contact becomes the
// ticket's customer.
func (s *Server) handleXHRTicket(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	ident := auth.IdentityFrom(c)

	var body struct {
		Title string `json:"title"`
	}
	// An empty body is fine; the title then defaults.
	c.ShouldBindJSON(&body)

	row, err := s.Engine.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	contacts, err := s.Engine.Contacts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(contacts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "case has no suggested contacts"})
		return
	}

	customer := contacts[0]
	email := ""
	if person, err := s.Directory.GetPerson(c.Request.Context(), customer); err == nil && person != nil {
		email = person.Email
	}

	title := body.Title
	if title == "" {
		title = fmt.Sprintf("%s case for %s on %s", row["report"], row["account"], row["cluster"])
	}

	ticket, err := s.Ticketing.CreateTicket(c.Request.Context(), ticketing.CreateRequest{
		Title:         title,
		Body:          fmt.Sprintf("Case %d (%s) on %s, account %s.", id, row["report"], row["cluster"], row["account"]),
		OwnerUID:      ident.UID,
		CustomerUID:   customer,
		CustomerEmail: email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if ticket == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "ticketing system declined the request"})
		return
	}

	if err := s.Engine.SetTicket(c.Request.Context(), id, ticket.TicketID, ticket.TicketNo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// handleXHRDescribe returns the display schema of every registered case
// type.
func (s *Server) handleXHRDescribe(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Registry().Describe())
}

// caseID parses the :id route parameter, responding 404 itself when the
// parameter is not numeric.
func caseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}
