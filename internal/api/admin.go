package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/frak/beam/internal/auth"
	"github.com/frak/beam/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Admin handlers manage the registration tables: clusters, components and
// API credentials. All of them sit behind RequireAdmin.

func (s *Server) handleListKeys(c *gin.Context) {
	keys, err := auth.ListKeys(s.DB)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (s *Server) handleCreateKey(c *gin.Context) {
	var body struct {
		Access    string `json:"access"`
		Secret    string `json:"secret"`
		Component string `json:"component"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Access == "" || body.Secret == "" || body.Component == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access, secret and component must be defined"})
		return
	}
	err := auth.CreateKey(s.DB, body.Access, body.Secret, body.Component)
	switch {
	case errors.Is(err, auth.ErrDuplicateAccess), errors.Is(err, auth.ErrUnknownComponent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusCreated, gin.H{"status": "OK"})
	}
}

func (s *Server) handleDeleteKey(c *gin.Context) {
	if err := auth.DeleteKey(s.DB, c.Param("access")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// componentListing is one row of the component list, including when the
// component was last heard from.
type componentListing struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Cluster   string `json:"cluster"`
	Service   string `json:"service"`
	LastHeard *int64 `json:"lastheard"`
}

func (s *Server) handleListComponents(c *gin.Context) {
	var components []models.Component
	if err := s.DB.Order("id").Find(&components).Error; err != nil {
		respondError(c, err)
		return
	}
	listing := make([]componentListing, 0, len(components))
	for _, comp := range components {
		heard, err := auth.LastHeard(s.DB, comp.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		listing = append(listing, componentListing{
			ID:        comp.ID,
			Name:      comp.Name,
			Cluster:   comp.Cluster,
			Service:   comp.Service,
			LastHeard: heard,
		})
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) handleCreateComponent(c *gin.Context) {
	var body struct {
		Name    string `json:"name"`
		Cluster string `json:"cluster"`
		Service string `json:"service"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" || body.Cluster == "" || body.Service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, cluster and service must be defined"})
		return
	}

	var count int64
	if err := s.DB.Model(&models.Cluster{}).Where("id = ?", body.Cluster).Count(&count).Error; err != nil {
		respondError(c, err)
		return
	}
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown cluster %q", body.Cluster)})
		return
	}

	comp := models.Component{
		ID:      body.Cluster + "_" + body.Service,
		Name:    body.Name,
		Cluster: body.Cluster,
		Service: body.Service,
	}
	if err := s.DB.Create(&comp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("component %s already exists", comp.ID)})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comp)
}

func (s *Server) handleDeleteComponent(c *gin.Context) {
	id := c.Param("id")

	var keys int64
	if err := s.DB.Model(&models.APIKey{}).Where("component = ?", id).Count(&keys).Error; err != nil {
		respondError(c, err)
		return
	}
	if keys > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "component still has credentials"})
		return
	}
	if err := s.DB.Delete(&models.Component{}, "id = ?", id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) handleListClusters(c *gin.Context) {
	var clusters []models.Cluster
	if err := s.DB.Order("id").Find(&clusters).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clusters)
}

func (s *Server) handleCreateCluster(c *gin.Context) {
	var body struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ID == "" || body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and name must be defined"})
		return
	}
	cluster := models.Cluster{ID: body.ID, Name: body.Name}
	if err := s.DB.Create(&cluster).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cluster %s already exists", body.ID)})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cluster)
}

// handleDeleteCluster refuses to delete a cluster that components or cases
// still reference.
func (s *Server) handleDeleteCluster(c *gin.Context) {
	id := c.Param("id")

	var components int64
	if err := s.DB.Model(&models.Component{}).Where("cluster = ?", id).Count(&components).Error; err != nil {
		respondError(c, err)
		return
	}
	var reportables int64
	if err := s.DB.Model(&models.Reportable{}).Where("cluster = ?", id).Count(&reportables).Error; err != nil {
		respondError(c, err)
		return
	}
	if components > 0 || reportables > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cluster is still referenced"})
		return
	}
	if err := s.DB.Delete(&models.Cluster{}, "id = ?", id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
