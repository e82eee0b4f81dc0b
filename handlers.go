package main

import (
	"log"
	"net/http"
	"strconv"

	"receiptscan/models"
	"receiptscan/pkg/ocr"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const listLimit = 100

// app carries the server dependencies. db is nil in stateless mode.
type app struct {
	cfg    Config
	db     *gorm.DB
	engine ocr.Engine
}

func setupRoutes(r *gin.Engine, a *app) {
	r.Use(corsMiddleware(a.cfg.CORSOrigins))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/ocr", a.ocrHandler)
	r.POST("/analyze", analyzeHandler)
	if a.db == nil {
		return
	}
	r.POST("/register", a.registerHandler)
	r.POST("/login", a.loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware(a.cfg.JWTSecret))
	authGroup.GET("/me", meHandler)
	authGroup.POST("/scans", a.createScanHandler)
	authGroup.GET("/scans", a.listScansHandler)
	authGroup.GET("/scans/summary", a.scanSummaryHandler)
	authGroup.GET("/scans/:id", a.getScanHandler)
}

// ocrHandler reads the receipt image, runs OCR and returns the detected total
// and currency. Either may be null.
func (a *app) ocrHandler(c *gin.Context) {
	up, ok := readUpload(c, a.cfg.MaxUploadBytes)
	if !ok {
		return
	}
	text, err := a.engine.ExtractText(c.Request.Context(), up.Data)
	if err != nil {
		log.Printf("ERROR OCR %s: %v", up.FileName, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "ocr failed"})
		return
	}
	res := ocr.Analyze(text)
	log.Printf("OCR %s text=%q hasTotal=%v", up.FileName, ocr.Snippet(text, 180), res.HasTotal())
	c.JSON(http.StatusOK, res)
}

// analyzeHandler runs the analyzer on text the client already has.
func analyzeHandler(c *gin.Context) {
	var req struct {
		Text *string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ocr.Analyze(*req.Text))
}

// createScanHandler stores the upload, runs OCR and records the result. OCR
// failures are kept as failed scans so they can be retried later.
func (a *app) createScanHandler(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	up, ok := readUpload(c, a.cfg.MaxUploadBytes)
	if !ok {
		return
	}
	rel, err := storeUpload(a.cfg.UploadBase, user.ID, up)
	if err != nil {
		log.Printf("ERROR %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	scan := models.Scan{
		UserID:      user.ID,
		FileName:    up.FileName,
		StorePath:   rel,
		ContentType: up.ContentType,
		Source:      models.SourceAPI,
	}
	if text, err := a.engine.ExtractText(c.Request.Context(), up.Data); err != nil {
		log.Printf("ERROR OCR %s: %v", rel, err)
		scan.Fail(err)
	} else {
		scan.Apply(text, ocr.Analyze(text))
	}
	if err := a.db.Create(&scan).Error; err != nil {
		log.Printf("ERROR saving scan %s: %v", rel, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, scan)
}

// listScansHandler returns recent scans; administrators see everyone's.
// ?failed=true limits the list to scans without a total.
func (a *app) listScansHandler(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	q := a.db.Model(&models.Scan{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	if v := c.Query("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed must be a boolean"})
			return
		}
		q = q.Where("failed = ?", failed)
	}
	scans := []models.Scan{}
	if err := q.Order("id desc").Limit(listLimit).Find(&scans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (a *app) getScanHandler(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var scan models.Scan
	if err := a.db.First(&scan, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && scan.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, scan)
}

// monthlyTotal is one row of the scan summary.
type monthlyTotal struct {
	Month    string  `json:"month"`
	Currency *string `json:"currency"`
	Count    int64   `json:"count"`
	Total    float64 `json:"total"`
}

// scanSummaryHandler sums detected totals per month and currency. Scans
// without a total are left out.
func (a *app) scanSummaryHandler(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	q := a.db.Model(&models.Scan{}).Where("total IS NOT NULL")
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	results := []monthlyTotal{}
	err := q.Select("to_char(created_at, 'YYYY-MM') AS month, currency, count(*) AS count, sum(total) AS total").
		Group("month, currency").
		Order("month, currency").
		Scan(&results).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, results)
}
