package api

import (
	"alcyxob/file-storage/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, storageService service.StorageService) {
	storageHandler := NewStorageHandler(storageService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	storageGroup := router.Group("/storage")
	{
		// POST /storage/upload (multipart: file, folder)
		storageGroup.POST("/upload", storageHandler.UploadFile)
		// GET /storage/url?key=...
		storageGroup.GET("/url", storageHandler.GetDownloadURL)
		// DELETE /storage/object?key=...
		storageGroup.DELETE("/object", storageHandler.DeleteFile)
	}
}

// NewRouter builds the engine with recovery, request logging and CORS.
func NewRouter(maxUploadMemoryMB int64, corsOrigins []string, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	router.Use(CORSMiddleware(corsOrigins))
	if maxUploadMemoryMB > 0 {
		router.MaxMultipartMemory = maxUploadMemoryMB << 20
	}
	return router
}
