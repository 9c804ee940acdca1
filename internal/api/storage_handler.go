package api

import (
	"alcyxob/file-storage/internal/service"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StorageHandler holds the storage service dependency.
type StorageHandler struct {
	storageService service.StorageService
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(storageService service.StorageService) *StorageHandler {
	return &StorageHandler{storageService: storageService}
}

// --- DTOs for API (Data Transfer Objects) ---

// UploadFileResponse is returned after a successful upload.
type UploadFileResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
	Key     string `json:"key"`
}

// DownloadURLResponse carries a freshly signed URL for an existing key.
// FileName and ContentType are set when the upload was recorded.
type DownloadURLResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// DeleteFileResponse confirms a deletion.
type DeleteFileResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// --- Handler Methods ---

// UploadFile godoc
// @Summary Upload a file
// @Description Stores the file in the object store and returns its key and a URL valid for one hour.
// @Tags Storage
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param folder formData string false "Optional key prefix"
// @Success 201 {object} UploadFileResponse "File uploaded successfully"
// @Failure 400 {object} gin.H "No file uploaded"
// @Failure 500 {object} gin.H "Storage not configured or backend failure"
// @Router /storage/upload [post]
func (h *StorageHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	h.storeUpload(c, fileHeader, c.PostForm("folder"))
}

// storeUpload hands an already received file part to the storage service.
func (h *StorageHandler) storeUpload(c *gin.Context, fileHeader *multipart.FileHeader, folder string) {
	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Str("file", fileHeader.Filename).Msg("failed to open uploaded file")
		abortWithError(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(c.Request.Context(), service.UploadFileInput{
		Body:        file,
		Size:        fileHeader.Size,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Folder:      folder,
	})
	if err != nil {
		h.abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UploadFileResponse{
		Message: "File uploaded successfully",
		URL:     result.URL,
		Key:     result.Key,
	})
}

// GetDownloadURL godoc
// @Summary Sign a download URL
// @Description Returns a new one-hour URL for an object that was uploaded earlier.
// @Tags Storage
// @Produce json
// @Param key query string true "Object key"
// @Success 200 {object} DownloadURLResponse
// @Failure 400 {object} gin.H "Missing key"
// @Failure 500 {object} gin.H "Storage not configured or backend failure"
// @Router /storage/url [get]
func (h *StorageHandler) GetDownloadURL(c *gin.Context) {
	result, err := h.storageService.GetDownloadURL(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{
		URL:         result.URL,
		Key:         result.Key,
		FileName:    result.FileName,
		ContentType: result.ContentType,
	})
}

// DeleteFile godoc
// @Summary Delete a stored file
// @Tags Storage
// @Produce json
// @Param key query string true "Object key"
// @Success 200 {object} DeleteFileResponse
// @Failure 400 {object} gin.H "Missing key"
// @Failure 500 {object} gin.H "Storage not configured or backend failure"
// @Router /storage/object [delete]
func (h *StorageHandler) DeleteFile(c *gin.Context) {
	key := c.Query("key")
	if err := h.storageService.DeleteFile(c.Request.Context(), key); err != nil {
		h.abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteFileResponse{Message: "File deleted successfully", Key: key})
}

func (h *StorageHandler) abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidObjectKey):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBucketNotConfigured):
		log.Error().Msg("storage bucket is not configured")
		abortWithError(c, http.StatusInternalServerError, err.Error())
	default:
		// Backend errors carry the raw backend text after the generic prefix.
		log.Error().Err(err).Str("path", c.FullPath()).Msg("storage request failed")
		abortWithError(c, http.StatusInternalServerError, err.Error())
	}
}
