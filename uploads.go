package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"receiptscan/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// upload is a receipt image read from a multipart request.
type upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// extByContentType covers the formats tesseract reads through leptonica.
var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
	"image/tiff": ".tif",
	"image/heic": ".heic",
}

// readUpload reads the "file" form field, enforcing the size limit and an
// image content type. On failure it writes the error response and returns false.
func readUpload(c *gin.Context, maxBytes int64) (upload, bool) {
	// Leave room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file too large (max %dMB)", maxBytes>>20)})
			return upload{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return upload{}, false
	}
	if fh.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file too large (max %dMB)", maxBytes>>20)})
		return upload{}, false
	}
	data, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read failed"})
		return upload{}, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
		return upload{}, false
	}
	ct, ok := imageContentType(data, fh.Header.Get("Content-Type"))
	if !ok {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "file is not an image"})
		return upload{}, false
	}
	return upload{FileName: filepath.Base(fh.Filename), ContentType: ct, Data: data}, true
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// imageContentType sniffs data. HEIC is recognised directly; other formats the
// sniffer does not know (TIFF) are accepted when the client declared an image type.
func imageContentType(data []byte, declared string) (string, bool) {
	if ocr.IsHEIC(data) {
		return "image/heic", true
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, true
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if sniffed == "application/octet-stream" && strings.HasPrefix(declared, "image/") {
		return declared, true
	}
	return sniffed, false
}

// storeUpload writes the image under base/<userID>/<uuid><ext> and returns the
// path relative to base.
func storeUpload(base string, userID uint, up upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.FileName))
	if ext == "" {
		ext = extByContentType[up.ContentType]
	}
	rel := filepath.Join(fmt.Sprint(userID), uuid.NewString()+ext)
	full := filepath.Join(base, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(full, up.Data, 0644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	log.Printf("SCAN stored %s (%d bytes) for user %d", rel, len(up.Data), userID)
	return filepath.ToSlash(rel), nil
}
