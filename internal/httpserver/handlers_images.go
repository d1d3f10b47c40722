package httpserver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	imageURLPrefix = "/images"
	maxImageBytes  = 5 << 20
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

func (h *handlers) uploadProductImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes+1<<20)
	file, err := c.FormFile("image")
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "image file required", err.Error())
		return
	}
	if file.Size > maxImageBytes {
		abortWithMessage(c, http.StatusRequestEntityTooLarge, "image too large",
			fmt.Sprintf("limit is %d bytes", maxImageBytes))
		return
	}
	contentType, err := sniffContentType(file)
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "unreadable image", err.Error())
		return
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		abortWithMessage(c, http.StatusUnsupportedMediaType, "unsupported image type", contentType)
		return
	}

	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.deps.ImageDir, name)); err != nil {
		writeError(c, fmt.Errorf("save image: %w", err))
		return
	}
	url := imageURLPrefix + "/" + name

	p, previous, err := h.deps.ProductSvc.SetImage(c.Request.Context(), id, url)
	if err != nil {
		h.removeImage(url)
		writeError(c, err)
		return
	}
	h.removeImage(previous)
	h.logger.Info("product image uploaded", zap.String("product_id", id), zap.String("image", url))
	c.JSON(http.StatusOK, gin.H{"message": "product image uploaded", "product": p})
}

// removeImage deletes an uploaded image file. URLs that do not point into the
// image directory are ignored.
func (h *handlers) removeImage(url string) {
	if h.deps.ImageDir == "" {
		return
	}
	name, ok := strings.CutPrefix(url, imageURLPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return
	}
	if err := os.Remove(filepath.Join(h.deps.ImageDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.logger.Warn("remove product image", zap.String("image", url), zap.Error(err))
	}
}

func sniffContentType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
