package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/catalog"
	"github.com/Zuniga63/digital-menu-api/media"
	"github.com/Zuniga63/digital-menu-api/models"
)

// sendError writes the error body {message, ok:false, validationErrors?} with
// the status matching the error class.
func sendError(c *gin.Context, err error) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		ue *media.UploadError
	)
	switch {
	case errors.As(err, &ve):
		body := gin.H{"ok": false, "message": ve.Message}
		if details := ve.Details(); details != nil {
			body["validationErrors"] = details
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, apperr.ErrInvalidSignIn):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": nf.Error()})
	case errors.As(err, &ue):
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "message": "the image could not be uploaded"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "internal server error"})
	}
}

// bindError turns a failed ShouldBindJSON into a validation error.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.FromValidator("the request is invalid", err)
	}
	return apperr.Validation(fmt.Sprintf("the request body is invalid: %v", err), nil)
}

// idParam reads a numeric path parameter. Anything else cannot name a record,
// so it is reported as not found.
func idParam(c *gin.Context, name, resource string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(resource)
	}
	return uint(id), nil
}

// formBoolPtr is nil when the form field is absent.
func formBoolPtr(c *gin.Context, key string) *bool {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	b := catalog.FormBool(v)
	return &b
}

func formBoolDefault(c *gin.Context, key string, def bool) bool {
	if b := formBoolPtr(c, key); b != nil {
		return *b
	}
	return def
}

// uploadImage sends the "image" form file to the media store. No file, or a
// request that is not multipart, yields a nil image.
func uploadImage(ctx context.Context, c *gin.Context, store media.Store, preset, name string) (*models.Image, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("the image could not be read", apperr.Fields{"image": err.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	return store.Upload(ctx, f, media.UploadOptions{Preset: preset, PublicID: media.PublicID(name)})
}
