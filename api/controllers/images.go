package controllers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/superkart/kart-backend/api/responses"
	imagesvc "github.com/superkart/kart-backend/internal/images"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

// maxImageUploadBytes bounds the multipart payload read off the wire.
const maxImageUploadBytes = 6 << 20

// ListProductImages serves image metadata without the binary payloads.
func ListProductImages(svc imagesvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		images, err := svc.ListForProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		out := make([]productImageResponse, 0, len(images))
		for i := range images {
			out = append(out, newProductImageResponse(&images[i]))
		}
		responses.WriteSuccess(w, http.StatusOK, out)
	}
}

// UploadProductImage accepts a multipart form with a single "image" part.
func UploadProductImage(svc imagesvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		input, err := readImagePart(w, r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		image, err := svc.Upload(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, newProductImageResponse(image))
	}
}

// UpdateProductImage replaces a stored image's bytes in place. The image
// keeps its ID and download URL.
func UpdateProductImage(svc imagesvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := pathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		input, err := readImagePart(w, r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		image, err := svc.Update(r.Context(), imageID, input)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newProductImageResponse(image))
	}
}

// readImagePart extracts the single "image" part from a multipart form.
func readImagePart(w http.ResponseWriter, r *http.Request) (imagesvc.UploadInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		return imagesvc.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart payload")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return imagesvc.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return imagesvc.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image payload")
	}

	return imagesvc.UploadInput{
		FileName: header.Filename,
		FileType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// DownloadProductImage streams the stored bytes with the original content type.
func DownloadProductImage(svc imagesvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := pathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		image, err := svc.Download(r.Context(), imageID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		w.Header().Set("Content-Type", image.FileType)
		w.Header().Set("Content-Length", strconv.Itoa(len(image.Data)))
		w.Header().Set("Content-Disposition", `inline; filename="`+image.FileName+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(image.Data)
	}
}

// DeleteProductImage removes one stored image.
func DeleteProductImage(svc imagesvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := pathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		if err := svc.Delete(r.Context(), imageID); err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
